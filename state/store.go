package state

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"go.uber.org/zap"
)

// TimelineCap bounds the in-memory event timeline. Older events fall off.
const TimelineCap = 50

// TimelinePersister saves the event timeline. Only the timeline is durable;
// balances and flags are rebuilt from the chain on startup.
type TimelinePersister interface {
	SaveTimeline(events []entities.TransactionEvent) error
}

// Store holds the client state. All mutations happen under the lock and each
// exported method leaves the state consistent; concurrent writers serialize,
// last write wins.
type Store struct {
	logger    *zap.SugaredLogger
	persister TimelinePersister
	now       func() time.Time

	mu         sync.RWMutex
	events     []entities.TransactionEvent
	balances   map[string]entities.DecryptedBalance
	decrypting map[string]bool
	owner      bool
}

func NewStore(logger *zap.SugaredLogger, persister TimelinePersister) *Store {
	return &Store{
		logger:     logger,
		persister:  persister,
		now:        time.Now,
		balances:   make(map[string]entities.DecryptedBalance),
		decrypting: make(map[string]bool),
	}
}

func accountKey(account common.Address) string {
	return strings.ToLower(account.Hex())
}

// LoadTimeline replaces the timeline with previously persisted events,
// re-applying the ordering and cap. Meant for startup, before ingestion runs.
func (s *Store) LoadTimeline(events []entities.TransactionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make([]entities.TransactionEvent, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, event := range events {
		if seen[event.DedupKey()] {
			continue
		}
		seen[event.DedupKey()] = true
		s.events = append(s.events, event)
	}
	s.sortAndTrim()
}

// AddEvent inserts an event into the timeline. Events carrying a (kind, tx)
// pair already present are dropped, so a backfilled event and its live
// duplicate collapse into one entry. Returns true when the timeline changed.
func (s *Store) AddEvent(event entities.TransactionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events {
		if existing.DedupKey() == event.DedupKey() {
			return false
		}
	}

	s.events = append(s.events, event)
	s.sortAndTrim()
	s.persistLocked()
	return true
}

// sortAndTrim keeps the timeline newest first and capped. Callers hold the lock.
func (s *Store) sortAndTrim() {
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].ObservedAt > s.events[j].ObservedAt
	})
	if len(s.events) > TimelineCap {
		s.events = s.events[:TimelineCap]
	}
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	snapshot := make([]entities.TransactionEvent, len(s.events))
	copy(snapshot, s.events)
	if err := s.persister.SaveTimeline(snapshot); err != nil {
		s.logger.Errorw("persisting timeline", "error", err)
	}
}

// Timeline returns a copy of the current timeline, newest first.
func (s *Store) Timeline() []entities.TransactionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]entities.TransactionEvent, len(s.events))
	copy(events, s.events)
	return events
}

func (s *Store) TimelineSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) SetBalance(account common.Address, value *entities.DecryptedBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		delete(s.balances, accountKey(account))
		return
	}
	s.balances[accountKey(account)] = *value
}

func (s *Store) Balance(account common.Address) (entities.DecryptedBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[accountKey(account)]
	return balance, ok
}

func (s *Store) ClearBalance(account common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.balances, accountKey(account))
}

func (s *Store) SetDecrypting(account common.Address, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !active {
		delete(s.decrypting, accountKey(account))
		return
	}
	s.decrypting[accountKey(account)] = true
}

func (s *Store) IsDecrypting(account common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decrypting[accountKey(account)]
}

func (s *Store) SetOwner(owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

func (s *Store) IsOwner() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}
