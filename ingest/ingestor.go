package ingest

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/contract"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxSeenKeys bounds the dedup set. Once exceeded the whole set is cleared;
// the timeline's own dedup catches the handful of keys still in view.
const maxSeenKeys = 1000

// backfillBlockSpan is how far behind the head the backfill looks.
const backfillBlockSpan = 1000

// blockTimeMillis is the assumed block interval, used to estimate timestamps
// for backfilled events without fetching block headers.
const blockTimeMillis = 12_000

// LogSource is the chain log surface the ingestor consumes. Satisfied by
// ethclient.Client.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Timeline receives deduplicated events.
type Timeline interface {
	AddEvent(event entities.TransactionEvent) bool
	TimelineSize() int
}

// Ingestor feeds the event timeline from two directions: a one-shot backfill
// of recent history per account, and a live log subscription. Both paths run
// through the same dedup set so an event observed twice lands once.
type Ingestor struct {
	source            LogSource
	timeline          Timeline
	contractAddress   common.Address
	logger            *zap.SugaredLogger
	processingMetrics *metrics.Metrics
	resubscribeDelay  time.Duration
	now               func() time.Time

	mu         sync.Mutex
	seen       map[string]bool
	backfilled map[string]bool
}

func NewIngestor(source LogSource, timeline Timeline, contractAddress common.Address,
	logger *zap.SugaredLogger, m *metrics.Metrics, resubscribeDelay time.Duration) *Ingestor {
	return &Ingestor{
		source:            source,
		timeline:          timeline,
		contractAddress:   contractAddress,
		logger:            logger,
		processingMetrics: m,
		resubscribeDelay:  resubscribeDelay,
		now:               time.Now,
		seen:              make(map[string]bool),
		backfilled:        make(map[string]bool),
	}
}

// Backfill loads recent history involving account into the timeline. Runs at
// most once per account; later calls are no-ops.
func (i *Ingestor) Backfill(ctx context.Context, account common.Address) error {
	if !i.markBackfillStarted(account) {
		return nil
	}

	head, err := i.source.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "reading head block")
	}
	fromBlock := uint64(0)
	if head > backfillBlockSpan {
		fromBlock = head - backfillBlockSpan
	}

	var transferLogs, faucetLogs []types.Log
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		transferLogs, err = i.source.FilterLogs(groupCtx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(head),
			Addresses: []common.Address{i.contractAddress},
			Topics:    [][]common.Hash{{contract.TransferTopic()}},
		})
		return errors.Wrap(err, "querying transfer logs")
	})
	group.Go(func() error {
		var err error
		faucetLogs, err = i.source.FilterLogs(groupCtx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(head),
			Addresses: []common.Address{i.contractAddress},
			Topics:    [][]common.Hash{{contract.FaucetClaimedTopic()}, {common.BytesToHash(account.Bytes())}},
		})
		return errors.Wrap(err, "querying faucet logs")
	})
	if err := group.Wait(); err != nil {
		return err
	}

	ingested := 0
	for _, lg := range append(transferLogs, faucetLogs...) {
		event, ok := contract.ParseLog(lg, i.estimateTimestamp(head, lg.BlockNumber))
		if !ok {
			continue
		}
		if event.Kind == entities.EventTransfer && event.From != account && event.To != account {
			continue
		}
		if i.ingest(event) {
			ingested++
		}
	}
	i.logger.Infow("backfill finished", "account", account.Hex(),
		"fromBlock", fromBlock, "headBlock", head, "ingested", ingested)
	return nil
}

// Run consumes the live log subscription until ctx is cancelled. Dropped
// subscriptions are re-established after a delay.
func (i *Ingestor) Run(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{i.contractAddress},
		Topics:    [][]common.Hash{contract.EventTopics()},
	}

	for {
		logs := make(chan types.Log, 64)
		sub, err := i.source.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Errorw("subscribing to contract logs", "error", err)
			i.processingMetrics.IncSubscriptionDrops()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(i.resubscribeDelay):
			}
			continue
		}

		if err := i.consume(ctx, sub, logs); err != nil {
			i.logger.Errorw("log subscription dropped", "error", err)
			i.processingMetrics.IncSubscriptionDrops()
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(i.resubscribeDelay):
			}
			continue
		}
		return nil
	}
}

func (i *Ingestor) consume(ctx context.Context, sub ethereum.Subscription, logs <-chan types.Log) error {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			if lg.Removed { // reorged out
				continue
			}
			event, ok := contract.ParseLog(lg, i.now().UnixMilli())
			if !ok {
				continue
			}
			i.ingest(event)
		}
	}
}

func (i *Ingestor) ingest(event entities.TransactionEvent) bool {
	if !i.markSeen(event.DedupKey()) {
		i.processingMetrics.IncDuplicateEvents()
		return false
	}
	if !i.timeline.AddEvent(event) {
		i.processingMetrics.IncDuplicateEvents()
		return false
	}
	i.processingMetrics.IncIngestedEvents(string(event.Kind))
	i.processingMetrics.SetTimelineSize(i.timeline.TimelineSize())
	return true
}

func (i *Ingestor) markSeen(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.seen) > maxSeenKeys {
		i.seen = make(map[string]bool)
	}
	if i.seen[key] {
		return false
	}
	i.seen[key] = true
	return true
}

func (i *Ingestor) markBackfillStarted(account common.Address) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := account.Hex()
	if i.backfilled[key] {
		return false
	}
	i.backfilled[key] = true
	return true
}

func (i *Ingestor) estimateTimestamp(head, block uint64) int64 {
	if block > head {
		return i.now().UnixMilli()
	}
	return i.now().UnixMilli() - int64(head-block)*blockTimeMillis
}
