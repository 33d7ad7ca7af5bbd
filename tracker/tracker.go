package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shadowmint/go-token-client/entities"
	"go.uber.org/zap"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status ends the transaction lifecycle.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

type Update struct {
	TxHash common.Hash
	Status Status
	Err    error
}

// ReceiptProvider resolves transaction receipts. Implementations must return
// ethereum.NotFound while the transaction is still pending.
type ReceiptProvider interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Tracker follows a submitted transaction to its terminal state. For every
// tracked hash it emits exactly one submitted update and exactly one terminal
// update, regardless of how many times the receipt is observed. Tracking a new
// hash resets the marks; re-tracking the current hash does not.
type Tracker struct {
	provider     ReceiptProvider
	logger       *zap.SugaredLogger
	pollInterval time.Duration

	mu            sync.Mutex
	current       common.Hash
	submittedSent bool
	terminalSent  bool
	terminalErr   error
}

func NewTracker(provider ReceiptProvider, logger *zap.SugaredLogger, pollInterval time.Duration) *Tracker {
	return &Tracker{
		provider:     provider,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Track starts following txHash and returns a channel of lifecycle updates.
// The channel is closed after the terminal update, or without one when ctx is
// cancelled first.
func (t *Tracker) Track(ctx context.Context, txHash common.Hash) <-chan Update {
	updates := make(chan Update, 2)
	go func() {
		defer close(updates)

		if t.markSubmitted(txHash) {
			t.logger.Infow("transaction submitted", "txHash", txHash.Hex())
			select {
			case updates <- Update{TxHash: txHash, Status: StatusSubmitted}:
			case <-ctx.Done():
				return
			}
		}

		// the terminal update for this hash may already have been delivered
		if _, done := t.terminalResult(txHash); done {
			return
		}

		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				receipt, err := t.provider.TransactionReceipt(ctx, txHash)
				if err == ethereum.NotFound {
					continue
				}
				if err != nil {
					t.logger.Errorw("fetching transaction receipt", "txHash", txHash.Hex(), "error", err)
					continue
				}

				status := StatusConfirmed
				var terminalErr error
				if receipt.Status == types.ReceiptStatusFailed {
					status = StatusFailed
					terminalErr = fmt.Errorf("%w: transaction %s reverted in block %d",
						entities.ErrChainWriteFailed, txHash.Hex(), receipt.BlockNumber.Uint64())
				}

				if !t.markTerminal(txHash, terminalErr) {
					return
				}
				t.logger.Infow("transaction reached terminal state", "txHash", txHash.Hex(), "status", status)
				select {
				case updates <- Update{TxHash: txHash, Status: status, Err: terminalErr}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return updates
}

// Await blocks until txHash reaches a terminal state. Returns nil on
// confirmation, the failure error on revert, or ctx.Err on cancellation.
// Awaiting a hash that already reached its terminal state returns the
// remembered result instead of tracking again.
func (t *Tracker) Await(ctx context.Context, txHash common.Hash) error {
	for update := range t.Track(ctx, txHash) {
		if update.Status.Terminal() {
			return update.Err
		}
	}
	if err, done := t.terminalResult(txHash); done {
		return err
	}
	return ctx.Err()
}

func (t *Tracker) markSubmitted(txHash common.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if txHash != t.current {
		t.current = txHash
		t.submittedSent = false
		t.terminalSent = false
		t.terminalErr = nil
	}
	if t.submittedSent {
		return false
	}
	t.submittedSent = true
	return true
}

func (t *Tracker) markTerminal(txHash common.Hash, terminalErr error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if txHash != t.current || t.terminalSent {
		return false
	}
	t.terminalSent = true
	t.terminalErr = terminalErr
	return true
}

func (t *Tracker) terminalResult(txHash common.Hash) (error, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if txHash != t.current || !t.terminalSent {
		return nil, false
	}
	return t.terminalErr, true
}
