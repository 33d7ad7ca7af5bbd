package workflow

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/metrics"
	"go.uber.org/zap"
)

type HandleSource interface {
	BalanceHandle(ctx context.Context, account common.Address) (entities.EncryptedHandle, error)
	InvalidateBalance(account common.Address)
}

type HandleDecryptor interface {
	DecryptHandles(ctx context.Context, handles []entities.EncryptedHandle) (map[entities.EncryptedHandle]*big.Int, error)
}

type DecryptableAuthorizer interface {
	MakeBalanceDecryptable(ctx context.Context) (common.Hash, error)
}

type DecryptionState interface {
	SetBalance(account common.Address, balance *entities.DecryptedBalance)
	ClearBalance(account common.Address)
	SetDecrypting(account common.Address, active bool)
}

// BalanceDecryption resolves an account's encrypted balance to a cleartext
// value: authorize decryption on chain, wait for confirmation, then read the
// current handle and decrypt it off chain. The handle is read only after the
// authorization confirms, so the decrypted handle is always one the
// authorization covers. A zero handle means the account never held tokens and
// short-circuits to a zero balance without a runtime call.
//
// The workflow can be triggered automatically after ingestion; the auto
// trigger fires at most once per account until the cached balance is cleared.
type BalanceDecryption struct {
	source          HandleSource
	decryptor       HandleDecryptor
	writer          DecryptableAuthorizer
	tracker         Awaiter
	store           DecryptionState
	logger          *zap.SugaredLogger
	workflowMetrics *metrics.Metrics
	now             func() time.Time

	mu      sync.Mutex
	autoRan map[string]bool
}

func NewBalanceDecryption(source HandleSource, decryptor HandleDecryptor, writer DecryptableAuthorizer,
	tracker Awaiter, store DecryptionState, logger *zap.SugaredLogger, m *metrics.Metrics) *BalanceDecryption {
	return &BalanceDecryption{
		source:          source,
		decryptor:       decryptor,
		writer:          writer,
		tracker:         tracker,
		store:           store,
		logger:          logger,
		workflowMetrics: m,
		now:             time.Now,
		autoRan:         make(map[string]bool),
	}
}

func (b *BalanceDecryption) Execute(ctx context.Context, account common.Address, observer Observer) Run {
	notify(observer, PhaseAuthorizing)
	txHash, err := b.writer.MakeBalanceDecryptable(ctx)
	if err != nil {
		b.logger.Errorw("authorizing balance decryption", "account", account.Hex(), "error", err)
		b.workflowMetrics.IncDecryptions("rejected")
		return Run{Phase: PhaseFailed, Err: err}
	}
	b.workflowMetrics.IncSubmittedWrites()

	notify(observer, PhaseAwaitingConfirmation)
	if err := b.tracker.Await(ctx, txHash); err != nil {
		b.logger.Errorw("decryption authorization failed on chain", "txHash", txHash.Hex(), "error", err)
		b.workflowMetrics.IncDecryptions("failed")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	notify(observer, PhaseDecrypting)
	b.store.SetDecrypting(account, true)
	defer b.store.SetDecrypting(account, false)

	// the authorization covers the handle as it stands at confirmation, so
	// drop any cached read from before the write and fetch the current one
	b.source.InvalidateBalance(account)
	handle, err := b.source.BalanceHandle(ctx, account)
	if err != nil {
		b.logger.Errorw("reading balance handle", "account", account.Hex(), "error", err)
		b.workflowMetrics.IncDecryptions("handle_error")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	if handle.IsZero() {
		value := big.NewInt(0)
		b.store.SetBalance(account, &entities.DecryptedBalance{
			Account:    account,
			Value:      value,
			ObservedAt: b.now().UnixMilli(),
		})
		b.workflowMetrics.IncDecryptions("zero_handle")
		notify(observer, PhaseDone)
		return Run{Phase: PhaseDone, TxHash: txHash, Value: value}
	}

	values, err := b.decryptor.DecryptHandles(ctx, []entities.EncryptedHandle{handle})
	if err != nil {
		b.logger.Errorw("decrypting balance handle", "account", account.Hex(), "error", err)
		b.workflowMetrics.IncDecryptions("decryption_error")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}
	value := values[handle]

	b.store.SetBalance(account, &entities.DecryptedBalance{
		Account:    account,
		Value:      value,
		ObservedAt: b.now().UnixMilli(),
	})
	b.logger.Infow("balance decrypted", "account", account.Hex())
	b.workflowMetrics.IncDecryptions("succeeded")
	notify(observer, PhaseDone)
	return Run{Phase: PhaseDone, TxHash: txHash, Value: value}
}

// AutoExecute runs the workflow once per account. Returns false without
// running when the automatic trigger already fired for this account.
func (b *BalanceDecryption) AutoExecute(ctx context.Context, account common.Address, observer Observer) (Run, bool) {
	if !b.markAutoRun(account) {
		return Run{}, false
	}
	return b.Execute(ctx, account, observer), true
}

// ClearCachedBalance drops the decrypted balance and the cached handle, and
// re-arms the automatic trigger for the account.
func (b *BalanceDecryption) ClearCachedBalance(account common.Address) {
	b.mu.Lock()
	delete(b.autoRan, accountKey(account))
	b.mu.Unlock()

	b.store.ClearBalance(account)
	b.source.InvalidateBalance(account)
}

func (b *BalanceDecryption) markAutoRun(account common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := accountKey(account)
	if b.autoRan[key] {
		return false
	}
	b.autoRan[key] = true
	return true
}

func accountKey(account common.Address) string {
	return strings.ToLower(account.Hex())
}
