package workflow

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/metrics"
	"go.uber.org/zap"
)

type OpsWriter interface {
	ClaimFaucet(ctx context.Context) (common.Hash, error)
	Mint(ctx context.Context, to common.Address, amount uint64) (common.Hash, error)
	Burn(ctx context.Context, from common.Address, amount uint64) (common.Hash, error)
	SetFaucetSettings(ctx context.Context, amount, cooldown uint64) (common.Hash, error)
	TransferOwnership(ctx context.Context, newOwner common.Address) (common.Hash, error)
}

type OpsCache interface {
	InvalidateBalance(account common.Address)
	InvalidateFaucetSettings()
	InvalidateCooldown(account common.Address)
}

type OpsState interface {
	ClearBalance(account common.Address)
	IsOwner() bool
	SetOwner(owner bool)
}

type MintRequest struct {
	Account string
	Amount  string
}

type BurnRequest struct {
	Account string
	Amount  string
}

type FaucetSettingsRequest struct {
	Amount          string
	CooldownSeconds string
}

// Ops bundles the faucet claim and the owner-only token operations. Owner
// operations are rejected locally when the wallet does not hold ownership;
// the chain would reject them anyway, this just fails fast. Each confirmed
// operation drops exactly the cached reads it made stale.
type Ops struct {
	writer          OpsWriter
	tracker         Awaiter
	cache           OpsCache
	store           OpsState
	wallet          common.Address
	logger          *zap.SugaredLogger
	workflowMetrics *metrics.Metrics
}

func NewOps(writer OpsWriter, tracker Awaiter, cache OpsCache, store OpsState,
	wallet common.Address, logger *zap.SugaredLogger, m *metrics.Metrics) *Ops {
	return &Ops{
		writer:          writer,
		tracker:         tracker,
		cache:           cache,
		store:           store,
		wallet:          wallet,
		logger:          logger,
		workflowMetrics: m,
	}
}

func (o *Ops) ClaimFaucet(ctx context.Context, observer Observer) Run {
	return o.run(ctx, observer, "claim faucet", o.writer.ClaimFaucet, func() {
		o.cache.InvalidateBalance(o.wallet)
		o.cache.InvalidateCooldown(o.wallet)
		o.store.ClearBalance(o.wallet)
	})
}

func (o *Ops) Mint(ctx context.Context, request MintRequest, observer Observer) Run {
	if !o.store.IsOwner() {
		return Run{Phase: PhaseFailed, Err: entities.ErrNotOwner}
	}

	notify(observer, PhaseValidating)
	account, atomic, fieldErrors := validateAccountAmount(request.Account, request.Amount)
	if len(fieldErrors) > 0 {
		return Run{Phase: PhaseFailed, FieldErrors: fieldErrors}
	}

	return o.run(ctx, observer, "mint", func(ctx context.Context) (common.Hash, error) {
		return o.writer.Mint(ctx, account, atomic.Uint64())
	}, func() {
		o.cache.InvalidateBalance(account)
		o.store.ClearBalance(account)
	})
}

func (o *Ops) Burn(ctx context.Context, request BurnRequest, observer Observer) Run {
	if !o.store.IsOwner() {
		return Run{Phase: PhaseFailed, Err: entities.ErrNotOwner}
	}

	notify(observer, PhaseValidating)
	account, atomic, fieldErrors := validateAccountAmount(request.Account, request.Amount)
	if len(fieldErrors) > 0 {
		return Run{Phase: PhaseFailed, FieldErrors: fieldErrors}
	}

	return o.run(ctx, observer, "burn", func(ctx context.Context) (common.Hash, error) {
		return o.writer.Burn(ctx, account, atomic.Uint64())
	}, func() {
		o.cache.InvalidateBalance(account)
		o.store.ClearBalance(account)
	})
}

func (o *Ops) UpdateFaucetSettings(ctx context.Context, request FaucetSettingsRequest, observer Observer) Run {
	if !o.store.IsOwner() {
		return Run{Phase: PhaseFailed, Err: entities.ErrNotOwner}
	}

	notify(observer, PhaseValidating)
	var fieldErrors entities.ValidationErrors
	atomic := validateAmountField("amount", request.Amount, &fieldErrors)
	cooldown, err := strconv.ParseUint(strings.TrimSpace(request.CooldownSeconds), 10, 64)
	if err != nil {
		fieldErrors = append(fieldErrors, entities.FieldError{Field: "cooldownSeconds", Message: "cooldown is not a valid number of seconds"})
	}
	if len(fieldErrors) > 0 {
		return Run{Phase: PhaseFailed, FieldErrors: fieldErrors}
	}

	return o.run(ctx, observer, "update faucet settings", func(ctx context.Context) (common.Hash, error) {
		return o.writer.SetFaucetSettings(ctx, atomic.Uint64(), cooldown)
	}, func() {
		o.cache.InvalidateFaucetSettings()
		o.cache.InvalidateCooldown(o.wallet)
	})
}

func (o *Ops) TransferOwnership(ctx context.Context, newOwner string, observer Observer) Run {
	if !o.store.IsOwner() {
		return Run{Phase: PhaseFailed, Err: entities.ErrNotOwner}
	}

	notify(observer, PhaseValidating)
	var fieldErrors entities.ValidationErrors
	account := validateAccountField("newOwner", newOwner, &fieldErrors)
	if len(fieldErrors) > 0 {
		return Run{Phase: PhaseFailed, FieldErrors: fieldErrors}
	}

	return o.run(ctx, observer, "transfer ownership", func(ctx context.Context) (common.Hash, error) {
		return o.writer.TransferOwnership(ctx, account)
	}, func() {
		if account != o.wallet {
			o.store.SetOwner(false)
		}
	})
}

func (o *Ops) run(ctx context.Context, observer Observer, name string,
	submit func(ctx context.Context) (common.Hash, error), onSuccess func()) Run {
	txHash, err := submit(ctx)
	if err != nil {
		o.logger.Errorw("submitting operation", "operation", name, "error", err)
		return Run{Phase: PhaseFailed, Err: err}
	}
	o.workflowMetrics.IncSubmittedWrites()
	notify(observer, PhaseSubmitted)

	notify(observer, PhaseConfirming)
	if err := o.tracker.Await(ctx, txHash); err != nil {
		o.logger.Errorw("operation failed on chain", "operation", name, "txHash", txHash.Hex(), "error", err)
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	onSuccess()
	o.logger.Infow("operation confirmed", "operation", name, "txHash", txHash.Hex())
	notify(observer, PhaseSucceeded)
	return Run{Phase: PhaseSucceeded, TxHash: txHash}
}

func validateAccountAmount(account, amount string) (common.Address, *big.Int, entities.ValidationErrors) {
	var fieldErrors entities.ValidationErrors
	address := validateAccountField("account", account, &fieldErrors)
	atomic := validateAmountField("amount", amount, &fieldErrors)
	return address, atomic, fieldErrors
}

func validateAccountField(field, value string, fieldErrors *entities.ValidationErrors) common.Address {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " is required"})
	case !strings.HasPrefix(value, "0x") || !common.IsHexAddress(value):
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " is not a valid address"})
	case common.HexToAddress(value) == (common.Address{}):
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " must not be the zero address"})
	}
	return common.HexToAddress(value)
}

func validateAmountField(field, value string, fieldErrors *entities.ValidationErrors) *big.Int {
	value = strings.TrimSpace(value)
	if value == "" {
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " is required"})
		return nil
	}
	atomic, err := entities.ToAtomic(value, entities.TokenDecimals)
	switch {
	case err != nil:
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " is not a valid number"})
		return nil
	case atomic.Sign() <= 0:
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " must be positive"})
		return nil
	case !atomic.IsUint64():
		*fieldErrors = append(*fieldErrors, entities.FieldError{Field: field, Message: field + " is too large"})
		return nil
	}
	return atomic
}
