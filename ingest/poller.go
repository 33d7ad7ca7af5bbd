package ingest

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// StatusSource is the subset of contract reads the poller refreshes.
// Satisfied by contract.CachedReader.
type StatusSource interface {
	Owner(ctx context.Context) (common.Address, error)
	TimeUntilNextClaim(ctx context.Context, account common.Address) (uint64, error)
}

// OwnerState receives the refreshed owner flag.
type OwnerState interface {
	SetOwner(owner bool)
}

// StatusPoller periodically re-derives the owner flag and keeps the faucet
// cooldown warm for the wallet account. Ownership can change from outside this
// process, so it is polled rather than cached.
type StatusPoller struct {
	source   StatusSource
	state    OwnerState
	wallet   common.Address
	logger   *zap.SugaredLogger
	interval time.Duration
}

func NewStatusPoller(source StatusSource, state OwnerState, wallet common.Address,
	logger *zap.SugaredLogger, interval time.Duration) *StatusPoller {
	return &StatusPoller{
		source:   source,
		state:    state,
		wallet:   wallet,
		logger:   logger,
		interval: interval,
	}
}

func (p *StatusPoller) Run(ctx context.Context) error {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *StatusPoller) refresh(ctx context.Context) {
	owner, err := p.source.Owner(ctx)
	if err != nil {
		p.logger.Errorw("refreshing owner flag", "error", err)
	} else {
		p.state.SetOwner(owner == p.wallet)
	}

	if _, err := p.source.TimeUntilNextClaim(ctx, p.wallet); err != nil {
		p.logger.Errorw("refreshing faucet cooldown", "error", err)
	}
}
