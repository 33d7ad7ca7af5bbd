package workflow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/metrics"
	"go.uber.org/zap"
)

type SupplySource interface {
	TotalSupplyHandle(ctx context.Context) (entities.EncryptedHandle, error)
}

type SupplyAuthorizer interface {
	MakeTotalSupplyDecryptable(ctx context.Context) (common.Hash, error)
}

// SupplyDecryption resolves the encrypted total supply, following the same
// authorize, confirm, decrypt lifecycle as the balance workflow. The result is
// returned to the caller and never cached; ownership of the authorize call is
// enforced by the contract.
type SupplyDecryption struct {
	source          SupplySource
	decryptor       HandleDecryptor
	writer          SupplyAuthorizer
	tracker         Awaiter
	logger          *zap.SugaredLogger
	workflowMetrics *metrics.Metrics
}

func NewSupplyDecryption(source SupplySource, decryptor HandleDecryptor, writer SupplyAuthorizer,
	tracker Awaiter, logger *zap.SugaredLogger, m *metrics.Metrics) *SupplyDecryption {
	return &SupplyDecryption{
		source:          source,
		decryptor:       decryptor,
		writer:          writer,
		tracker:         tracker,
		logger:          logger,
		workflowMetrics: m,
	}
}

func (s *SupplyDecryption) Execute(ctx context.Context, observer Observer) Run {
	handle, err := s.source.TotalSupplyHandle(ctx)
	if err != nil {
		s.logger.Errorw("reading total supply handle", "error", err)
		s.workflowMetrics.IncDecryptions("handle_error")
		return Run{Phase: PhaseFailed, Err: err}
	}

	if handle.IsZero() {
		s.workflowMetrics.IncDecryptions("zero_handle")
		notify(observer, PhaseDone)
		return Run{Phase: PhaseDone, Value: big.NewInt(0)}
	}

	notify(observer, PhaseAuthorizing)
	txHash, err := s.writer.MakeTotalSupplyDecryptable(ctx)
	if err != nil {
		s.logger.Errorw("authorizing supply decryption", "error", err)
		s.workflowMetrics.IncDecryptions("rejected")
		return Run{Phase: PhaseFailed, Err: err}
	}
	s.workflowMetrics.IncSubmittedWrites()

	notify(observer, PhaseAwaitingConfirmation)
	if err := s.tracker.Await(ctx, txHash); err != nil {
		s.logger.Errorw("supply decryption authorization failed on chain", "txHash", txHash.Hex(), "error", err)
		s.workflowMetrics.IncDecryptions("failed")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	notify(observer, PhaseDecrypting)
	values, err := s.decryptor.DecryptHandles(ctx, []entities.EncryptedHandle{handle})
	if err != nil {
		s.logger.Errorw("decrypting total supply handle", "error", err)
		s.workflowMetrics.IncDecryptions("decryption_error")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	s.workflowMetrics.IncDecryptions("succeeded")
	notify(observer, PhaseDone)
	return Run{Phase: PhaseDone, TxHash: txHash, Value: values[handle]}
}
