package workflow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/fhe"
	"github.com/shadowmint/go-token-client/metrics"
	"go.uber.org/zap"
)

type AmountEncryptor interface {
	EncryptAmount(ctx context.Context, amount *big.Int, contract, user common.Address) (*fhe.EncryptedInput, error)
}

type TransferSender interface {
	Transfer(ctx context.Context, to common.Address, handle entities.EncryptedHandle, proof []byte) (common.Hash, error)
}

type BalanceInvalidator interface {
	InvalidateBalance(account common.Address)
}

type BalanceState interface {
	ClearBalance(account common.Address)
}

type TransferRequest struct {
	Recipient string
	Amount    string
}

// Transfer moves encrypted tokens to a recipient. Validation is local and
// reports per-field errors without touching the network; only a request that
// validates cleanly reaches encryption and submission. After confirmation the
// sender's cached balance is dropped so the next read reflects the transfer.
type Transfer struct {
	encryptor       AmountEncryptor
	writer          TransferSender
	tracker         Awaiter
	cache           BalanceInvalidator
	store           BalanceState
	contractAddress common.Address
	wallet          common.Address
	logger          *zap.SugaredLogger
	workflowMetrics *metrics.Metrics
}

func NewTransfer(encryptor AmountEncryptor, writer TransferSender, tracker Awaiter,
	cache BalanceInvalidator, store BalanceState, contractAddress, wallet common.Address,
	logger *zap.SugaredLogger, m *metrics.Metrics) *Transfer {
	return &Transfer{
		encryptor:       encryptor,
		writer:          writer,
		tracker:         tracker,
		cache:           cache,
		store:           store,
		contractAddress: contractAddress,
		wallet:          wallet,
		logger:          logger,
		workflowMetrics: m,
	}
}

func (t *Transfer) Execute(ctx context.Context, request TransferRequest, observer Observer) Run {
	notify(observer, PhaseValidating)
	atomic, fieldErrors := t.validate(request)
	if len(fieldErrors) > 0 {
		t.workflowMetrics.IncTransfers("validation_error")
		return Run{Phase: PhaseFailed, FieldErrors: fieldErrors}
	}
	recipient := common.HexToAddress(request.Recipient)

	notify(observer, PhaseEncrypting)
	input, err := t.encryptor.EncryptAmount(ctx, atomic, t.contractAddress, t.wallet)
	if err != nil {
		t.logger.Errorw("encrypting transfer amount", "error", err)
		t.workflowMetrics.IncTransfers("encryption_error")
		return Run{Phase: PhaseFailed, Err: err}
	}

	txHash, err := t.writer.Transfer(ctx, recipient, input.Handle, input.Proof)
	if err != nil {
		t.logger.Errorw("submitting transfer", "recipient", recipient.Hex(), "error", err)
		t.workflowMetrics.IncTransfers("rejected")
		return Run{Phase: PhaseFailed, Err: err}
	}
	t.workflowMetrics.IncSubmittedWrites()
	notify(observer, PhaseSubmitted)

	notify(observer, PhaseConfirming)
	if err := t.tracker.Await(ctx, txHash); err != nil {
		t.logger.Errorw("transfer failed on chain", "txHash", txHash.Hex(), "error", err)
		t.workflowMetrics.IncTransfers("failed")
		return Run{Phase: PhaseFailed, TxHash: txHash, Err: err}
	}

	t.cache.InvalidateBalance(t.wallet)
	t.store.ClearBalance(t.wallet)
	t.logger.Infow("transfer confirmed", "recipient", recipient.Hex(), "txHash", txHash.Hex())
	t.workflowMetrics.IncTransfers("succeeded")
	notify(observer, PhaseSucceeded)
	return Run{Phase: PhaseSucceeded, TxHash: txHash}
}

func (t *Transfer) validate(request TransferRequest) (*big.Int, entities.ValidationErrors) {
	var fieldErrors entities.ValidationErrors
	validateAccountField("recipient", request.Recipient, &fieldErrors)
	atomic := validateAmountField("amount", request.Amount, &fieldErrors)
	if len(fieldErrors) > 0 {
		return nil, fieldErrors
	}
	return atomic, nil
}
