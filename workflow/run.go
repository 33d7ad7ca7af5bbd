package workflow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
)

// Phase is a step in a workflow run. Observers see every phase transition in
// order; the final phase is also carried on the returned Run.
type Phase string

const (
	PhaseValidating           Phase = "validating"
	PhaseEncrypting           Phase = "encrypting"
	PhaseSubmitted            Phase = "submitted"
	PhaseConfirming           Phase = "confirming"
	PhaseSucceeded            Phase = "succeeded"
	PhaseAuthorizing          Phase = "authorizing"
	PhaseAwaitingConfirmation Phase = "awaitingConfirmation"
	PhaseDecrypting           Phase = "decrypting"
	PhaseDone                 Phase = "done"
	PhaseFailed               Phase = "failed"
)

// Run is the outcome of one workflow execution. FieldErrors is set only for
// local validation failures, which carry no Err and touch no network.
type Run struct {
	Phase       Phase
	TxHash      common.Hash
	Err         error
	FieldErrors entities.ValidationErrors
	Value       *big.Int
}

// Observer is called on every phase transition. A nil observer is fine.
type Observer func(phase Phase)

func notify(observer Observer, phase Phase) {
	if observer != nil {
		observer(phase)
	}
}

// Awaiter blocks until a submitted transaction reaches a terminal state.
// Satisfied by tracker.Tracker.
type Awaiter interface {
	Await(ctx context.Context, txHash common.Hash) error
}
