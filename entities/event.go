package entities

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventMint     EventKind = "mint"
	EventBurn     EventKind = "burn"
	EventTransfer EventKind = "transfer"
	EventFaucet   EventKind = "faucet"
)

// TransactionEvent is one immutable entry of the recent activity timeline.
// Amount is nil for transfers: transfer amounts stay encrypted and are never
// known client side.
type TransactionEvent struct {
	ID          string
	Kind        EventKind
	From        common.Address
	To          common.Address
	Amount      *big.Int
	ObservedAt  int64 // unix milliseconds
	TxHash      common.Hash
	BlockNumber uint64
}

// DedupKey identifies an event for deduplication. Backfilled and live
// occurrences of the same transaction share the same key.
func (e TransactionEvent) DedupKey() string {
	return fmt.Sprintf("%s-%s", e.Kind, e.TxHash.Hex())
}
