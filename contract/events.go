package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shadowmint/go-token-client/entities"
)

var transferTopic = tokenABI.Events["Transfer"].ID
var mintTopic = tokenABI.Events["Mint"].ID
var burnTopic = tokenABI.Events["Burn"].ID
var faucetClaimedTopic = tokenABI.Events["FaucetClaimed"].ID

// EventTopics returns the topic set of all token events, for one combined
// log filter/subscription.
func EventTopics() []common.Hash {
	return []common.Hash{transferTopic, mintTopic, burnTopic, faucetClaimedTopic}
}

// TransferTopic is exported for account scoped backfill queries.
func TransferTopic() common.Hash {
	return transferTopic
}

func FaucetClaimedTopic() common.Hash {
	return faucetClaimedTopic
}

// ParseLog converts a raw contract log into a timeline event. Returns false
// for logs that are not token events or cannot be decoded. Transfer events
// carry no amount: the transferred value stays encrypted.
func ParseLog(lg types.Log, observedAt int64) (entities.TransactionEvent, bool) {
	if len(lg.Topics) == 0 {
		return entities.TransactionEvent{}, false
	}

	event := entities.TransactionEvent{
		ObservedAt:  observedAt,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
	}

	switch lg.Topics[0] {
	case transferTopic:
		if len(lg.Topics) < 3 {
			return entities.TransactionEvent{}, false
		}
		event.Kind = entities.EventTransfer
		event.From = common.BytesToAddress(lg.Topics[1].Bytes())
		event.To = common.BytesToAddress(lg.Topics[2].Bytes())
	case mintTopic:
		if len(lg.Topics) < 2 {
			return entities.TransactionEvent{}, false
		}
		event.Kind = entities.EventMint
		event.To = common.BytesToAddress(lg.Topics[1].Bytes())
		amount, ok := unpackAmount("Mint", lg.Data)
		if !ok {
			return entities.TransactionEvent{}, false
		}
		event.Amount = amount
	case burnTopic:
		if len(lg.Topics) < 2 {
			return entities.TransactionEvent{}, false
		}
		event.Kind = entities.EventBurn
		event.From = common.BytesToAddress(lg.Topics[1].Bytes())
		amount, ok := unpackAmount("Burn", lg.Data)
		if !ok {
			return entities.TransactionEvent{}, false
		}
		event.Amount = amount
	case faucetClaimedTopic:
		if len(lg.Topics) < 2 {
			return entities.TransactionEvent{}, false
		}
		event.Kind = entities.EventFaucet
		event.To = common.BytesToAddress(lg.Topics[1].Bytes())
		amount, ok := unpackAmount("FaucetClaimed", lg.Data)
		if !ok {
			return entities.TransactionEvent{}, false
		}
		event.Amount = amount
	default:
		return entities.TransactionEvent{}, false
	}

	event.ID = fmt.Sprintf("%s-%s-%d", event.Kind, lg.TxHash.Hex(), lg.BlockNumber)
	return event, true
}

func unpackAmount(eventName string, data []byte) (*big.Int, bool) {
	values, err := tokenABI.Unpack(eventName, data)
	if err != nil || len(values) == 0 {
		return nil, false
	}
	amount, ok := values[0].(uint64)
	if !ok {
		return nil, false
	}
	return new(big.Int).SetUint64(amount), true
}
