package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/entities"
)

// Caller executes read-only contract calls. Satisfied by ethclient.Client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type TokenInfo struct {
	Name     string
	Symbol   string
	Decimals uint8
}

type FaucetSettings struct {
	Amount   uint64
	Cooldown uint64
}

// Reader provides point-in-time snapshots of the contract's read surface. It
// does no caching; see CachedReader for the read-through cache layer.
type Reader struct {
	caller  Caller
	address common.Address
}

func NewReader(caller Caller, address common.Address) *Reader {
	return &Reader{caller: caller, address: address}
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "packing [%s] call", method)
	}

	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "calling [%s]", method)
	}

	values, err := tokenABI.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "unpacking [%s] result", method)
	}
	return values, nil
}

func (r *Reader) BalanceHandle(ctx context.Context, account common.Address) (entities.EncryptedHandle, error) {
	values, err := r.call(ctx, "encryptedBalanceOf", account)
	if err != nil {
		return entities.EncryptedHandle{}, err
	}
	return entities.EncryptedHandle(values[0].([32]byte)), nil
}

func (r *Reader) TotalSupplyHandle(ctx context.Context) (entities.EncryptedHandle, error) {
	values, err := r.call(ctx, "encryptedTotalSupply")
	if err != nil {
		return entities.EncryptedHandle{}, err
	}
	return entities.EncryptedHandle(values[0].([32]byte)), nil
}

func (r *Reader) Owner(ctx context.Context) (common.Address, error) {
	values, err := r.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

func (r *Reader) FaucetSettings(ctx context.Context) (FaucetSettings, error) {
	amountValues, err := r.call(ctx, "faucetAmount")
	if err != nil {
		return FaucetSettings{}, err
	}
	cooldownValues, err := r.call(ctx, "faucetCooldown")
	if err != nil {
		return FaucetSettings{}, err
	}
	return FaucetSettings{
		Amount:   amountValues[0].(uint64),
		Cooldown: cooldownValues[0].(uint64),
	}, nil
}

// TimeUntilNextClaim returns the remaining faucet cooldown in seconds.
func (r *Reader) TimeUntilNextClaim(ctx context.Context, account common.Address) (uint64, error) {
	values, err := r.call(ctx, "timeUntilNextClaim", account)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

func (r *Reader) TokenInfo(ctx context.Context) (TokenInfo, error) {
	nameValues, err := r.call(ctx, "name")
	if err != nil {
		return TokenInfo{}, err
	}
	symbolValues, err := r.call(ctx, "symbol")
	if err != nil {
		return TokenInfo{}, err
	}
	decimalsValues, err := r.call(ctx, "decimals")
	if err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{
		Name:     nameValues[0].(string),
		Symbol:   symbolValues[0].(string),
		Decimals: decimalsValues[0].(uint8),
	}, nil
}
