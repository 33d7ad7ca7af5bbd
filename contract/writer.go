package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/entities"
)

// TxSender signs and submits one transaction and returns its hash at
// submission time, not at confirmation.
type TxSender interface {
	Send(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error)
}

// Writer packs and submits the contract's mutating calls. Confirmation is the
// tracker's job; every method returns as soon as the transaction is accepted
// by the node.
type Writer struct {
	sender  TxSender
	address common.Address
}

func NewWriter(sender TxSender, address common.Address) *Writer {
	return &Writer{sender: sender, address: address}
}

func (w *Writer) submit(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	calldata, err := tokenABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "packing [%s] call", method)
	}

	txHash, err := w.sender.Send(ctx, w.address, calldata)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: submitting [%s]: %s", entities.ErrChainWriteRejected, method, err)
	}
	return txHash, nil
}

func (w *Writer) Transfer(ctx context.Context, to common.Address, handle entities.EncryptedHandle, proof []byte) (common.Hash, error) {
	return w.submit(ctx, "transfer", to, [32]byte(handle), proof)
}

func (w *Writer) Mint(ctx context.Context, to common.Address, amount uint64) (common.Hash, error) {
	return w.submit(ctx, "mint", to, amount)
}

func (w *Writer) Burn(ctx context.Context, from common.Address, amount uint64) (common.Hash, error) {
	return w.submit(ctx, "burn", from, amount)
}

func (w *Writer) ClaimFaucet(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "claimFaucet")
}

func (w *Writer) SetFaucetSettings(ctx context.Context, amount, cooldown uint64) (common.Hash, error) {
	return w.submit(ctx, "setFaucetSettings", amount, cooldown)
}

func (w *Writer) TransferOwnership(ctx context.Context, newOwner common.Address) (common.Hash, error) {
	if newOwner == (common.Address{}) {
		return common.Hash{}, errors.New("new owner must not be the zero address")
	}
	return w.submit(ctx, "transferOwnership", newOwner)
}

func (w *Writer) MakeBalanceDecryptable(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "makeBalanceDecryptable")
}

func (w *Writer) MakeTotalSupplyDecryptable(ctx context.Context) (common.Hash, error) {
	return w.submit(ctx, "makeTotalSupplyDecryptable")
}
