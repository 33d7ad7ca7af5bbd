package contract

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Backend is the narrow node surface needed to submit a transaction.
// Satisfied by ethclient.Client.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeyedSender signs transactions with a local private key. Submissions are
// serialized so that concurrent workflows do not race on the account nonce.
type KeyedSender struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	signer  types.Signer

	mu sync.Mutex
}

func NewKeyedSender(backend Backend, hexKey string, chainID *big.Int) (*KeyedSender, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "parsing private key")
	}
	return &KeyedSender{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

func (s *KeyedSender) From() common.Address {
	return s.from
}

func (s *KeyedSender) Send(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "getting pending nonce")
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "getting gas price")
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: calldata})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "estimating gas")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas + gas/5, // headroom for encrypted ops with data dependent cost
		GasPrice: gasPrice,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "signing transaction")
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.Wrap(err, "sending transaction")
	}
	return signed.Hash(), nil
}
