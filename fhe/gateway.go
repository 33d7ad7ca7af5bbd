package fhe

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"go.uber.org/zap"
)

// Runtime is the off-chain encryption/decryption service. It is remote,
// possibly slow and possibly unavailable; no retries are done here.
type Runtime interface {
	EncryptUint64(ctx context.Context, contract, user common.Address, value uint64) (entities.EncryptedHandle, []byte, error)
	PublicDecrypt(ctx context.Context, handles []entities.EncryptedHandle) (map[entities.EncryptedHandle]*big.Int, error)
}

// RuntimeFactory initializes a Runtime for one wallet provider.
type RuntimeFactory interface {
	NewRuntime(ctx context.Context, provider string) (Runtime, error)
}

// EncryptedInput is a ciphertext handle plus the zero knowledge proof that the
// chain verifies on submission.
type EncryptedInput struct {
	Handle entities.EncryptedHandle
	Proof  []byte
}

// Gateway wraps the FHE runtime. The runtime handle is initialized lazily,
// keyed by the active wallet provider, and reused across calls. The gateway
// never mutates on-chain state.
type Gateway struct {
	factory  RuntimeFactory
	provider string
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	runtime Runtime
}

func NewGateway(factory RuntimeFactory, provider string, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{
		factory:  factory,
		provider: provider,
		logger:   logger,
	}
}

func (g *Gateway) instance(ctx context.Context) (Runtime, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime != nil {
		return g.runtime, nil
	}

	runtime, err := g.factory.NewRuntime(ctx, g.provider)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing runtime for provider [%s]: %s", entities.ErrEncryptionUnavailable, g.provider, err)
	}
	g.logger.Infow("Initialized encryption runtime", "provider", g.provider)
	g.runtime = runtime
	return runtime, nil
}

// EncryptAmount produces an encrypted handle and input proof for one plaintext
// amount, bound to the contract and user addresses.
func (g *Gateway) EncryptAmount(ctx context.Context, amount *big.Int, contract, user common.Address) (*EncryptedInput, error) {
	if amount == nil || amount.Sign() < 0 || !amount.IsUint64() {
		return nil, entities.ErrAmountOutOfRange
	}

	runtime, err := g.instance(ctx)
	if err != nil {
		return nil, err
	}

	handle, proof, err := runtime.EncryptUint64(ctx, contract, user, amount.Uint64())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrEncryptionFailed, err)
	}
	return &EncryptedInput{Handle: handle, Proof: proof}, nil
}

// DecryptHandles resolves ciphertext handles to cleartext values via public
// decryption. Handles absent from the runtime response default to zero.
func (g *Gateway) DecryptHandles(ctx context.Context, handles []entities.EncryptedHandle) (map[entities.EncryptedHandle]*big.Int, error) {
	if len(handles) == 0 {
		return nil, entities.ErrNoHandles
	}

	runtime, err := g.instance(ctx)
	if err != nil {
		return nil, err
	}

	decrypted, err := runtime.PublicDecrypt(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrDecryptionFailed, err)
	}

	values := make(map[entities.EncryptedHandle]*big.Int, len(handles))
	for _, handle := range handles {
		value, ok := decrypted[handle]
		if !ok || value == nil {
			value = big.NewInt(0)
		}
		values[handle] = value
	}
	return values, nil
}
