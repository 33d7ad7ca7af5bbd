package fhe

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var contractAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")
var userAddress = common.HexToAddress("0x2222222222222222222222222222222222222222")

type FakeRuntime struct {
	encryptCalls int
	decryptCalls int
	encryptErr   error
	decryptErr   error
	values       map[entities.EncryptedHandle]*big.Int
}

func (f *FakeRuntime) EncryptUint64(_ context.Context, _, _ common.Address, value uint64) (entities.EncryptedHandle, []byte, error) {
	f.encryptCalls++
	if f.encryptErr != nil {
		return entities.EncryptedHandle{}, nil, f.encryptErr
	}
	return entities.HandleFromBytes([]byte{0x42}), []byte("proof"), nil
}

func (f *FakeRuntime) PublicDecrypt(_ context.Context, handles []entities.EncryptedHandle) (map[entities.EncryptedHandle]*big.Int, error) {
	f.decryptCalls++
	if f.decryptErr != nil {
		return nil, f.decryptErr
	}
	return f.values, nil
}

type FakeFactory struct {
	runtime *FakeRuntime
	err     error
	calls   int
}

func (f *FakeFactory) NewRuntime(_ context.Context, _ string) (Runtime, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.runtime, nil
}

func newTestGateway(factory RuntimeFactory) *Gateway {
	return NewGateway(factory, "test-provider", zap.NewNop().Sugar())
}

func TestGateway_EncryptAmount(t *testing.T) {
	runtime := &FakeRuntime{}
	factory := &FakeFactory{runtime: runtime}
	gateway := newTestGateway(factory)

	input, err := gateway.EncryptAmount(context.Background(), big.NewInt(1_000_000), contractAddress, userAddress)
	require.NoError(t, err)
	assert.False(t, input.Handle.IsZero())
	assert.Equal(t, []byte("proof"), input.Proof)
}

func TestGateway_EncryptAmount_GivenAmountOutOfRange_ThenError(t *testing.T) {
	factory := &FakeFactory{runtime: &FakeRuntime{}}
	gateway := newTestGateway(factory)

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 64) // 2^64
	_, err := gateway.EncryptAmount(context.Background(), tooLarge, contractAddress, userAddress)
	assert.ErrorIs(t, err, entities.ErrAmountOutOfRange)

	_, err = gateway.EncryptAmount(context.Background(), big.NewInt(-1), contractAddress, userAddress)
	assert.ErrorIs(t, err, entities.ErrAmountOutOfRange)

	assert.Zero(t, factory.calls) // no runtime initialization for invalid input
}

func TestGateway_EncryptAmount_GivenFactoryError_ThenEncryptionUnavailable(t *testing.T) {
	factory := &FakeFactory{err: assert.AnError}
	gateway := newTestGateway(factory)

	_, err := gateway.EncryptAmount(context.Background(), big.NewInt(1), contractAddress, userAddress)
	assert.ErrorIs(t, err, entities.ErrEncryptionUnavailable)
}

func TestGateway_EncryptAmount_GivenRuntimeError_ThenEncryptionFailed(t *testing.T) {
	runtime := &FakeRuntime{encryptErr: assert.AnError}
	gateway := newTestGateway(&FakeFactory{runtime: runtime})

	_, err := gateway.EncryptAmount(context.Background(), big.NewInt(1), contractAddress, userAddress)
	assert.ErrorIs(t, err, entities.ErrEncryptionFailed)
}

func TestGateway_EncryptAmount_ReusesRuntime(t *testing.T) {
	factory := &FakeFactory{runtime: &FakeRuntime{}}
	gateway := newTestGateway(factory)

	for i := 0; i < 3; i++ {
		_, err := gateway.EncryptAmount(context.Background(), big.NewInt(1), contractAddress, userAddress)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, factory.calls)
}

func TestGateway_DecryptHandles(t *testing.T) {
	known := entities.HandleFromBytes([]byte{0x01})
	absent := entities.HandleFromBytes([]byte{0x02})
	runtime := &FakeRuntime{values: map[entities.EncryptedHandle]*big.Int{
		known: big.NewInt(1_000_000_000),
	}}
	gateway := newTestGateway(&FakeFactory{runtime: runtime})

	values, err := gateway.DecryptHandles(context.Background(), []entities.EncryptedHandle{known, absent})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), values[known].Int64())
	assert.Equal(t, int64(0), values[absent].Int64()) // absent entries default to zero
}

func TestGateway_DecryptHandles_GivenNoHandles_ThenError(t *testing.T) {
	runtime := &FakeRuntime{}
	gateway := newTestGateway(&FakeFactory{runtime: runtime})

	_, err := gateway.DecryptHandles(context.Background(), nil)
	assert.ErrorIs(t, err, entities.ErrNoHandles)
	assert.Zero(t, runtime.decryptCalls)
}

func TestGateway_DecryptHandles_GivenRuntimeError_ThenDecryptionFailed(t *testing.T) {
	runtime := &FakeRuntime{decryptErr: assert.AnError}
	gateway := newTestGateway(&FakeFactory{runtime: runtime})

	_, err := gateway.DecryptHandles(context.Background(), []entities.EncryptedHandle{entities.HandleFromBytes([]byte{0x01})})
	assert.ErrorIs(t, err, entities.ErrDecryptionFailed)
}
