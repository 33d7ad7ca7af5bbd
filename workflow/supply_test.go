package workflow

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

type FakeSupplySource struct {
	handle entities.EncryptedHandle
	err    error
}

func (f *FakeSupplySource) TotalSupplyHandle(_ context.Context) (entities.EncryptedHandle, error) {
	if f.err != nil {
		return entities.EncryptedHandle{}, f.err
	}
	return f.handle, nil
}

type FakeSupplyAuthorizer struct {
	err   error
	calls int
}

func (f *FakeSupplyAuthorizer) MakeTotalSupplyDecryptable(_ context.Context) (common.Hash, error) {
	f.calls++
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0xfed"), nil
}

func TestSupplyDecryption_GivenZeroHandle_ThenZeroWithoutChainOrRuntime(t *testing.T) {
	authorizer := &FakeSupplyAuthorizer{}
	decryptor := &FakeHandleDecryptor{}
	decryption := NewSupplyDecryption(&FakeSupplySource{}, decryptor, authorizer, &FakeAwaiter{}, zap.NewNop().Sugar(), m)

	run := decryption.Execute(context.Background(), nil)

	assert.Equal(t, PhaseDone, run.Phase)
	assert.Zero(t, run.Value.Sign())
	assert.Zero(t, authorizer.calls)
	assert.Zero(t, decryptor.calls)
}

func TestSupplyDecryption_GivenNonZeroHandle_ThenFullLifecycle(t *testing.T) {
	handle := entities.HandleFromBytes([]byte{0x09})
	source := &FakeSupplySource{handle: handle}
	decryptor := &FakeHandleDecryptor{values: map[entities.EncryptedHandle]*big.Int{handle: big.NewInt(5_000_000_000)}}
	decryption := NewSupplyDecryption(source, decryptor, &FakeSupplyAuthorizer{}, &FakeAwaiter{}, zap.NewNop().Sugar(), m)

	var phases []Phase
	run := decryption.Execute(context.Background(), recordPhases(&phases))

	require.Equal(t, PhaseDone, run.Phase)
	assert.Equal(t, int64(5_000_000_000), run.Value.Int64())
	assert.Equal(t, []Phase{PhaseAuthorizing, PhaseAwaitingConfirmation, PhaseDecrypting, PhaseDone}, phases)
}

func TestSupplyDecryption_GivenChainFailure_ThenFailed(t *testing.T) {
	source := &FakeSupplySource{handle: entities.HandleFromBytes([]byte{0x09})}
	decryptor := &FakeHandleDecryptor{}
	awaiter := &FakeAwaiter{err: entities.ErrChainWriteFailed}
	decryption := NewSupplyDecryption(source, decryptor, &FakeSupplyAuthorizer{}, awaiter, zap.NewNop().Sugar(), m)

	run := decryption.Execute(context.Background(), nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.ErrorIs(t, run.Err, entities.ErrChainWriteFailed)
	assert.Zero(t, decryptor.calls)
}
