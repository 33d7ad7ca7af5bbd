package workflow

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeOpsWriter struct {
	mintTo       common.Address
	mintAmount   uint64
	burnFrom     common.Address
	burnAmount   uint64
	faucetAmount uint64
	cooldown     uint64
	newOwner     common.Address
	err          error
	calls        int
}

func (f *FakeOpsWriter) submit() (common.Hash, error) {
	f.calls++
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0xabc"), nil
}

func (f *FakeOpsWriter) ClaimFaucet(_ context.Context) (common.Hash, error) {
	return f.submit()
}

func (f *FakeOpsWriter) Mint(_ context.Context, to common.Address, amount uint64) (common.Hash, error) {
	f.mintTo = to
	f.mintAmount = amount
	return f.submit()
}

func (f *FakeOpsWriter) Burn(_ context.Context, from common.Address, amount uint64) (common.Hash, error) {
	f.burnFrom = from
	f.burnAmount = amount
	return f.submit()
}

func (f *FakeOpsWriter) SetFaucetSettings(_ context.Context, amount, cooldown uint64) (common.Hash, error) {
	f.faucetAmount = amount
	f.cooldown = cooldown
	return f.submit()
}

func (f *FakeOpsWriter) TransferOwnership(_ context.Context, newOwner common.Address) (common.Hash, error) {
	f.newOwner = newOwner
	return f.submit()
}

func newTestOps(writer *FakeOpsWriter, awaiter *FakeAwaiter, cache *FakeCache, store *FakeState) *Ops {
	return NewOps(writer, awaiter, cache, store, walletAddress, zap.NewNop().Sugar(), m)
}

func TestOps_ClaimFaucet_InvalidatesBalanceAndCooldown(t *testing.T) {
	writer := &FakeOpsWriter{}
	cache := &FakeCache{}
	store := NewFakeState()
	ops := newTestOps(writer, &FakeAwaiter{}, cache, store)

	var phases []Phase
	run := ops.ClaimFaucet(context.Background(), recordPhases(&phases))

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.Equal(t, []Phase{PhaseSubmitted, PhaseConfirming, PhaseSucceeded}, phases)
	assert.Equal(t, []common.Address{walletAddress}, cache.invalidatedBalances)
	assert.Equal(t, []common.Address{walletAddress}, cache.invalidatedCooldowns)
	assert.Equal(t, []common.Address{walletAddress}, store.cleared)
}

func TestOps_ClaimFaucet_GivenRejected_ThenNoInvalidation(t *testing.T) {
	writer := &FakeOpsWriter{err: entities.ErrChainWriteRejected}
	cache := &FakeCache{}
	ops := newTestOps(writer, &FakeAwaiter{}, cache, NewFakeState())

	run := ops.ClaimFaucet(context.Background(), nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.ErrorIs(t, run.Err, entities.ErrChainWriteRejected)
	assert.Empty(t, cache.invalidatedBalances)
	assert.Empty(t, cache.invalidatedCooldowns)
}

func TestOps_Mint_GivenNotOwner_ThenRejectedLocally(t *testing.T) {
	writer := &FakeOpsWriter{}
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, NewFakeState())

	run := ops.Mint(context.Background(), MintRequest{Account: otherAddress.Hex(), Amount: "1"}, nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.ErrorIs(t, run.Err, entities.ErrNotOwner)
	assert.Zero(t, writer.calls)
}

func TestOps_Mint_GivenOwner_ThenMintsAtomicAmount(t *testing.T) {
	writer := &FakeOpsWriter{}
	cache := &FakeCache{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, cache, store)

	run := ops.Mint(context.Background(), MintRequest{Account: otherAddress.Hex(), Amount: "1.5"}, nil)

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.Equal(t, otherAddress, writer.mintTo)
	assert.Equal(t, uint64(1_500_000), writer.mintAmount)
	assert.Equal(t, []common.Address{otherAddress}, cache.invalidatedBalances)
	assert.Equal(t, []common.Address{otherAddress}, store.cleared)
}

func TestOps_Mint_GivenInvalidRequest_ThenFieldErrors(t *testing.T) {
	writer := &FakeOpsWriter{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, store)

	run := ops.Mint(context.Background(), MintRequest{Account: "bogus", Amount: "-3"}, nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.NoError(t, run.Err)
	assert.True(t, run.FieldErrors.Has("account"))
	assert.True(t, run.FieldErrors.Has("amount"))
	assert.Zero(t, writer.calls)
}

func TestOps_Burn_GivenOwner_ThenBurnsFromAccount(t *testing.T) {
	writer := &FakeOpsWriter{}
	cache := &FakeCache{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, cache, store)

	run := ops.Burn(context.Background(), BurnRequest{Account: otherAddress.Hex(), Amount: "0.25"}, nil)

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.Equal(t, otherAddress, writer.burnFrom)
	assert.Equal(t, uint64(250_000), writer.burnAmount)
	assert.Equal(t, []common.Address{otherAddress}, cache.invalidatedBalances)
}

func TestOps_UpdateFaucetSettings_InvalidatesSettingsAndCooldown(t *testing.T) {
	writer := &FakeOpsWriter{}
	cache := &FakeCache{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, cache, store)

	run := ops.UpdateFaucetSettings(context.Background(), FaucetSettingsRequest{
		Amount:          "1000",
		CooldownSeconds: "86400",
	}, nil)

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.Equal(t, uint64(1_000_000_000), writer.faucetAmount)
	assert.Equal(t, uint64(86400), writer.cooldown)
	assert.Equal(t, 1, cache.invalidatedSettings)
	assert.Equal(t, []common.Address{walletAddress}, cache.invalidatedCooldowns)
}

func TestOps_UpdateFaucetSettings_GivenBadCooldown_ThenFieldError(t *testing.T) {
	writer := &FakeOpsWriter{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, store)

	run := ops.UpdateFaucetSettings(context.Background(), FaucetSettingsRequest{
		Amount:          "1000",
		CooldownSeconds: "soon",
	}, nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.True(t, run.FieldErrors.Has("cooldownSeconds"))
	assert.Zero(t, writer.calls)
}

func TestOps_TransferOwnership_GivenOtherAccount_ThenOwnerFlagDropped(t *testing.T) {
	writer := &FakeOpsWriter{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, store)

	run := ops.TransferOwnership(context.Background(), otherAddress.Hex(), nil)

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.Equal(t, otherAddress, writer.newOwner)
	assert.False(t, store.IsOwner())
}

func TestOps_TransferOwnership_GivenSelf_ThenOwnerFlagKept(t *testing.T) {
	writer := &FakeOpsWriter{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, store)

	run := ops.TransferOwnership(context.Background(), walletAddress.Hex(), nil)

	assert.Equal(t, PhaseSucceeded, run.Phase)
	assert.True(t, store.IsOwner())
}

func TestOps_TransferOwnership_GivenZeroAddress_ThenFieldError(t *testing.T) {
	writer := &FakeOpsWriter{}
	store := NewFakeState()
	store.SetOwner(true)
	ops := newTestOps(writer, &FakeAwaiter{}, &FakeCache{}, store)

	run := ops.TransferOwnership(context.Background(), "0x0000000000000000000000000000000000000000", nil)

	require.True(t, run.FieldErrors.Has("newOwner"))
	assert.Zero(t, writer.calls)
}

func TestOps_GivenChainFailure_ThenFailedWithoutInvalidation(t *testing.T) {
	writer := &FakeOpsWriter{}
	cache := &FakeCache{}
	store := NewFakeState()
	store.SetOwner(true)
	awaiter := &FakeAwaiter{err: entities.ErrChainWriteFailed}
	ops := newTestOps(writer, awaiter, cache, store)

	run := ops.Mint(context.Background(), MintRequest{Account: otherAddress.Hex(), Amount: "1"}, nil)

	assert.Equal(t, PhaseFailed, run.Phase)
	assert.ErrorIs(t, run.Err, entities.ErrChainWriteFailed)
	assert.Empty(t, cache.invalidatedBalances)
}
