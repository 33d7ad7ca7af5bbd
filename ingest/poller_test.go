package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeStatusSource struct {
	mu            sync.Mutex
	owner         common.Address
	ownerErr      error
	cooldownCalls int
}

func (f *FakeStatusSource) Owner(_ context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownerErr != nil {
		return common.Address{}, f.ownerErr
	}
	return f.owner, nil
}

func (f *FakeStatusSource) TimeUntilNextClaim(_ context.Context, _ common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cooldownCalls++
	return 0, nil
}

func (f *FakeStatusSource) SetOwner(owner common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner = owner
}

type FakeOwnerState struct {
	mu    sync.Mutex
	owner bool
	set   bool
}

func (f *FakeOwnerState) SetOwner(owner bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner = owner
	f.set = true
}

func (f *FakeOwnerState) Owner() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner, f.set
}

func TestStatusPoller_GivenWalletIsOwner_ThenFlagSet(t *testing.T) {
	source := &FakeStatusSource{owner: walletAddress}
	state := &FakeOwnerState{}
	poller := NewStatusPoller(source, state, walletAddress, zap.NewNop().Sugar(), time.Millisecond)

	poller.refresh(context.Background())

	owner, set := state.Owner()
	require.True(t, set)
	assert.True(t, owner)
	assert.Equal(t, 1, source.cooldownCalls)
}

func TestStatusPoller_GivenWalletIsNotOwner_ThenFlagCleared(t *testing.T) {
	source := &FakeStatusSource{owner: otherAddress}
	state := &FakeOwnerState{}
	poller := NewStatusPoller(source, state, walletAddress, zap.NewNop().Sugar(), time.Millisecond)

	poller.refresh(context.Background())

	owner, set := state.Owner()
	require.True(t, set)
	assert.False(t, owner)
}

func TestStatusPoller_GivenOwnerReadError_ThenFlagUntouched(t *testing.T) {
	source := &FakeStatusSource{ownerErr: assert.AnError}
	state := &FakeOwnerState{}
	poller := NewStatusPoller(source, state, walletAddress, zap.NewNop().Sugar(), time.Millisecond)

	poller.refresh(context.Background())

	_, set := state.Owner()
	assert.False(t, set)
}

func TestStatusPoller_Run_RefreshesOnInterval(t *testing.T) {
	source := &FakeStatusSource{owner: otherAddress}
	state := &FakeOwnerState{}
	poller := NewStatusPoller(source, state, walletAddress, zap.NewNop().Sugar(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, set := state.Owner()
		return set
	}, time.Second, time.Millisecond)

	source.SetOwner(walletAddress)
	require.Eventually(t, func() bool {
		owner, _ := state.Owner()
		return owner
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
