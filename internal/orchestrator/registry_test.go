package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesViews(t *testing.T) {
	log := &callLog{}
	reg := NewRegistry(&fakeGateway{log: log}, &fakeChain{log: log}, Options{})

	a, err := reg.View(7)
	require.NoError(t, err)
	b, err := reg.View(7)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = reg.View(3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, reg.IDs())

	_, err = reg.View(0)
	assert.ErrorIs(t, err, models.ErrInvalidDealID)
}

func TestRegistryReset(t *testing.T) {
	log := &callLog{}
	reg := NewRegistry(&fakeGateway{log: log}, &fakeChain{log: log}, Options{})

	before, err := reg.View(7)
	require.NoError(t, err)

	reg.Reset()
	assert.Empty(t, reg.IDs())

	after, err := reg.View(7)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Empty(t, log.all())
}

func TestRegistryResetKeepsActionLock(t *testing.T) {
	log := &callLog{}
	gw := &fakeGateway{log: log, deals: []*models.Deal{newDeal(4, "10", models.DealStatusCreated)}}
	chain := &fakeChain{log: log, approveBlock: make(chan struct{})}
	reg := NewRegistry(gw, chain, Options{})
	ctx := context.Background()

	before, err := reg.View(4)
	require.NoError(t, err)
	require.NoError(t, before.EnsureLoaded(ctx))

	done := make(chan error, 1)
	go func() { done <- before.Fund(ctx) }()
	require.Eventually(t, func() bool {
		return log.count("approve.wait") == 1
	}, time.Second, time.Millisecond)

	reg.Reset()
	after, err := reg.View(4)
	require.NoError(t, err)
	require.NotSame(t, before, after)

	require.NoError(t, after.EnsureLoaded(ctx))
	assert.ErrorIs(t, after.Fund(ctx), ErrBusy)
	assert.ErrorIs(t, after.AdminRelease(ctx), ErrBusy)
	assert.Equal(t, 1, log.count("approve"))
	assert.Zero(t, log.count("adminRelease"))

	close(chain.approveBlock)
	require.NoError(t, <-done)

	require.NoError(t, after.AdminRelease(ctx))
	assert.Equal(t, 1, log.count("adminRelease"))
}
