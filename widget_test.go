package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/schoolmed/go-authclient"
)

func newTestWidgetController(host *stubWidgetHost) *auth.WidgetController {
	return auth.NewWidgetController(host, auth.WithSettleDelay(0))
}

func TestAcquireNeverLeavesTwoLiveWidgets(t *testing.T) {
	host := &stubWidgetHost{}
	controller := newTestWidgetController(host)

	first, err := controller.Acquire(context.Background())
	require.NoError(t, err)

	second, err := controller.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, host.liveCount())
	assert.Equal(t, 2, host.created())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestAcquireSurvivesResendSpam(t *testing.T) {
	host := &stubWidgetHost{}
	controller := newTestWidgetController(host)

	for i := 0; i < 10; i++ {
		_, err := controller.Acquire(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, host.liveCount())
}

func TestStaleHandleRefusesToSolve(t *testing.T) {
	host := &stubWidgetHost{}
	controller := newTestWidgetController(host)

	first, err := controller.Acquire(context.Background())
	require.NoError(t, err)

	second, err := controller.Acquire(context.Background())
	require.NoError(t, err)

	_, err = first.Solve(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeWidgetUnavailable, auth.TaxonomyCode(err))

	token, err := second.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "widget-token", token)
}

func TestReleaseIsIdempotentAndClearsResidue(t *testing.T) {
	host := &stubWidgetHost{}
	controller := newTestWidgetController(host)

	_, err := controller.Acquire(context.Background())
	require.NoError(t, err)

	controller.Release()
	controller.Release()

	assert.False(t, controller.Live())
	assert.Equal(t, 0, host.liveCount())
	assert.Equal(t, 1, host.cleanups)
}

func TestAcquireSwallowsDestroyErrors(t *testing.T) {
	host := &stubWidgetHost{}
	controller := newTestWidgetController(host)

	_, err := controller.Acquire(context.Background())
	require.NoError(t, err)
	host.instances[0].destroyErr = errors.New("teardown exploded")

	handle, err := controller.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, controller.Live())

	token, err := handle.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "widget-token", token)
}

func TestAcquireReportsHostFailure(t *testing.T) {
	host := &stubWidgetHost{createErr: errors.New("mount point missing")}
	controller := newTestWidgetController(host)

	_, err := controller.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeWidgetUnavailable, auth.TaxonomyCode(err))
	assert.False(t, controller.Live())
}
