package auth_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/schoolmed/go-authclient"
)

func TestActivitySignalRefreshesAtMostOncePerWindow(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore(), auth.WithSessionClock(clock.Now))
	monitor := auth.NewActivityMonitor(manager,
		auth.WithActivityClock(clock.Now),
		auth.WithActivityThrottle(5*time.Minute),
	)

	require.NoError(t, manager.Login(context.Background(), parentLogin().Principal, "token-1"))
	monitor.Attach()

	issuedAt := func() time.Time {
		record, ok := manager.Current()
		require.True(t, ok)
		return record.IssuedAt
	}
	first := issuedAt()

	// Inside the throttle window: signals do not refresh.
	clock.Advance(2 * time.Minute)
	monitor.Signal(auth.InteractionPointer)
	monitor.Signal(auth.InteractionKey)
	assert.Equal(t, first, issuedAt())

	// Past the window: exactly one refresh, then throttled again.
	clock.Advance(4 * time.Minute)
	monitor.Signal(auth.InteractionScroll)
	second := issuedAt()
	assert.True(t, second.After(first))

	monitor.Signal(auth.InteractionScroll)
	assert.Equal(t, second, issuedAt())
}

func TestActivityMonitorInactiveWithoutSession(t *testing.T) {
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore())
	monitor := auth.NewActivityMonitor(manager)

	monitor.Attach()
	assert.False(t, monitor.Attached())

	monitor.Signal(auth.InteractionPointer)
	assert.False(t, manager.Authenticated())
}

func TestActivityMonitorDetachesAfterLogout(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore(), auth.WithSessionClock(clock.Now))
	monitor := auth.NewActivityMonitor(manager, auth.WithActivityClock(clock.Now))

	require.NoError(t, manager.Login(context.Background(), parentLogin().Principal, "token-1"))
	monitor.Attach()
	require.True(t, monitor.Attached())

	manager.Logout(context.Background())
	monitor.Signal(auth.InteractionPointer)
	assert.False(t, monitor.Attached())
}

func TestActivityMonitorDetachesOnExpiry(t *testing.T) {
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore(),
		auth.WithSessionTTL(100*time.Millisecond),
		auth.WithWarningThreshold(50*time.Millisecond),
	)
	monitor := auth.NewActivityMonitor(manager)

	var expired atomic.Int32
	manager.OnExpired(func() { expired.Add(1) })

	require.NoError(t, manager.Login(context.Background(), parentLogin().Principal, "token-1"))
	monitor.Attach()
	require.True(t, monitor.Attached())

	assert.Eventually(t, func() bool { return expired.Load() == 1 },
		time.Second, 10*time.Millisecond)
	assert.False(t, monitor.Attached())
}
