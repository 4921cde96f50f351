package auth

import (
	"context"
	"sync"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventLogout           ActivityEventType = "auth.logout"
	ActivityEventSessionRefreshed ActivityEventType = "auth.session.refreshed"
	ActivityEventSessionExpired   ActivityEventType = "auth.session.expired"
	ActivityEventOTPSent          ActivityEventType = "auth.otp.sent"
	ActivityEventOTPSendFailed    ActivityEventType = "auth.otp.send_failed"
	ActivityEventOTPVerified      ActivityEventType = "auth.otp.verified"
	ActivityEventOTPRejected      ActivityEventType = "auth.otp.rejected"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Principal  string
	Provider   ProviderKind
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// InteractionKind enumerates the user interaction signals that count as
// session activity.
type InteractionKind string

const (
	InteractionPointer    InteractionKind = "pointer"
	InteractionKey        InteractionKind = "key"
	InteractionScroll     InteractionKind = "scroll"
	InteractionTouch      InteractionKind = "touch"
	InteractionNavigation InteractionKind = "navigation"
)

// ActivityThrottle is the minimum interval between interaction-driven
// session refreshes. Refresh stays cheap relative to interaction frequency
// while active sessions still extend indefinitely.
const ActivityThrottle = 5 * time.Minute

// ActivityMonitor folds interaction signals into session refreshes. It is
// only active between Attach and Detach, and detaches itself when the
// session expires so no listener outlives the session.
type ActivityMonitor struct {
	mu            sync.Mutex
	session       *SessionManager
	throttle      time.Duration
	now           func() time.Time
	logger        Logger
	attached      bool
	lastRefreshAt time.Time
}

// ActivityMonitorOption customizes monitor construction.
type ActivityMonitorOption func(*ActivityMonitor)

// WithActivityThrottle overrides the refresh throttle (useful for tests).
func WithActivityThrottle(d time.Duration) ActivityMonitorOption {
	return func(m *ActivityMonitor) {
		if d > 0 {
			m.throttle = d
		}
	}
}

// WithActivityClock injects a custom clock (useful for tests).
func WithActivityClock(clock func() time.Time) ActivityMonitorOption {
	return func(m *ActivityMonitor) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithActivityLogger overrides the monitor logger.
func WithActivityLogger(logger Logger) ActivityMonitorOption {
	return func(m *ActivityMonitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewActivityMonitor builds a monitor bound to the given session manager.
func NewActivityMonitor(session *SessionManager, opts ...ActivityMonitorOption) *ActivityMonitor {
	m := &ActivityMonitor{
		session:  session,
		throttle: ActivityThrottle,
		now:      time.Now,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	session.OnExpired(m.Detach)
	return m
}

// Attach starts counting interaction signals. It is a no-op without an
// active session.
func (m *ActivityMonitor) Attach() {
	if !m.session.Authenticated() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = true
	m.lastRefreshAt = m.now()
}

// Detach stops listening. Idempotent.
func (m *ActivityMonitor) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = false
}

// Attached reports whether the monitor is currently listening.
func (m *ActivityMonitor) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// Signal records one user interaction. At most one session refresh is
// issued per throttle window.
func (m *ActivityMonitor) Signal(kind InteractionKind) {
	m.mu.Lock()
	if !m.attached {
		m.mu.Unlock()
		return
	}
	if !m.session.Authenticated() {
		m.attached = false
		m.mu.Unlock()
		return
	}

	now := m.now()
	if now.Sub(m.lastRefreshAt) <= m.throttle {
		m.mu.Unlock()
		return
	}
	m.lastRefreshAt = now
	m.mu.Unlock()

	m.logger.Debug("activity monitor refreshing session after %s signal", kind)
	m.session.Refresh()
}
