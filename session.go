package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// SessionTTL is how long a session lives without a refresh.
	SessionTTL = 30 * time.Minute

	// ExpiryWarningThreshold is the remaining time at which the expiry
	// warning fires.
	ExpiryWarningThreshold = 5 * time.Minute
)

// SessionManager owns the authoritative session record and its timers. All
// session mutation funnels through its methods; consumers only read.
type SessionManager struct {
	mu     sync.Mutex
	store  TokenStore
	logger Logger
	sink   ActivitySink
	now    func() time.Time

	ttl    time.Duration
	warnAt time.Duration

	current      *SessionRecord
	expiryTimer  *time.Timer
	warningTimer *time.Timer
	warningFired bool

	onWarning []func()
	onExpired []func()
}

// SessionOption customizes session manager construction.
type SessionOption func(*SessionManager)

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithSessionTTL overrides the session TTL.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithWarningThreshold overrides the remaining time at which the expiry
// warning fires.
func WithWarningThreshold(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.warnAt = d
		}
	}
}

// WithSessionLogger overrides the manager logger.
func WithSessionLogger(logger Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSessionActivitySink sets the ActivitySink used to publish lifecycle
// events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(m *SessionManager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// NewSessionManager builds a manager backed by the given store.
func NewSessionManager(store TokenStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:  store,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
		ttl:    SessionTTL,
		warnAt: ExpiryWarningThreshold,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Login starts a fresh session for the principal. The token must be
// non-empty; given valid input it always succeeds.
func (m *SessionManager) Login(ctx context.Context, principal Principal, token string) error {
	if token == "" {
		return goerrors.New("session token must not be empty", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInvalidCredentials)
	}

	m.mu.Lock()
	now := m.now()
	m.current = &SessionRecord{
		Token:     token,
		Principal: principal,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.warningFired = false
	m.persistLocked(ctx)
	m.scheduleLocked(m.ttl)
	record := *m.current
	m.mu.Unlock()

	m.logger.Info("session started for %s (%s), expires %s",
		record.Principal.Label(), record.Principal.Role, record.ExpiresAt.Format(time.RFC1123))
	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Principal:  record.Principal.ID,
		OccurredAt: record.IssuedAt,
	})
	return nil
}

// Logout clears the session and cancels all timers. Safe to call with no
// active session.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	had := m.current != nil
	var principalID string
	if had {
		principalID = m.current.Principal.ID
	}
	m.current = nil
	m.warningFired = false
	m.cancelTimersLocked()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session store: %v", err)
	}
	m.mu.Unlock()

	if had {
		m.logger.Info("session ended for %s", principalID)
		m.record(ctx, ActivityEvent{
			EventType:  ActivityEventLogout,
			Principal:  principalID,
			OccurredAt: m.now(),
		})
	}
}

// Refresh restamps the session with a full TTL, keeping principal and token
// untouched. No-op without an active session. The expiry warning re-arms.
func (m *SessionManager) Refresh() {
	ctx := context.Background()

	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	now := m.now()
	m.current.IssuedAt = now
	m.current.ExpiresAt = now.Add(m.ttl)
	m.warningFired = false
	m.persistLocked(ctx)
	m.scheduleLocked(m.ttl)
	principalID := m.current.Principal.ID
	m.mu.Unlock()

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventSessionRefreshed,
		Principal:  principalID,
		OccurredAt: now,
	})
}

// Resume restores a persisted session, keeping only its remaining time so a
// restart never grants extra TTL. Malformed or expired persisted state is
// cleared and treated as "no session"; Resume never surfaces it as an
// error.
func (m *SessionManager) Resume(ctx context.Context) bool {
	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("persisted session is unreadable, clearing: %v", err)
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error("failed to clear session store: %v", clearErr)
		}
		return false
	}
	if stored == nil {
		return false
	}
	if stored.Token == "" || stored.IssuedAt.IsZero() {
		m.logger.Error("persisted session is malformed, clearing")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error("failed to clear session store: %v", clearErr)
		}
		return false
	}

	m.mu.Lock()
	now := m.now()
	elapsed := now.Sub(stored.IssuedAt)
	if elapsed >= m.ttl {
		m.mu.Unlock()
		m.logger.Info("persisted session already expired, clearing")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error("failed to clear session store: %v", clearErr)
		}
		return false
	}

	m.current = &SessionRecord{
		Token:     stored.Token,
		Principal: stored.Principal,
		IssuedAt:  stored.IssuedAt,
		ExpiresAt: stored.IssuedAt.Add(m.ttl),
	}
	m.warningFired = false
	m.scheduleLocked(m.ttl - elapsed)
	m.mu.Unlock()

	m.logger.Info("session resumed with %s remaining", (m.ttl - elapsed).Round(time.Second))
	return true
}

// OnExpiryWarning registers a callback invoked once per session when
// remaining time first drops to the warning threshold.
func (m *SessionManager) OnExpiryWarning(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = append(m.onWarning, fn)
}

// OnExpired registers a callback invoked after the session expires and the
// automatic logout completes.
func (m *SessionManager) OnExpired(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = append(m.onExpired, fn)
}

// Current returns a copy of the active session record.
func (m *SessionManager) Current() (SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return SessionRecord{}, false
	}
	return *m.current, true
}

// Authenticated reports whether a session is active.
func (m *SessionManager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// Remaining reports the time left before the session expires.
func (m *SessionManager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.Remaining(m.now())
}

// Token returns the current bearer token, empty without a session.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

func (m *SessionManager) persistLocked(ctx context.Context) {
	stored := &StoredSession{
		Token:     m.current.Token,
		Principal: m.current.Principal,
		IssuedAt:  m.current.IssuedAt,
	}
	if err := m.store.Save(ctx, stored); err != nil {
		m.logger.Error("failed to persist session: %v", err)
	}
}

// scheduleLocked re-arms the warning and expiry timers for a session with
// the given remaining time. Previous timers are always cancelled first; at
// most one timer of each kind is outstanding.
func (m *SessionManager) scheduleLocked(remaining time.Duration) {
	m.cancelTimersLocked()

	warnIn := remaining - m.warnAt
	if warnIn < 0 {
		warnIn = 0
	}
	m.warningTimer = time.AfterFunc(warnIn, m.fireWarning)
	m.expiryTimer = time.AfterFunc(remaining, m.fireExpiry)
}

func (m *SessionManager) cancelTimersLocked() {
	if m.warningTimer != nil {
		m.warningTimer.Stop()
		m.warningTimer = nil
	}
	if m.expiryTimer != nil {
		m.expiryTimer.Stop()
		m.expiryTimer = nil
	}
}

func (m *SessionManager) fireWarning() {
	m.mu.Lock()
	if m.current == nil || m.warningFired {
		m.mu.Unlock()
		return
	}
	m.warningFired = true
	callbacks := append([]func(){}, m.onWarning...)
	m.mu.Unlock()

	m.logger.Debug("session expiry warning fired")
	for _, fn := range callbacks {
		fn()
	}
}

func (m *SessionManager) fireExpiry() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	principalID := m.current.Principal.ID
	callbacks := append([]func(){}, m.onExpired...)
	m.mu.Unlock()

	m.logger.Info("session expired for %s, logging out", principalID)
	m.Logout(context.Background())
	m.record(context.Background(), ActivityEvent{
		EventType:  ActivityEventSessionExpired,
		Principal:  principalID,
		OccurredAt: m.now(),
	})
	for _, fn := range callbacks {
		fn()
	}
}

func (m *SessionManager) record(ctx context.Context, event ActivityEvent) {
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Error("activity sink rejected %s event: %v", event.EventType, err)
	}
}
