package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	auth "github.com/schoolmed/go-authclient"
)

// fakeClock is a hand-driven clock for deterministic timestamp tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubWidgetInstance counts lifecycle calls and hands back a canned token.
type stubWidgetInstance struct {
	mu         sync.Mutex
	token      string
	destroyed  bool
	destroyErr error
	solveErr   error
}

func (w *stubWidgetInstance) Solve(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return "", errors.New("widget already destroyed")
	}
	if w.solveErr != nil {
		return "", w.solveErr
	}
	return w.token, nil
}

func (w *stubWidgetInstance) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	return w.destroyErr
}

func (w *stubWidgetInstance) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// stubWidgetHost tracks every instance it created plus cleanup calls.
type stubWidgetHost struct {
	mu        sync.Mutex
	instances []*stubWidgetInstance
	cleanups  int
	createErr error
	token     string
	solveErr  error
}

func (h *stubWidgetHost) Create(context.Context) (auth.WidgetInstance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.createErr != nil {
		return nil, h.createErr
	}
	token := h.token
	if token == "" {
		token = "widget-token"
	}
	instance := &stubWidgetInstance{token: token, solveErr: h.solveErr}
	h.instances = append(h.instances, instance)
	return instance, nil
}

func (h *stubWidgetHost) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups++
}

func (h *stubWidgetHost) liveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := 0
	for _, instance := range h.instances {
		if !instance.Destroyed() {
			live++
		}
	}
	return live
}

func (h *stubWidgetHost) created() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.instances)
}

// stubProvider simulates a verification provider. It remembers the code it
// "sent" last and rejects everything else the way a real backend would.
type stubProvider struct {
	mu          sync.Mutex
	kind        auth.ProviderKind
	sendErr     error
	verifyErr   error
	currentCode string
	login       *auth.VerifiedLogin
	sendCalls   int
	verifyCalls int
}

func (p *stubProvider) Kind() auth.ProviderKind {
	return p.kind
}

func (p *stubProvider) Send(_ context.Context, phone string) (*auth.ChallengeReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendCalls++
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	return &auth.ChallengeReceipt{
		Provider:    p.kind,
		ChallengeID: "challenge-" + phone,
		SentAt:      time.Now(),
	}, nil
}

func (p *stubProvider) Verify(_ context.Context, _, code string, _ *auth.ChallengeReceipt) (*auth.VerifiedLogin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyCalls++
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	if code != p.currentCode {
		return nil, auth.ErrInvalidCode
	}
	login := *p.login
	return &login, nil
}

func (p *stubProvider) calls() (sends, verifies int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendCalls, p.verifyCalls
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// failingStore breaks on demand to exercise degraded-storage paths.
type failingStore struct {
	mu      sync.Mutex
	loadErr error
	session *auth.StoredSession
	clears  int
	saveErr error
	saves   int
}

func (s *failingStore) Load(context.Context) (*auth.StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.session == nil {
		return nil, nil
	}
	copy := *s.session
	return &copy, nil
}

func (s *failingStore) Save(_ context.Context, session *auth.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	if session == nil {
		s.session = nil
		return nil
	}
	copy := *session
	s.session = &copy
	return nil
}

func (s *failingStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.session = nil
	return nil
}

func (s *failingStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func parentLogin() *auth.VerifiedLogin {
	return &auth.VerifiedLogin{
		Token: "parent-token",
		Principal: auth.Principal{
			ID:          "parent-1",
			DisplayName: "Tran Thi B",
			Phone:       "+84912345678",
			Role:        auth.RoleParent,
		},
	}
}

func nurseLogin() *auth.VerifiedLogin {
	return &auth.VerifiedLogin{
		Token: "nurse-token",
		Principal: auth.Principal{
			ID:          "nurse-1",
			DisplayName: "Nguyen Van A",
			Role:        auth.RoleSchoolNurse,
		},
	}
}
