package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// WidgetHost is the platform binding for the anti-automation challenge
// widget: a browser embed, a native view, or a test double. The host owns
// the single mount point.
type WidgetHost interface {
	// Create builds a new widget instance bound to the mount point. The
	// controller guarantees any previous instance was destroyed first.
	Create(ctx context.Context) (WidgetInstance, error)

	// Cleanup clears host-side residue left behind by a destroyed widget
	// (attributes, injected nodes, global automation-detection state).
	Cleanup()
}

// WidgetInstance is one live challenge widget.
type WidgetInstance interface {
	// Solve blocks until the widget produces an anti-automation token.
	Solve(ctx context.Context) (string, error)

	// Destroy tears the widget down. Further Solve calls must fail.
	Destroy() error
}

// WidgetHandle is the caller's reference to the current widget. A handle
// invalidated by a later Acquire or by Release refuses to solve.
type WidgetHandle struct {
	id         uuid.UUID
	instance   WidgetInstance
	controller *WidgetController
}

// ID identifies the handle for logging.
func (h *WidgetHandle) ID() uuid.UUID {
	return h.id
}

// Solve produces the anti-automation token, failing if this handle is no
// longer the live one.
func (h *WidgetHandle) Solve(ctx context.Context) (string, error) {
	if !h.controller.isLive(h) {
		return "", goerrors.New("challenge widget handle is stale", goerrors.CategoryConflict).
			WithTextCode(TextCodeWidgetUnavailable)
	}

	token, err := h.instance.Solve(ctx)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "challenge widget solve failed").
			WithTextCode(TextCodeWidgetUnavailable)
	}
	return token, nil
}

// WidgetController owns the widget lifecycle and guarantees at most one
// live instance system-wide. Acquire always tears down before building, so
// resend spam can never leak instances.
type WidgetController struct {
	mu      sync.Mutex
	host    WidgetHost
	current *WidgetHandle
	settle  time.Duration
	logger  Logger
}

// WidgetOption customizes controller construction.
type WidgetOption func(*WidgetController)

// WithSettleDelay sets how long Acquire waits after a teardown before
// constructing the next instance, giving the host time to finish async
// cleanup. Zero disables the wait.
func WithSettleDelay(d time.Duration) WidgetOption {
	return func(c *WidgetController) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithWidgetLogger overrides the controller logger.
func WithWidgetLogger(logger Logger) WidgetOption {
	return func(c *WidgetController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewWidgetController builds a controller over the given host binding.
func NewWidgetController(host WidgetHost, opts ...WidgetOption) *WidgetController {
	c := &WidgetController{
		host:   host,
		settle: 50 * time.Millisecond,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Acquire destroys any existing widget, waits for teardown to settle, then
// constructs exactly one new instance. Safe to call repeatedly in rapid
// succession.
func (c *WidgetController) Acquire(ctx context.Context) (*WidgetHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	if c.settle > 0 {
		timer := time.NewTimer(c.settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "widget acquire cancelled").
				WithTextCode(TextCodeWidgetUnavailable)
		}
	}

	instance, err := c.host.Create(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "unable to create challenge widget").
			WithTextCode(TextCodeWidgetUnavailable)
	}

	handle := &WidgetHandle{
		id:         uuid.New(),
		instance:   instance,
		controller: c,
	}
	c.current = handle
	c.logger.Debug("challenge widget %s acquired", handle.id)
	return handle, nil
}

// Release destroys the current widget if present and clears host residue.
// Idempotent; invoked on teardown, navigation away, and process unload. A
// nil controller has nothing to release (fallback-only deployments).
func (c *WidgetController) Release() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// Live reports whether a widget instance currently exists.
func (c *WidgetController) Live() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *WidgetController) isLive(h *WidgetHandle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == h
}

// releaseLocked tears down the live instance, swallowing destroy errors: a
// missing or already-broken widget must never block a new acquire.
func (c *WidgetController) releaseLocked() {
	if c.current == nil {
		return
	}
	if err := c.current.instance.Destroy(); err != nil {
		c.logger.Debug("widget destroy reported %v (ignored)", err)
	}
	c.host.Cleanup()
	c.logger.Debug("challenge widget %s released", c.current.id)
	c.current = nil
}
