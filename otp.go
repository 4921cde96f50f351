package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// OTPTTL is how long a sent code stays valid.
const OTPTTL = 2 * time.Minute

// OTPState is the phone-login state machine's position.
type OTPState string

const (
	// StateIdle is phone entry: no challenge in flight.
	StateIdle OTPState = "idle"

	// StateSending means a challenge request is in flight.
	StateSending OTPState = "sending"

	// StateAwaitingCode means a challenge is live and the user is typing.
	StateAwaitingCode OTPState = "awaiting_code"

	// StateVerifying means a submitted code is being checked.
	StateVerifying OTPState = "verifying"

	// StateAuthenticated is terminal: a session exists.
	StateAuthenticated OTPState = "authenticated"
)

// ChallengeStatus tracks the live challenge's lifecycle.
type ChallengeStatus string

const (
	ChallengePending     ChallengeStatus = "pending"
	ChallengeVerified    ChallengeStatus = "verified"
	ChallengeExpired     ChallengeStatus = "expired"
	ChallengeInvalidated ChallengeStatus = "invalidated"
)

// OtpChallenge is the live challenge record. The OTPFlow is its sole
// writer; exactly one challenge is live per login attempt.
type OtpChallenge struct {
	Target      string
	Provider    ProviderKind
	ChallengeID string
	SentAt      time.Time
	ExpiresAt   time.Time
	Attempts    int
	Status      ChallengeStatus
}

// OTPFlow drives phone login across an ordered provider cascade. Calls are
// guarded by the current state, not a lock: RequestCode and SubmitCode
// reject overlap while a previous call is still in flight.
type OTPFlow struct {
	mu        sync.Mutex
	providers []OTPProvider
	session   *SessionManager
	widgets   *WidgetController
	logger    Logger
	sink      ActivitySink
	now       func() time.Time
	ttl       time.Duration
	tick      time.Duration

	state     OTPState
	challenge *OtpChallenge
	receipt   *ChallengeReceipt
	lastPhone string

	countdownStop chan struct{}

	onTick    func(remaining time.Duration)
	onExpired func()
}

// OTPFlowOption customizes flow construction.
type OTPFlowOption func(*OTPFlow)

// WithOTPTTL overrides the challenge TTL.
func WithOTPTTL(ttl time.Duration) OTPFlowOption {
	return func(f *OTPFlow) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithOTPClock injects a custom clock (useful for tests).
func WithOTPClock(clock func() time.Time) OTPFlowOption {
	return func(f *OTPFlow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// WithCountdownResolution overrides the countdown tick interval.
func WithCountdownResolution(d time.Duration) OTPFlowOption {
	return func(f *OTPFlow) {
		if d > 0 {
			f.tick = d
		}
	}
}

// WithOTPLogger overrides the flow logger.
func WithOTPLogger(logger Logger) OTPFlowOption {
	return func(f *OTPFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithOTPActivitySink sets the ActivitySink used to publish challenge
// events.
func WithOTPActivitySink(sink ActivitySink) OTPFlowOption {
	return func(f *OTPFlow) {
		f.sink = normalizeActivitySink(sink)
	}
}

// OnCountdown registers the per-second countdown callback.
func (f *OTPFlow) OnCountdown(fn func(remaining time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTick = fn
}

// OnChallengeExpired registers the callback fired when the live challenge
// runs out while the user is still on the code screen.
func (f *OTPFlow) OnChallengeExpired(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExpired = fn
}

// NewOTPFlow builds the flow. Providers are tried in order on every send;
// the first success wins. The widget controller is released on teardown so
// no widget outlives the flow.
func NewOTPFlow(session *SessionManager, widgets *WidgetController, providers []OTPProvider, opts ...OTPFlowOption) *OTPFlow {
	f := &OTPFlow{
		providers: providers,
		session:   session,
		widgets:   widgets,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
		ttl:       OTPTTL,
		tick:      time.Second,
		state:     StateIdle,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// State returns the current state.
func (f *OTPFlow) State() OTPState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Challenge returns a copy of the live challenge record.
func (f *OTPFlow) Challenge() (OtpChallenge, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return OtpChallenge{}, false
	}
	return *f.challenge, true
}

// Remaining reports how long the live challenge has left.
func (f *OTPFlow) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return 0
	}
	remaining := f.challenge.ExpiresAt.Sub(f.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RequestCode validates and normalizes the phone number, then walks the
// provider cascade until one issues a challenge. Any previous challenge is
// invalidated first, so old codes never verify after this call.
func (f *OTPFlow) RequestCode(ctx context.Context, phoneNumber string) error {
	phone, err := NormalizePhone(phoneNumber)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.state == StateSending || f.state == StateVerifying {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state == StateAuthenticated {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	f.invalidateChallengeLocked()
	f.state = StateSending
	f.lastPhone = phone
	f.mu.Unlock()

	var lastErr error
	for _, provider := range f.providers {
		receipt, sendErr := provider.Send(ctx, phone)
		if sendErr == nil {
			f.acceptChallenge(ctx, phone, provider.Kind(), receipt)
			return nil
		}

		lastErr = sendErr
		f.logger.Error("%s provider send failed: %v", provider.Kind(), sendErr)
		f.record(ctx, ActivityEvent{
			EventType:  ActivityEventOTPSendFailed,
			Provider:   provider.Kind(),
			OccurredAt: f.now(),
		})
	}

	f.mu.Lock()
	f.state = StateIdle
	f.challenge = nil
	f.receipt = nil
	f.mu.Unlock()

	if code := TaxonomyCode(lastErr); code == TextCodeNetworkUnavailable {
		return lastErr
	}
	return goerrors.Wrap(lastErr, goerrors.CategoryOperation, "all verification providers failed").
		WithTextCode(TextCodeChallengeSendFailed)
}

// ResendCode re-issues a code to the last phone number. The previous
// challenge is always invalidated first and the countdown resets. Not
// permitted while a verification is in flight.
func (f *OTPFlow) ResendCode(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateVerifying {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	phone := f.lastPhone
	f.mu.Unlock()

	if phone == "" {
		return goerrors.New("no phone number to resend to", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInvalidCredentials)
	}
	return f.RequestCode(ctx, phone)
}

// SubmitCode verifies a user-entered code against whichever provider issued
// the live challenge. An expired or invalidated challenge short-circuits
// without any network call.
func (f *OTPFlow) SubmitCode(ctx context.Context, code string) error {
	f.mu.Lock()
	if f.state != StateAwaitingCode {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.challenge == nil {
		f.mu.Unlock()
		return ErrChallengeExpired
	}
	if f.challenge.Status == ChallengeInvalidated {
		f.mu.Unlock()
		return ErrChallengeAlreadyUsed
	}
	if f.challenge.Status == ChallengeExpired || !f.now().Before(f.challenge.ExpiresAt) {
		f.challenge.Status = ChallengeExpired
		f.mu.Unlock()
		return ErrChallengeExpired
	}

	if err := validation.Validate(code, validation.Required, validation.Length(4, 8), is.Digit); err != nil {
		f.mu.Unlock()
		return goerrors.Wrap(err, goerrors.CategoryValidation, "verification code failed validation").
			WithTextCode(TextCodeInvalidCredentials)
	}

	provider := f.providerForLocked()
	if provider == nil {
		f.mu.Unlock()
		return ErrChallengeExpired
	}
	phone := f.challenge.Target
	receipt := f.receipt
	f.challenge.Attempts++
	f.state = StateVerifying
	f.mu.Unlock()

	login, err := provider.Verify(ctx, phone, code, receipt)
	if err != nil {
		return f.handleVerifyFailure(ctx, provider.Kind(), err)
	}

	if !login.Principal.Role.CanUseOTP() {
		f.logger.Info("principal %s holds role %s, which may not use phone login",
			login.Principal.Label(), login.Principal.Role)
		f.abortToPhoneEntry(ctx)
		f.record(ctx, ActivityEvent{
			EventType:  ActivityEventOTPRejected,
			Principal:  login.Principal.ID,
			Provider:   provider.Kind(),
			OccurredAt: f.now(),
		})
		return ErrRoleNotPermitted
	}

	f.mu.Lock()
	if f.challenge != nil {
		f.challenge.Status = ChallengeVerified
	}
	f.state = StateAuthenticated
	f.stopCountdownLocked()
	f.mu.Unlock()
	f.widgets.Release()

	if err := f.session.Login(ctx, login.Principal, login.Token); err != nil {
		return err
	}

	f.record(ctx, ActivityEvent{
		EventType:  ActivityEventOTPVerified,
		Principal:  login.Principal.ID,
		Provider:   provider.Kind(),
		OccurredAt: f.now(),
	})
	return nil
}

// Teardown cancels the countdown and releases the widget without touching
// any still-valid backend challenge. Called on navigation away and process
// unload; a resend on return starts fresh regardless.
func (f *OTPFlow) Teardown() {
	f.mu.Lock()
	f.stopCountdownLocked()
	if f.state != StateAuthenticated {
		f.state = StateIdle
	}
	f.challenge = nil
	f.receipt = nil
	f.mu.Unlock()

	f.widgets.Release()
}

func (f *OTPFlow) acceptChallenge(ctx context.Context, phone string, kind ProviderKind, receipt *ChallengeReceipt) {
	f.mu.Lock()
	now := f.now()
	f.challenge = &OtpChallenge{
		Target:      phone,
		Provider:    kind,
		ChallengeID: receipt.ChallengeID,
		SentAt:      now,
		ExpiresAt:   now.Add(f.ttl),
		Status:      ChallengePending,
	}
	f.receipt = receipt
	f.state = StateAwaitingCode
	f.startCountdownLocked()
	f.mu.Unlock()

	f.logger.Info("verification code sent to %s via %s provider", phone, kind)
	f.record(ctx, ActivityEvent{
		EventType:  ActivityEventOTPSent,
		Provider:   kind,
		OccurredAt: now,
	})
}

func (f *OTPFlow) handleVerifyFailure(ctx context.Context, kind ProviderKind, err error) error {
	classified := classifyProviderFailure(err)

	f.mu.Lock()
	switch TaxonomyCode(classified) {
	case TextCodeInvalidCode:
		// Challenge stays live; the user may retry in place.
		f.state = StateAwaitingCode
	case TextCodeChallengeExpired:
		if f.challenge != nil {
			f.challenge.Status = ChallengeExpired
		}
		f.state = StateAwaitingCode
	case TextCodeChallengeUsed:
		if f.challenge != nil {
			f.challenge.Status = ChallengeInvalidated
		}
		f.state = StateAwaitingCode
	case TextCodeRoleNotPermitted:
		f.mu.Unlock()
		f.abortToPhoneEntry(ctx)
		f.record(ctx, ActivityEvent{
			EventType:  ActivityEventOTPRejected,
			Provider:   kind,
			OccurredAt: f.now(),
		})
		return classified
	default:
		f.state = StateAwaitingCode
	}
	f.mu.Unlock()

	f.record(ctx, ActivityEvent{
		EventType:  ActivityEventOTPRejected,
		Provider:   kind,
		OccurredAt: f.now(),
	})
	return classified
}

// abortToPhoneEntry resets the whole attempt. OTP entry cannot fix a role
// mismatch, so the flow returns to phone entry rather than AwaitingCode.
func (f *OTPFlow) abortToPhoneEntry(_ context.Context) {
	f.mu.Lock()
	f.stopCountdownLocked()
	f.invalidateChallengeLocked()
	f.challenge = nil
	f.receipt = nil
	f.state = StateIdle
	f.mu.Unlock()

	f.widgets.Release()
}

func (f *OTPFlow) providerForLocked() OTPProvider {
	if f.receipt == nil {
		return nil
	}
	for _, p := range f.providers {
		if p.Kind() == f.receipt.Provider {
			return p
		}
	}
	return nil
}

func (f *OTPFlow) invalidateChallengeLocked() {
	f.stopCountdownLocked()
	if f.challenge != nil && f.challenge.Status == ChallengePending {
		f.challenge.Status = ChallengeInvalidated
	}
}

// startCountdownLocked starts the 1-second countdown for the live
// challenge. The previous countdown is always stopped first.
func (f *OTPFlow) startCountdownLocked() {
	f.stopCountdownLocked()

	stop := make(chan struct{})
	f.countdownStop = stop

	go func() {
		ticker := time.NewTicker(f.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if done := f.countdownTick(stop); done {
					return
				}
			}
		}
	}()
}

// countdownTick reports whether the countdown should stop.
func (f *OTPFlow) countdownTick(stop chan struct{}) bool {
	f.mu.Lock()
	if f.countdownStop != stop || f.challenge == nil {
		f.mu.Unlock()
		return true
	}
	// Mid-verification the countdown keeps quiet; expiry is re-checked on
	// the next tick if verification fails back to AwaitingCode.
	if f.state != StateAwaitingCode {
		f.mu.Unlock()
		return false
	}

	remaining := f.challenge.ExpiresAt.Sub(f.now())
	if remaining < 0 {
		remaining = 0
	}
	onTick := f.onTick
	var onExpired func()
	expired := remaining == 0
	if expired {
		f.challenge.Status = ChallengeExpired
		f.countdownStop = nil
		onExpired = f.onExpired
	}
	f.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expired {
		f.logger.Info("verification code expired before submission")
		if onExpired != nil {
			onExpired()
		}
		return true
	}
	return false
}

func (f *OTPFlow) stopCountdownLocked() {
	if f.countdownStop != nil {
		close(f.countdownStop)
		f.countdownStop = nil
	}
}

func (f *OTPFlow) record(ctx context.Context, event ActivityEvent) {
	if err := f.sink.Record(ctx, event); err != nil {
		f.logger.Error("activity sink rejected %s event: %v", event.EventType, err)
	}
}

// classifyProviderFailure maps any provider error onto the taxonomy before
// it crosses the core boundary.
func classifyProviderFailure(err error) error {
	if err == nil {
		return nil
	}
	if TaxonomyCode(err) != "" {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Taxonomy()
	}
	return Classify(err)
}
