package auth

import (
	"context"
	"time"
)

// ChallengeAPI is the external phone-verification service behind the
// primary provider. Beginning a challenge requires a token from a solved
// anti-automation widget; resolving one yields an assertion token the
// backend can verify.
type ChallengeAPI interface {
	BeginChallenge(ctx context.Context, phone, widgetToken string) (challengeID string, err error)
	ResolveChallenge(ctx context.Context, challengeID, code string) (assertionToken string, err error)
}

// PrimaryProvider drives the external verification service. Every send
// acquires a fresh challenge widget; the controller guarantees the previous
// one is gone first.
type PrimaryProvider struct {
	api     ChallengeAPI
	widgets *WidgetController
	backend *BackendClient
	logger  Logger
	now     func() time.Time
}

// PrimaryProviderOption customizes provider construction.
type PrimaryProviderOption func(*PrimaryProvider)

// WithPrimaryLogger overrides the provider logger.
func WithPrimaryLogger(logger Logger) PrimaryProviderOption {
	return func(p *PrimaryProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPrimaryClock injects a custom clock (useful for tests).
func WithPrimaryClock(clock func() time.Time) PrimaryProviderOption {
	return func(p *PrimaryProvider) {
		if clock != nil {
			p.now = clock
		}
	}
}

// NewPrimaryProvider builds the external provider strategy.
func NewPrimaryProvider(api ChallengeAPI, widgets *WidgetController, backend *BackendClient, opts ...PrimaryProviderOption) *PrimaryProvider {
	p := &PrimaryProvider{
		api:     api,
		widgets: widgets,
		backend: backend,
		logger:  defLogger{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

func (p *PrimaryProvider) Kind() ProviderKind {
	return ProviderPrimary
}

// Send solves a widget and asks the external service to deliver a code.
func (p *PrimaryProvider) Send(ctx context.Context, phone string) (*ChallengeReceipt, error) {
	handle, err := p.widgets.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	widgetToken, err := handle.Solve(ctx)
	if err != nil {
		p.widgets.Release()
		return nil, err
	}

	challengeID, err := p.api.BeginChallenge(ctx, phone, widgetToken)
	if err != nil {
		p.widgets.Release()
		return nil, &ProviderError{
			Provider:  ProviderPrimary,
			Operation: "begin_challenge",
			Err:       err,
		}
	}

	p.logger.Debug("primary challenge %s issued for %s", challengeID, phone)
	return &ChallengeReceipt{
		Provider:    ProviderPrimary,
		ChallengeID: challengeID,
		SentAt:      p.now(),
	}, nil
}

// Verify resolves the external challenge into an assertion token, then
// exchanges it with the backend for a login.
func (p *PrimaryProvider) Verify(ctx context.Context, phone, code string, receipt *ChallengeReceipt) (*VerifiedLogin, error) {
	assertion, err := p.api.ResolveChallenge(ctx, receipt.ChallengeID, code)
	if err != nil {
		return nil, &ProviderError{
			Provider:  ProviderPrimary,
			Operation: "resolve_challenge",
			Err:       err,
		}
	}

	return p.backend.VerifyAssertion(ctx, phone, assertion, code)
}
