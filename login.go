package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Authenticator drives the staff login methods: username/password and the
// OAuth redirect path. Guardians use the OTPFlow instead; the role gate
// runs after credential exchange, never before.
type Authenticator struct {
	backend *BackendClient
	session *SessionManager
	logger  Logger
	sink    ActivitySink
}

// AuthenticatorOption customizes authenticator construction.
type AuthenticatorOption func(*Authenticator)

// WithAuthLogger overrides the authenticator logger.
func WithAuthLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthActivitySink sets the ActivitySink used to publish login events.
func WithAuthActivitySink(sink ActivitySink) AuthenticatorOption {
	return func(a *Authenticator) {
		a.sink = normalizeActivitySink(sink)
	}
}

// NewAuthenticator builds the staff-login front door.
func NewAuthenticator(backend *BackendClient, session *SessionManager, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		backend: backend,
		session: session,
		logger:  defLogger{},
		sink:    noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

type passwordPayload struct {
	Username string
	Password string
}

func (p passwordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&p.Password, validation.Required, validation.Length(6, 100)),
	)
}

// Login exchanges username/password for a session. Only staff roles may use
// this method; a PARENT principal is rejected after the exchange.
func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	payload := passwordPayload{Username: username, Password: password}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "credentials failed validation").
			WithTextCode(TextCodeInvalidCredentials)
	}

	login, err := a.backend.Login(ctx, username, password)
	if err != nil {
		a.record(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			Principal:  username,
			OccurredAt: a.session.now(),
		})
		return Classify(err)
	}

	if !login.Principal.Role.CanUsePassword() {
		a.logger.Info("principal %s holds role %s, which may not use password login",
			login.Principal.Label(), login.Principal.Role)
		a.record(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			Principal:  login.Principal.ID,
			OccurredAt: a.session.now(),
		})
		return ErrRoleNotPermitted
	}

	return a.session.Login(ctx, login.Principal, login.Token)
}

func (a *Authenticator) record(ctx context.Context, event ActivityEvent) {
	if err := a.sink.Record(ctx, event); err != nil {
		a.logger.Error("activity sink rejected %s event: %v", event.EventType, err)
	}
}
