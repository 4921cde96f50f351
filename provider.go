package auth

import (
	"context"
	"fmt"
	"time"
)

// ProviderKind identifies which verification path issued a challenge.
type ProviderKind string

const (
	// ProviderPrimary is the external phone-verification service that
	// requires a solved anti-automation widget.
	ProviderPrimary ProviderKind = "primary"

	// ProviderFallback is the backend's own OTP issuance/verification
	// path, used when the primary provider is unavailable.
	ProviderFallback ProviderKind = "fallback"
)

// ChallengeReceipt records what a provider handed back for a sent
// challenge. The flow keeps it so verification goes to the same provider.
type ChallengeReceipt struct {
	Provider    ProviderKind
	ChallengeID string
	SentAt      time.Time
}

// VerifiedLogin is the outcome of a successful credential exchange.
type VerifiedLogin struct {
	Token     string
	Principal Principal
}

// OTPProvider is one strategy in the ordered cascade the OTP flow tries.
// Implementations return taxonomy-classified errors or *ProviderError; the
// flow is provider-agnostic beyond recording which one issued the live
// challenge.
type OTPProvider interface {
	Kind() ProviderKind

	// Send issues a challenge to the phone number (E.164).
	Send(ctx context.Context, phone string) (*ChallengeReceipt, error)

	// Verify checks a user-entered code against the challenge identified
	// by receipt and exchanges it for a backend-issued login.
	Verify(ctx context.Context, phone, code string, receipt *ChallengeReceipt) (*VerifiedLogin, error)
}

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider  ProviderKind
	Operation string
	Status    int
	Code      string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := string(e.Provider)
	if e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	}

	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Taxonomy maps the provider error onto the package taxonomy.
func (e *ProviderError) Taxonomy() error {
	if e == nil {
		return nil
	}
	if e.Code != "" {
		return taxonomyFromCode(e.Code)
	}
	if e.Status == 0 {
		return ErrNetworkUnavailable
	}
	return ErrUnknownServerError
}
