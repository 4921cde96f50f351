package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Machine-readable codes for every failure the core surfaces to the UI.
// Backend responses carry the same codes in their error body, so the mapping
// here is a straight lookup rather than prose matching.
const (
	TextCodeNetworkUnavailable  = "NETWORK_UNAVAILABLE"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIAL_FORMAT"
	TextCodeChallengeSendFailed = "CHALLENGE_SEND_FAILED"
	TextCodeInvalidCode         = "INVALID_CODE"
	TextCodeChallengeExpired    = "CHALLENGE_EXPIRED"
	TextCodeChallengeUsed       = "CHALLENGE_ALREADY_USED"
	TextCodeAccountDisabled     = "ACCOUNT_DISABLED"
	TextCodeRoleNotPermitted    = "ROLE_NOT_PERMITTED"
	TextCodeUnknownServer       = "UNKNOWN_SERVER_ERROR"
	TextCodeFlowBusy            = "AUTH_FLOW_BUSY"
	TextCodeWidgetUnavailable   = "CHALLENGE_WIDGET_UNAVAILABLE"
)

// ErrNetworkUnavailable is returned when the backend or a provider cannot be
// reached; the attempt may be retried as-is.
var ErrNetworkUnavailable = goerrors.New("network unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeNetworkUnavailable)

// ErrInvalidCredentialFormat is returned by local validation before any
// network call is made.
var ErrInvalidCredentialFormat = goerrors.New("credential format is invalid", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrChallengeSendFailed is returned when every provider in the cascade
// failed to issue a challenge.
var ErrChallengeSendFailed = goerrors.New("unable to send verification code", goerrors.CategoryOperation).
	WithTextCode(TextCodeChallengeSendFailed)

// ErrInvalidCode is returned for a wrong code against a still-live
// challenge; the user may retry in place.
var ErrInvalidCode = goerrors.New("verification code is incorrect", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrChallengeExpired is returned when the live challenge has run out; a
// resend is required before another submission.
var ErrChallengeExpired = goerrors.New("verification code has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeChallengeExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrChallengeAlreadyUsed is returned when the challenge was consumed or
// invalidated by a resend; a resend is required.
var ErrChallengeAlreadyUsed = goerrors.New("verification code was already used", goerrors.CategoryConflict).
	WithTextCode(TextCodeChallengeUsed).
	WithCode(goerrors.CodeConflict)

// ErrAccountDisabled is terminal for the account; there is no retry path.
var ErrAccountDisabled = goerrors.New("account is disabled", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrRoleNotPermitted is returned when the authenticated principal's role is
// not allowed to use the chosen login method.
var ErrRoleNotPermitted = goerrors.New("role may not use this login method", goerrors.CategoryAuthz).
	WithTextCode(TextCodeRoleNotPermitted).
	WithCode(goerrors.CodeForbidden)

// ErrUnknownServerError covers unclassified backend failures; terminal for
// the current attempt.
var ErrUnknownServerError = goerrors.New("unexpected server error", goerrors.CategoryInternal).
	WithTextCode(TextCodeUnknownServer)

// ErrFlowBusy is returned when RequestCode or SubmitCode is called while a
// previous call is still in flight.
var ErrFlowBusy = goerrors.New("authentication flow is busy", goerrors.CategoryConflict).
	WithTextCode(TextCodeFlowBusy).
	WithCode(goerrors.CodeConflict)

// ErrWidgetUnavailable is returned when the anti-automation widget cannot be
// created or solved.
var ErrWidgetUnavailable = goerrors.New("challenge widget unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeWidgetUnavailable)

// TaxonomyCode extracts the machine-readable code from a classified error,
// or returns the empty string for nil/unclassified errors.
func TaxonomyCode(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}

// IsRetryable reports whether the failure may be retried without changing
// anything (same code, same challenge).
func IsRetryable(err error) bool {
	switch TaxonomyCode(err) {
	case TextCodeNetworkUnavailable, TextCodeInvalidCode:
		return true
	default:
		return false
	}
}

// RequiresResend reports whether the current challenge can no longer verify
// and the user must request a new code.
func RequiresResend(err error) bool {
	switch TaxonomyCode(err) {
	case TextCodeChallengeExpired, TextCodeChallengeUsed:
		return true
	default:
		return false
	}
}

// Classify guarantees an error carries a taxonomy code before it crosses the
// core boundary. Already-classified errors pass through untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if TaxonomyCode(err) != "" {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected server error").
		WithTextCode(TextCodeUnknownServer)
}

// taxonomyFromCode maps a backend error code onto the corresponding
// sentinel. Unknown codes degrade to ErrUnknownServerError.
func taxonomyFromCode(code string) error {
	switch code {
	case TextCodeInvalidCode, "OTP_INVALID":
		return ErrInvalidCode
	case TextCodeChallengeExpired, "OTP_EXPIRED":
		return ErrChallengeExpired
	case TextCodeChallengeUsed, "OTP_USED":
		return ErrChallengeAlreadyUsed
	case TextCodeAccountDisabled, "USER_DISABLED":
		return ErrAccountDisabled
	case TextCodeRoleNotPermitted, "ROLE_MISMATCH":
		return ErrRoleNotPermitted
	case TextCodeInvalidCredentials, "BAD_CREDENTIALS":
		return ErrInvalidCode
	default:
		return ErrUnknownServerError
	}
}
