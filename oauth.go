package auth

import (
	"context"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

// OAuthCallback is the redirect payload the backend appends as query
// parameters after an OAuth exchange.
type OAuthCallback struct {
	Token    string
	Username string
	Role     string
	Status   string
	Error    string
}

// ParseOAuthCallback extracts the callback fields from redirect query
// parameters.
func ParseOAuthCallback(query url.Values) OAuthCallback {
	return OAuthCallback{
		Token:    query.Get("token"),
		Username: query.Get("username"),
		Role:     query.Get("role"),
		Status:   query.Get("status"),
		Error:    query.Get("error"),
	}
}

// HandleOAuthCallback finishes the OAuth redirect path: classify reported
// failures, enforce the staff-only gate, and start a session. Like every
// login method, the role cross-check runs after the exchange.
func (a *Authenticator) HandleOAuthCallback(ctx context.Context, cb OAuthCallback) error {
	if cb.Error != "" {
		return taxonomyFromCode(cb.Error)
	}
	if cb.Status != "" && cb.Status != "success" {
		return ErrUnknownServerError
	}
	if cb.Token == "" {
		return goerrors.New("oauth callback is missing a token", goerrors.CategoryBadInput).
			WithTextCode(TextCodeUnknownServer)
	}

	principal := Principal{Username: cb.Username}
	if role, ok := ParseRole(cb.Role); ok {
		principal.Role = role
	}

	// The token claims fill in whatever the redirect parameters omit.
	if claims, err := PrincipalFromToken(cb.Token); err == nil {
		principal.ID = claims.ID
		if principal.Username == "" {
			principal.Username = claims.Username
		}
		if principal.DisplayName == "" {
			principal.DisplayName = claims.DisplayName
		}
		if principal.Role == "" {
			principal.Role = claims.Role
		}
	} else {
		a.logger.Debug("oauth token claims not decodable: %v", err)
	}

	if !principal.Role.CanUsePassword() {
		a.logger.Info("principal %s holds role %s, which may not use the oauth path",
			principal.Label(), principal.Role)
		return ErrRoleNotPermitted
	}

	return a.session.Login(ctx, principal, cb.Token)
}
