package auth

import (
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// PrincipalClaims is the subset of token claims the client cares about. The
// backend owns signing and verification; the client only decodes the payload
// to learn who the token was minted for.
type PrincipalClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	UserRole    string `json:"role,omitempty"`
}

// PrincipalFromToken decodes the bearer token without verifying its
// signature and builds a Principal from its claims.
func PrincipalFromToken(token string) (Principal, error) {
	claims := &PrincipalClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Principal{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode token claims")
	}

	principal := Principal{
		ID:          claims.Subject,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Phone:       claims.Phone,
	}

	if role, ok := ParseRole(claims.UserRole); ok {
		principal.Role = role
	}

	return principal, nil
}
