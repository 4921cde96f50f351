package auth

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the authenticated identity plus role claim returned by the
// backend after a successful credential or OTP exchange.
type Principal struct {
	ID          string   `json:"id"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Role        UserRole `json:"role"`
}

// Label returns the best human-readable name for the principal.
func (p Principal) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.ID
}

// SessionRecord holds the attributes of an authenticated session. The
// SessionManager is its sole writer.
type SessionRecord struct {
	Token     string    `json:"token"`
	Principal Principal `json:"principal"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Remaining reports how much session time is left at the given instant.
func (s SessionRecord) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s SessionRecord) String() string {
	return fmt.Sprintf(
		"SessionRecord(principal=%s role=%s issued=%s expires=%s)",
		s.Principal.Label(),
		s.Principal.Role,
		s.IssuedAt.Format(time.RFC1123),
		s.ExpiresAt.Format(time.RFC1123),
	)
}
