package auth

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the session record in the given context.
func WithSessionContext(ctx context.Context, record SessionRecord) context.Context {
	return context.WithValue(ctx, sessionCtxKey, record)
}

// SessionFromContext finds the session record in the context.
func SessionFromContext(ctx context.Context) (SessionRecord, bool) {
	record, ok := ctx.Value(sessionCtxKey).(SessionRecord)
	return record, ok
}

// RoleFromContext reads the role claim off the context's session.
func RoleFromContext(ctx context.Context) (UserRole, bool) {
	record, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return record.Principal.Role, record.Principal.Role.IsValid()
}
