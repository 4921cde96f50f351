package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/schoolmed/go-authclient"
)

func TestSessionContextRoundTrip(t *testing.T) {
	record := auth.SessionRecord{
		Token:     "token-1",
		Principal: parentLogin().Principal,
	}

	ctx := auth.WithSessionContext(context.Background(), record)

	got, ok := auth.SessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "token-1", got.Token)

	role, ok := auth.RoleFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, auth.RoleParent, role)
}

func TestSessionContextMissing(t *testing.T) {
	_, ok := auth.SessionFromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.RoleFromContext(context.Background())
	assert.False(t, ok)
}
