package sessionguard_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/schoolmed/go-authclient"
	"github.com/schoolmed/go-authclient/middleware/sessionguard"
)

func newGuardedApp(t *testing.T, cfg sessionguard.Config) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/nurse-dashboard", sessionguard.New(cfg), func(c *fiber.Ctx) error {
		record, ok := sessionguard.FromCtx(c)
		require.True(t, ok)
		return c.SendString("hello " + record.Principal.Label())
	})
	return app
}

func nurseSession(t *testing.T) *auth.SessionManager {
	t.Helper()
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore())
	require.NoError(t, manager.Login(context.Background(), auth.Principal{
		ID:          "nurse-1",
		DisplayName: "Nguyen Van A",
		Role:        auth.RoleSchoolNurse,
	}, "nurse-token"))
	return manager
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore())
	app := newGuardedApp(t, sessionguard.Config{Session: manager})

	resp, err := app.Test(httptest.NewRequest("GET", "/nurse-dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestGuardAdmitsAuthenticatedSession(t *testing.T) {
	app := newGuardedApp(t, sessionguard.Config{Session: nurseSession(t)})

	resp, err := app.Test(httptest.NewRequest("GET", "/nurse-dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardEnforcesAllowedRoles(t *testing.T) {
	app := newGuardedApp(t, sessionguard.Config{
		Session:      nurseSession(t),
		AllowedRoles: []auth.UserRole{auth.RoleAdmin},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/nurse-dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	// Wrong dashboard: the guard sends the role home instead.
	assert.Equal(t, auth.RoleSchoolNurse.LandingRoute(), resp.Header.Get("Location"))
}

func TestGuardJSONMode(t *testing.T) {
	manager := auth.NewSessionManager(auth.NewMemoryTokenStore())
	app := newGuardedApp(t, sessionguard.Config{Session: manager, JSON: true})

	resp, err := app.Test(httptest.NewRequest("GET", "/nurse-dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGuardForbidsWrongRoleInJSONMode(t *testing.T) {
	app := newGuardedApp(t, sessionguard.Config{
		Session:      nurseSession(t),
		AllowedRoles: []auth.UserRole{auth.RoleManager},
		JSON:         true,
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/nurse-dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
