// Package sessionguard gates portal routes on the live session and role
// claim. It is the consumer side of the session contract: it only reads
// what the session manager exposes.
package sessionguard

import (
	"github.com/gofiber/fiber/v2"

	auth "github.com/schoolmed/go-authclient"
)

// DefaultContextKey is where the guard stores the session record in fiber
// locals.
const DefaultContextKey = "auth_session"

// Config controls the guard middleware.
type Config struct {
	// Session is the manager whose state gates the route. Required.
	Session *auth.SessionManager

	// AllowedRoles restricts the route to the listed roles. Empty allows
	// any authenticated role.
	AllowedRoles []auth.UserRole

	// LoginRoute is where unauthenticated requests are redirected.
	// Defaults to "/login".
	LoginRoute string

	// ContextKey overrides where the session record lands in locals.
	ContextKey string

	// JSON makes the guard answer with a status code instead of a
	// redirect, for API routes.
	JSON bool
}

// New builds the guard middleware.
func New(cfg Config) fiber.Handler {
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/login"
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	return func(c *fiber.Ctx) error {
		record, ok := cfg.Session.Current()
		if !ok {
			if cfg.JSON {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"code": "SESSION_REQUIRED",
				})
			}
			return c.Redirect(cfg.LoginRoute, fiber.StatusFound)
		}

		if len(cfg.AllowedRoles) > 0 && !roleAllowed(record.Principal.Role, cfg.AllowedRoles) {
			if cfg.JSON {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"code": auth.TextCodeRoleNotPermitted,
				})
			}
			// Wrong dashboard for this role; send them home instead.
			return c.Redirect(record.Principal.Role.LandingRoute(), fiber.StatusFound)
		}

		c.Locals(cfg.ContextKey, record)
		c.SetUserContext(auth.WithSessionContext(c.UserContext(), record))
		return c.Next()
	}
}

// FromCtx reads the session record the guard stored in fiber locals.
func FromCtx(c *fiber.Ctx, key ...string) (auth.SessionRecord, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	record, ok := c.Locals(k).(auth.SessionRecord)
	return record, ok
}

func roleAllowed(role auth.UserRole, allowed []auth.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
