package gatekeeper

import (
	"crypto/sha256"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/pixelmorph/go-gatekeeper/middleware/csrf"
	"github.com/pixelmorph/go-gatekeeper/middleware/guard"
)

// NewServer builds a fiber backed HTTP server with the auth surface mounted:
// public login, magic-link, and debug-session routes, the session echo
// endpoint behind the whitelist gate, and the admin surface behind the
// co-owner tier.
func NewServer(cfg Config, auther *RouteAuthenticator, repo RepositoryManager, magic *MagicLink) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	errorHandler := func(c router.Context, err error) error {
		return c.JSON(HTTPStatus(err), map[string]any{
			"success": false,
			"error":   PublicMessage(err),
		})
	}

	// cookie sessions need CSRF cover on the state changing routes; clients
	// bootstrap the token from GET /api/auth/csrf and echo it back in the
	// X-CSRF-Token header
	csrfKey := sha256.Sum256([]byte(cfg.GetSigningKey()))
	srv.Router().Use(csrf.New(csrf.Config{
		SecureKey: csrfKey[:],
	}))
	csrf.RegisterRoutes(srv.Router())

	session := auther.ProtectedRoute(cfg, errorHandler, guard.WithRequireWhitelist())
	admin := auther.ProtectedRoute(cfg, errorHandler,
		guard.WithRequireWhitelist(),
		guard.WithMinimumRole(RoleCoOwner),
	)
	optional := auther.ProtectedRoute(cfg, errorHandler, guard.WithOptional())

	controller := RegisterAuthRoutes(srv.Router(), session, optional,
		WithControllerRepo(repo),
		WithControllerAuther(auther),
		WithControllerMagicLink(magic),
	)

	RegisterAdminRoutes(srv.Router(), controller, admin)

	return srv
}
