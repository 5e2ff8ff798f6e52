package middleware

import (
	"github.com/gofiber/fiber/v2"

	"motoreg/auth"
	"motoreg/utils"
)

const (
	localIdentity = "identity"
	localIsAdmin  = "isAdmin"
)

// Authenticate resolves the caller and stores the identity and admin flag in
// the request locals. It never rejects: scope checks are done by RequireScope.
//
// An identity placed in locals by an earlier handler (a hosting platform
// adapter) takes precedence. Otherwise the platform header, when configured,
// is tried before the bearer token.
func Authenticate(resolver *auth.Resolver, admins *auth.AdminChecker, platformHeader string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(localIdentity).(*auth.Identity)
		if id == nil {
			var platform string
			if platformHeader != "" {
				platform = c.Get(platformHeader)
			}
			id = resolver.Resolve(platform, c.Get(fiber.HeaderAuthorization))
		}

		c.Locals(localIdentity, id)
		c.Locals(localIsAdmin, admins.IsAdmin(id))
		return c.Next()
	}
}

// RequireScope rejects requests the authorization gate denies.
func RequireScope(scope auth.Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Authorize(IdentityFrom(c), IsAdmin(c), scope); err != nil {
			if utils.IsKind(err, utils.KindForbidden) {
				id := IdentityFrom(c)
				utils.LogEvent("admin_access_denied", map[string]interface{}{
					"user_id": id.UserID,
					"path":    c.Path(),
				})
			}
			return err
		}
		return c.Next()
	}
}

// IdentityFrom returns the resolved caller or nil.
func IdentityFrom(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(localIdentity).(*auth.Identity)
	return id
}

func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(localIsAdmin).(bool)
	return admin
}
