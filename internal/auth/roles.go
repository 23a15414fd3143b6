package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequireAuthenticated ensures a user was loaded by AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireSuperuser admits administrators only.
func RequireSuperuser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.Superuser() {
			return apperrors.NewForbidden("Only admins can access this resource.")
		}
		return c.Next()
	}
}

// RequireAgent admits members of a specialist group and administrators.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.Superuser() && !user.IsAgent() {
			return apperrors.NewForbidden("Only agents or admins can access this resource.")
		}
		return c.Next()
	}
}
