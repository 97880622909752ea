package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staffdesk/internal/domain"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

// RequireRoles ensures the authenticated credential holds one of the
// allowed roles. An empty allow list only requires authentication.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		cred, ok := CredentialFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[cred.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequirePermission ensures the authenticated credential is granted the
// action on the module. The admin role always passes; everyone else is
// decided by the permission evaluator over stored grants.
func RequirePermission(module domain.Module, action domain.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cred, ok := CredentialFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !HasPermission(cred, module, action) {
			return apperrors.NewForbidden("permission denied")
		}
		return c.Next()
	}
}
