package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// RequireAdminRole allows only admin principals holding one of the given
// roles. With no roles listed, any admin passes.
func RequireAdminRole(roles ...domain.AdminRole) fiber.Handler {
	allowed := make(map[domain.AdminRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAdmin || principal.Role == nil {
			return apperrors.NewForbidden("staff access required")
		}
		if len(allowed) > 0 {
			if _, ok := allowed[*principal.Role]; !ok {
				return apperrors.NewForbidden("insufficient role")
			}
		}
		return c.Next()
	}
}

// RequireCustomer allows only customer principals.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok || principal.SubjectType != domain.SubjectTypeCustomer {
			return apperrors.NewForbidden("customer access required")
		}
		return c.Next()
	}
}
