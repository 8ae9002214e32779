package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

const principalKey = "auth.principal"

// Principal is the authenticated caller stored on the request context.
type Principal struct {
	SubjectID   string
	SubjectType domain.SubjectType
	Role        *domain.AdminRole
}

// PartyRole maps the principal to its assignment party role.
func (p Principal) PartyRole() domain.PartyRole {
	if p.SubjectType == domain.SubjectTypeCustomer {
		return domain.PartyRoleCustomer
	}
	if p.Role != nil {
		return domain.PartyRoleForAdmin(*p.Role)
	}
	return ""
}

// Middleware verifies the bearer token and stores the principal.
func Middleware(manager *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return apperrors.NewUnauthorized("missing bearer token")
		}
		claims, err := manager.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return err
		}
		c.Locals(principalKey, Principal{
			SubjectID:   claims.Subject,
			SubjectType: claims.SubjectType,
			Role:        claims.Role,
		})
		return c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}
