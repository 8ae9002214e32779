package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// IdentityService manages staff and customer accounts beyond the credential
// flows handled by AuthService.
type IdentityService struct {
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	logger    *zap.Logger
}

// IdentityDependencies bundles repositories for the identity service.
type IdentityDependencies struct {
	AdminRepo    repository.AdminRepository
	CustomerRepo repository.CustomerRepository
	Logger       *zap.Logger
}

// NewIdentityService constructs the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	return &IdentityService{admins: deps.AdminRepo, customers: deps.CustomerRepo, logger: deps.Logger}
}

// AdminUpdateInput patches admin scalar fields. Department membership is owned
// by org mutations and is never writable here.
type AdminUpdateInput struct {
	Name           *string
	Email          *string
	Role           *domain.AdminRole
	Phone          *string
	ProfilePicture *string
	IsActive       *bool
}

// GetAdmin loads one staff account.
func (s *IdentityService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("admin", map[string]any{"admin_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// UpdateAdmin applies a partial update to a staff account.
func (s *IdentityService) UpdateAdmin(ctx context.Context, id string, input AdminUpdateInput) (*domain.Admin, error) {
	admin, err := s.GetAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		admin.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email required", nil)
		}
		if !strings.EqualFold(email, admin.Email) {
			if _, err := s.admins.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("email already in use", map[string]any{"email": email})
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
		}
		admin.Email = email
	}
	if input.Role != nil {
		if !domain.ValidAdminRole(*input.Role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		admin.Role = *input.Role
	}
	if input.Phone != nil {
		admin.Phone = input.Phone
	}
	if input.ProfilePicture != nil {
		admin.ProfilePicture = input.ProfilePicture
	}
	if input.IsActive != nil {
		admin.IsActive = *input.IsActive
	}

	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// DeleteAdmin soft-deletes the account and severs its department links in one
// transaction.
func (s *IdentityService) DeleteAdmin(ctx context.Context, id string) error {
	if err := s.admins.SoftDeleteCascade(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListAdmins returns a filtered page of staff accounts.
func (s *IdentityService) ListAdmins(ctx context.Context, filter repository.AdminFilter, page int) ([]domain.Admin, PageMeta, error) {
	admins, total, err := s.admins.List(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	return admins, NewPageMeta(total, page, filter.Limit), nil
}

// GetCustomer loads one customer account.
func (s *IdentityService) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return customer, nil
}

// ListCustomers returns a filtered page of customer accounts.
func (s *IdentityService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, page int) ([]domain.Customer, PageMeta, error) {
	customers, total, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	return customers, NewPageMeta(total, page, filter.Limit), nil
}

// DeleteCustomer soft-deletes a customer account.
func (s *IdentityService) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.customers.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
