package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// AuthService owns signup, signin, OTP verification and password changes for
// both admin and customer accounts.
type AuthService struct {
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
	otp       persistence.OTPStore
	mailer    Mailer
	cfg       *config.Config
	logger    *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	AdminRepo    repository.AdminRepository
	CustomerRepo repository.CustomerRepository
	Tokens       *auth.TokenManager
	Hasher       *auth.PasswordHasher
	OTPStore     persistence.OTPStore
	Mailer       Mailer
	Config       *config.Config
	Logger       *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		admins:    deps.AdminRepo,
		customers: deps.CustomerRepo,
		tokens:    deps.Tokens,
		hasher:    deps.Hasher,
		otp:       deps.OTPStore,
		mailer:    deps.Mailer,
		cfg:       deps.Config,
		logger:    deps.Logger,
	}
}

// AdminSignupInput holds the staff registration payload.
type AdminSignupInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.AdminRole
	Phone    *string
}

// CustomerSignupInput holds the customer registration payload.
type CustomerSignupInput struct {
	FirstName string
	LastName  *string
	Email     string
	Phone     *string
	Password  string
}

// AuthResult is a signed token paired with its metadata.
type AuthResult struct {
	AccessToken string
	Token       *domain.Token
}

// OTPResult reports an issued one-time code. Code is only populated outside
// production when echoing is enabled.
type OTPResult struct {
	Email string
	Code  string
}

// SignupAdmin registers a staff account.
func (s *AuthService) SignupAdmin(ctx context.Context, input AdminSignupInput) (*domain.Admin, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password required", nil)
	}
	if !domain.ValidAdminRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if _, err := s.admins.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already in use", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// SigninAdmin authenticates a staff account and issues an access token.
func (s *AuthService) SigninAdmin(ctx context.Context, email, password string) (*domain.Admin, *AuthResult, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !admin.IsActive || !s.hasher.Compare(admin.PasswordHash, password) {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	role := admin.Role
	signed, token, err := s.tokens.Issue(admin.ID, domain.SubjectTypeAdmin, &role)
	if err != nil {
		return nil, nil, err
	}
	return admin, &AuthResult{AccessToken: signed, Token: token}, nil
}

// SignupCustomer registers a customer account. An existing unregistered
// account for the same email is upgraded in place instead of duplicated.
func (s *AuthService) SignupCustomer(ctx context.Context, input CustomerSignupInput) (*domain.Customer, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FirstName == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("first name, email and password required", nil)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	existing, err := s.customers.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if existing.IsRegistered {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
		}
		existing.FirstName = input.FirstName
		existing.LastName = input.LastName
		if existing.Phone == nil {
			existing.Phone = input.Phone
		}
		existing.PasswordHash = &hash
		existing.IsRegistered = true
		if err := s.customers.Update(ctx, existing); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.sendVerificationCode(ctx, existing)
		return existing, nil
	case errors.Is(err, pgx.ErrNoRows):
		customer := &domain.Customer{
			FirstName:    input.FirstName,
			LastName:     input.LastName,
			Email:        input.Email,
			Phone:        input.Phone,
			PasswordHash: &hash,
			IsRegistered: true,
		}
		if err := s.customers.Create(ctx, customer); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.sendVerificationCode(ctx, customer)
		return customer, nil
	default:
		return nil, apperrors.MapError(err)
	}
}

// SigninCustomer authenticates a customer and issues an access token.
func (s *AuthService) SigninCustomer(ctx context.Context, email, password string) (*domain.Customer, *AuthResult, error) {
	customer, err := s.customers.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !customer.IsRegistered || customer.PasswordHash == nil || !s.hasher.Compare(*customer.PasswordHash, password) {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	signed, token, err := s.tokens.Issue(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, err
	}
	return customer, &AuthResult{AccessToken: signed, Token: token}, nil
}

// sendVerificationCode issues a verification code on signup. Failures are
// logged only; the customer can always re-request a code.
func (s *AuthService) sendVerificationCode(ctx context.Context, customer *domain.Customer) {
	if customer.IsVerified {
		return
	}
	code, err := auth.GenerateOTP()
	if err != nil {
		s.logger.Warn("signup code generation failed", zap.String("email", customer.Email), zap.Error(err))
		return
	}
	if err := s.otp.Save(ctx, customer.Email, code, s.cfg.Auth.OTPTTL()); err != nil {
		s.logger.Warn("signup code save failed", zap.String("email", customer.Email), zap.Error(err))
		return
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.cfg.Auth.OTPTTL())
	if err := s.mailer.Send(ctx, customer.Email, "Verification code", body); err != nil {
		s.logger.Warn("otp mail delivery failed", zap.String("email", customer.Email), zap.Error(err))
	}
}

// RequestOTP issues a one-time verification code for the customer's email.
// The response never reveals whether the email exists.
func (s *AuthService) RequestOTP(ctx context.Context, email string) (*OTPResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}
	result := &OTPResult{Email: email}

	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, nil
		}
		return nil, apperrors.MapError(err)
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.otp.Save(ctx, email, code, s.cfg.Auth.OTPTTL()); err != nil {
		return nil, apperrors.MapError(err)
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.cfg.Auth.OTPTTL())
	if err := s.mailer.Send(ctx, customer.Email, "Verification code", body); err != nil {
		s.logger.Warn("otp mail delivery failed", zap.String("email", email), zap.Error(err))
	}
	if s.cfg.Auth.ExposeOTP && !s.cfg.App.IsProduction() {
		result.Code = code
	}
	return result, nil
}

// VerifyOTP consumes a one-time code and marks the customer verified.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.Customer, *AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ok, err := s.otp.Verify(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if !ok {
		return nil, nil, apperrors.NewUnauthorized("invalid or expired code")
	}

	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("customer", map[string]any{"email": email})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !customer.IsVerified || !customer.IsRegistered {
		customer.IsVerified = true
		customer.IsRegistered = true
		if err := s.customers.Update(ctx, customer); err != nil {
			return nil, nil, apperrors.MapError(err)
		}
	}
	signed, token, err := s.tokens.Issue(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, err
	}
	return customer, &AuthResult{AccessToken: signed, Token: token}, nil
}

// ChangeAdminPassword verifies the current password and stores a new hash.
func (s *AuthService) ChangeAdminPassword(ctx context.Context, adminID, current, next string) error {
	if next == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("admin", map[string]any{"admin_id": adminID})
		}
		return apperrors.MapError(err)
	}
	if !s.hasher.Compare(admin.PasswordHash, current) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	admin.PasswordHash = hash
	if err := s.admins.Update(ctx, admin); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ChangeCustomerPassword verifies the current password and stores a new hash.
func (s *AuthService) ChangeCustomerPassword(ctx context.Context, customerID, current, next string) error {
	if next == "" {
		return apperrors.NewValidationError("new password required", nil)
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return apperrors.MapError(err)
	}
	if customer.PasswordHash == nil || !s.hasher.Compare(*customer.PasswordHash, current) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	customer.PasswordHash = &hash
	if err := s.customers.Update(ctx, customer); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
