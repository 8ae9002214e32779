package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// AuthHandler exposes credential flows for staff and customers.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AdminSignup registers a staff account (superadmin only, guarded in routes).
func (h *AuthHandler) AdminSignup(c *fiber.Ctx) error {
	var req dto.AdminSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := h.authService.SignupAdmin(c.Context(), service.AdminSignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.AdminRole(req.Role),
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAdminResponse(admin)})
}

// AdminSignin issues a staff access token.
func (h *AuthHandler) AdminSignin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, result, err := h.authService.SigninAdmin(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"admin": dto.NewAdminResponse(admin),
		"token": dto.TokenResponse{AccessToken: result.AccessToken, ExpiresAt: result.Token.ExpiresAt},
	}})
}

// CustomerSignup registers a customer account.
func (h *AuthHandler) CustomerSignup(c *fiber.Ctx) error {
	var req dto.CustomerSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, err := h.authService.SignupCustomer(c.Context(), service.CustomerSignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCustomerResponse(customer)})
}

// CustomerSignin issues a customer access token.
func (h *AuthHandler) CustomerSignin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, result, err := h.authService.SigninCustomer(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"customer": dto.NewCustomerResponse(customer),
		"token":    dto.TokenResponse{AccessToken: result.AccessToken, ExpiresAt: result.Token.ExpiresAt},
	}})
}

// RequestOTP issues a one-time code for email verification or signin.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.authService.RequestOTP(c.Context(), req.Email)
	if err != nil {
		return err
	}
	data := fiber.Map{"email": result.Email}
	if result.Code != "" {
		data["code"] = result.Code
	}
	return c.JSON(fiber.Map{"data": data})
}

// VerifyOTP redeems a one-time code and signs the customer in.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, result, err := h.authService.VerifyOTP(c.Context(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"customer": dto.NewCustomerResponse(customer),
		"token":    dto.TokenResponse{AccessToken: result.AccessToken, ExpiresAt: result.Token.ExpiresAt},
	}})
}

// ChangePassword rotates the caller's own password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var err error
	if principal.SubjectType == domain.SubjectTypeCustomer {
		err = h.authService.ChangeCustomerPassword(c.Context(), principal.SubjectID, req.CurrentPassword, req.NewPassword)
	} else {
		err = h.authService.ChangeAdminPassword(c.Context(), principal.SubjectID, req.CurrentPassword, req.NewPassword)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}
