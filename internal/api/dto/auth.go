package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AdminSignupRequest registers a staff account.
type AdminSignupRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Phone    *string `json:"phone,omitempty"`
}

// SigninRequest authenticates by email and password.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CustomerSignupRequest registers a customer account.
type CustomerSignupRequest struct {
	FirstName string  `json:"firstName"`
	LastName  *string `json:"lastName,omitempty"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Password  string  `json:"password"`
}

// OTPRequest asks for a one-time code.
type OTPRequest struct {
	Email string `json:"email"`
}

// OTPVerifyRequest redeems a one-time code.
type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AdminResponse is the staff account representation.
type AdminResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Phone          *string   `json:"phone,omitempty"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	DepartmentID   *string   `json:"departmentId,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewAdminResponse maps a domain admin.
func NewAdminResponse(admin *domain.Admin) AdminResponse {
	return AdminResponse{
		ID:             admin.ID,
		Name:           admin.Name,
		Email:          admin.Email,
		Role:           string(admin.Role),
		Phone:          admin.Phone,
		ProfilePicture: admin.ProfilePicture,
		DepartmentID:   admin.DepartmentID,
		IsActive:       admin.IsActive,
		CreatedAt:      admin.CreatedAt,
		UpdatedAt:      admin.UpdatedAt,
	}
}

// CustomerResponse is the customer account representation.
type CustomerResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     *string   `json:"lastName,omitempty"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	IsVerified   bool      `json:"isVerified"`
	IsRegistered bool      `json:"isRegistered"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewCustomerResponse maps a domain customer.
func NewCustomerResponse(customer *domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           customer.ID,
		FirstName:    customer.FirstName,
		LastName:     customer.LastName,
		Email:        customer.Email,
		Phone:        customer.Phone,
		Address:      customer.Address,
		IsVerified:   customer.IsVerified,
		IsRegistered: customer.IsRegistered,
		CreatedAt:    customer.CreatedAt,
		UpdatedAt:    customer.UpdatedAt,
	}
}
