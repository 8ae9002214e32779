package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
)

// AdminHandler manages staff accounts.
type AdminHandler struct {
	identity *service.IdentityService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(identity *service.IdentityService) *AdminHandler {
	return &AdminHandler{identity: identity}
}

// List returns a filtered page of staff accounts.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	filter := repository.AdminFilter{
		Search:       optionalQuery(c, "search"),
		DepartmentID: optionalQuery(c, "departmentId"),
		Active:       optionalBoolQuery(c, "active"),
		Limit:        limit,
		Offset:       offset,
	}
	if role := optionalQuery(c, "role"); role != nil {
		r := domain.AdminRole(*role)
		filter.Role = &r
	}

	admins, meta, err := h.identity.ListAdmins(c.Context(), filter, page)
	if err != nil {
		return err
	}
	out := make([]dto.AdminResponse, 0, len(admins))
	for i := range admins {
		out = append(out, dto.NewAdminResponse(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": dto.NewPageMetaResponse(meta)})
}

// Get returns one staff account.
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	admin, err := h.identity.GetAdmin(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminResponse(admin)})
}

// Update patches staff scalar fields.
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	var req struct {
		Name           *string `json:"name,omitempty"`
		Email          *string `json:"email,omitempty"`
		Role           *string `json:"role,omitempty"`
		Phone          *string `json:"phone,omitempty"`
		ProfilePicture *string `json:"profilePicture,omitempty"`
		IsActive       *bool   `json:"isActive,omitempty"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.AdminUpdateInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
		IsActive:       req.IsActive,
	}
	if req.Role != nil {
		role := domain.AdminRole(*req.Role)
		input.Role = &role
	}
	admin, err := h.identity.UpdateAdmin(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminResponse(admin)})
}

// Delete soft-deletes a staff account and severs its department links.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	if err := h.identity.DeleteAdmin(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListCustomers returns a filtered page of customer accounts.
func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	filter := repository.CustomerFilter{
		Search:     optionalQuery(c, "search"),
		Verified:   optionalBoolQuery(c, "verified"),
		Registered: optionalBoolQuery(c, "registered"),
		Limit:      limit,
		Offset:     offset,
	}
	customers, meta, err := h.identity.ListCustomers(c.Context(), filter, page)
	if err != nil {
		return err
	}
	out := make([]dto.CustomerResponse, 0, len(customers))
	for i := range customers {
		out = append(out, dto.NewCustomerResponse(&customers[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": dto.NewPageMetaResponse(meta)})
}

// DeleteCustomer soft-deletes a customer account.
func (h *AdminHandler) DeleteCustomer(c *fiber.Ctx) error {
	if err := h.identity.DeleteCustomer(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}
