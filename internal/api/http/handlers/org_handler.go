package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// OrgHandler manages divisions, departments and manager linkage.
type OrgHandler struct {
	org *service.OrgService
}

// NewOrgHandler constructs the handler.
func NewOrgHandler(org *service.OrgService) *OrgHandler {
	return &OrgHandler{org: org}
}

// CreateDivision creates a division.
func (h *OrgHandler) CreateDivision(c *fiber.Ctx) error {
	var req dto.DivisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Name == nil {
		return apperrors.NewValidationError("name required", nil)
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	div, err := h.org.CreateDivision(c.Context(), *req.Name, isActive)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDivisionResponse(div)})
}

// UpdateDivision patches a division.
func (h *OrgHandler) UpdateDivision(c *fiber.Ctx) error {
	var req dto.DivisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	div, err := h.org.UpdateDivision(c.Context(), c.Params("id"), service.DivisionInput{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDivisionResponse(div)})
}

// DeleteDivision soft-deletes a division, detaching child departments.
func (h *OrgHandler) DeleteDivision(c *fiber.Ctx) error {
	if err := h.org.DeleteDivision(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListDivisions returns a filtered page of divisions.
func (h *OrgHandler) ListDivisions(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	filter := repository.DivisionFilter{
		Search:    optionalQuery(c, "search"),
		IsActive:  optionalBoolQuery(c, "active"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Limit:     limit,
		Offset:    offset,
	}
	divisions, meta, err := h.org.ListDivisions(c.Context(), filter, page)
	if err != nil {
		return err
	}
	out := make([]dto.DivisionResponse, 0, len(divisions))
	for i := range divisions {
		out = append(out, dto.NewDivisionResponse(&divisions[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": dto.NewPageMetaResponse(meta)})
}

// CreateDepartment creates a department under a division.
func (h *OrgHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	result, err := h.org.CreateDepartment(c.Context(), c.Params("divisionId"), service.DepartmentCreateInput{
		Name:       req.Name,
		ManagerIDs: req.ManagerIDs,
		IsActive:   isActive,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(result)})
}

// UpdateDepartment patches a department. Providing managerIds replaces the
// whole manager set.
func (h *OrgHandler) UpdateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.org.UpdateDepartment(c.Context(), c.Params("id"), service.DepartmentUpdateInput{
		Name:       req.Name,
		ManagerIDs: req.ManagerIDs,
		IsActive:   req.IsActive,
		DivisionID: req.DivisionID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(result)})
}

// DeleteDepartment soft-deletes a department with full cascade.
func (h *OrgHandler) DeleteDepartment(c *fiber.Ctx) error {
	if err := h.org.DeleteDepartment(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// GetDepartment returns one department with its roster.
func (h *OrgHandler) GetDepartment(c *fiber.Ctx) error {
	result, err := h.org.GetDepartment(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(result)})
}

// ManagedScope returns the calling manager's departments and the technicians
// under them.
func (h *OrgHandler) ManagedScope(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	departments, technicians, err := h.org.ManagedScope(c.Context(), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewManagedScopeResponse(departments, technicians)})
}

// ListDepartments returns a filtered page of departments with rosters.
func (h *OrgHandler) ListDepartments(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c)
	filter := repository.DepartmentFilter{
		DivisionID: optionalQuery(c, "divisionId"),
		Search:     optionalQuery(c, "search"),
		IsActive:   optionalBoolQuery(c, "active"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		Limit:      limit,
		Offset:     offset,
	}
	results, meta, err := h.org.ListDepartments(c.Context(), filter, page)
	if err != nil {
		return err
	}
	out := make([]dto.DepartmentResponse, 0, len(results))
	for i := range results {
		out = append(out, dto.NewDepartmentResponse(&results[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": dto.NewPageMetaResponse(meta)})
}
