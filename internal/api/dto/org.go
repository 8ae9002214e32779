package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// DivisionRequest creates or updates a division.
type DivisionRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// DivisionResponse is the division representation.
type DivisionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDivisionResponse maps a domain division.
func NewDivisionResponse(div *domain.Division) DivisionResponse {
	return DivisionResponse{
		ID:        div.ID,
		Name:      div.Name,
		IsActive:  div.IsActive,
		CreatedAt: div.CreatedAt,
		UpdatedAt: div.UpdatedAt,
	}
}

// DepartmentCreateRequest creates a department under a division.
type DepartmentCreateRequest struct {
	Name       string   `json:"name"`
	ManagerIDs []string `json:"managerIds"`
	IsActive   *bool    `json:"isActive,omitempty"`
}

// DepartmentUpdateRequest patches a department. Omitting managerIds keeps the
// current manager set; an empty array clears it.
type DepartmentUpdateRequest struct {
	Name       *string   `json:"name,omitempty"`
	ManagerIDs *[]string `json:"managerIds,omitempty"`
	IsActive   *bool     `json:"isActive,omitempty"`
	DivisionID *string   `json:"divisionId,omitempty"`
}

// AdminRefResponse is a compact admin summary.
type AdminRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DepartmentResponse is a department with its roster.
type DepartmentResponse struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	IsActive         bool               `json:"isActive"`
	Division         *DivisionResponse  `json:"division,omitempty"`
	Managers         []AdminRefResponse `json:"managers"`
	Technicians      []AdminRefResponse `json:"technicians"`
	FailedManagerIDs []string           `json:"failedManagerIds,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// NewDepartmentResponse maps a department result.
func NewDepartmentResponse(result *service.DepartmentResult) DepartmentResponse {
	resp := DepartmentResponse{
		ID:               result.Department.ID,
		Name:             result.Department.Name,
		IsActive:         result.Department.IsActive,
		Managers:         newAdminRefs(result.Managers),
		Technicians:      newAdminRefs(result.Technicians),
		FailedManagerIDs: result.FailedManagerIDs,
		CreatedAt:        result.Department.CreatedAt,
		UpdatedAt:        result.Department.UpdatedAt,
	}
	if result.Division != nil {
		div := NewDivisionResponse(result.Division)
		resp.Division = &div
	}
	return resp
}

func newAdminRefs(refs []domain.AdminRef) []AdminRefResponse {
	out := make([]AdminRefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, AdminRefResponse{ID: ref.ID, Name: ref.Name})
	}
	return out
}

// DepartmentRefResponse is a compact department summary.
type DepartmentRefResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// ManagedScopeResponse is a manager's reach: managed departments and the
// technicians under them.
type ManagedScopeResponse struct {
	Departments []DepartmentRefResponse `json:"departments"`
	Technicians []AdminRefResponse      `json:"technicians"`
}

// NewManagedScopeResponse maps a resolved manager scope.
func NewManagedScopeResponse(departments []domain.Department, technicians []domain.AdminRef) ManagedScopeResponse {
	depts := make([]DepartmentRefResponse, 0, len(departments))
	for _, dept := range departments {
		depts = append(depts, DepartmentRefResponse{ID: dept.ID, Name: dept.Name, IsActive: dept.IsActive})
	}
	return ManagedScopeResponse{Departments: depts, Technicians: newAdminRefs(technicians)}
}

// PageMetaResponse is pagination metadata for listings.
type PageMetaResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPageMetaResponse maps service pagination meta.
func NewPageMetaResponse(meta service.PageMeta) PageMetaResponse {
	return PageMetaResponse{
		Total:      meta.Total,
		Page:       meta.Page,
		Limit:      meta.Limit,
		TotalPages: meta.TotalPages,
	}
}
