package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// OrgService owns divisions, departments and the manager/technician linkage.
type OrgService struct {
	divisions   repository.DivisionRepository
	departments repository.DepartmentRepository
	admins      repository.AdminRepository
	resolver    *Resolver
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// OrgDependencies bundles repositories for the org service.
type OrgDependencies struct {
	DivisionRepo   repository.DivisionRepository
	DepartmentRepo repository.DepartmentRepository
	AdminRepo      repository.AdminRepository
	Resolver       *Resolver
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewOrgService constructs the service.
func NewOrgService(deps OrgDependencies) *OrgService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrgService{
		divisions:   deps.DivisionRepo,
		departments: deps.DepartmentRepo,
		admins:      deps.AdminRepo,
		resolver:    deps.Resolver,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// DivisionInput describes division create/update payloads.
type DivisionInput struct {
	Name     *string
	IsActive *bool
}

// DepartmentCreateInput describes the department creation payload.
type DepartmentCreateInput struct {
	Name       string
	ManagerIDs []string
	IsActive   bool
}

// DepartmentUpdateInput describes the department update payload. A nil
// ManagerIDs leaves the manager set untouched; an empty slice clears it.
type DepartmentUpdateInput struct {
	Name       *string
	ManagerIDs *[]string
	IsActive   *bool
	DivisionID *string
}

// DepartmentResult is a department with its resolved roster. FailedManagerIDs
// lists admins whose link row could not be written by the per-row fallback.
type DepartmentResult struct {
	domain.DepartmentRoster
	FailedManagerIDs []string
}

// PageMeta describes pagination metadata for listings.
type PageMeta struct {
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewPageMeta derives meta from a total count and page parameters.
func NewPageMeta(total int64, page, limit int) PageMeta {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// CreateDivision creates a division, enforcing name uniqueness among
// non-deleted divisions.
func (s *OrgService) CreateDivision(ctx context.Context, name string, isActive bool) (*domain.Division, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if _, err := s.divisions.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("division name already in use", map[string]any{"name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	div := &domain.Division{Name: name, IsActive: isActive}
	if err := s.divisions.Create(ctx, div); err != nil {
		return nil, apperrors.MapError(err)
	}
	return div, nil
}

// UpdateDivision patches scalar fields of a division.
func (s *OrgService) UpdateDivision(ctx context.Context, id string, input DivisionInput) (*domain.Division, error) {
	div, err := s.divisions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("division", map[string]any{"division_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil && !strings.EqualFold(*input.Name, div.Name) {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		if existing, err := s.divisions.GetByName(ctx, name); err == nil && existing.ID != div.ID {
			return nil, apperrors.NewConflict("division name already in use", map[string]any{"name": name})
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		div.Name = name
	}
	if input.IsActive != nil {
		div.IsActive = *input.IsActive
	}
	if err := s.divisions.Update(ctx, div); err != nil {
		return nil, apperrors.MapError(err)
	}
	return div, nil
}

// DeleteDivision detaches child departments and soft-deletes the division.
func (s *OrgService) DeleteDivision(ctx context.Context, id string) error {
	if err := s.divisions.SoftDeleteDetachingDepartments(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("division", map[string]any{"division_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListDivisions returns non-deleted divisions with pagination meta.
func (s *OrgService) ListDivisions(ctx context.Context, filter repository.DivisionFilter, page int) ([]domain.Division, PageMeta, error) {
	divisions, total, err := s.divisions.List(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	return divisions, NewPageMeta(total, page, filter.Limit), nil
}

// CreateDepartment creates a department under a division together with its
// manager links, all in one transaction.
func (s *OrgService) CreateDepartment(ctx context.Context, divisionID string, input DepartmentCreateInput) (*DepartmentResult, error) {
	division, err := s.divisions.GetByID(ctx, divisionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("division", map[string]any{"division_id": divisionID})
		}
		return nil, apperrors.MapError(err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if _, err := s.departments.GetByName(ctx, name); err == nil {
		return nil, apperrors.NewConflict("department name already in use", map[string]any{"name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	managerIDs := DedupeIDs(input.ManagerIDs)
	if _, err := s.validateManagers(ctx, managerIDs, ""); err != nil {
		return nil, err
	}

	dept := &domain.Department{Name: name, DivisionID: &division.ID, IsActive: input.IsActive}
	failed, err := s.departments.CreateWithManagers(ctx, dept, managerIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.warnFailedLinks(dept.ID, failed)
	s.publishDepartmentEvent(ctx, dept.ID, "created", managerIDs)

	return s.departmentResult(ctx, dept, division, failed)
}

// UpdateDepartment patches a department. A provided manager set fully
// replaces the existing one; omitting it leaves managers untouched.
func (s *OrgService) UpdateDepartment(ctx context.Context, id string, input DepartmentUpdateInput) (*DepartmentResult, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil && !strings.EqualFold(*input.Name, dept.Name) {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		if existing, err := s.departments.GetByName(ctx, name); err == nil && existing.ID != dept.ID {
			return nil, apperrors.NewConflict("department name already in use", map[string]any{"name": name})
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		dept.Name = name
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}
	if input.DivisionID != nil {
		if _, err := s.divisions.GetByID(ctx, *input.DivisionID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("division", map[string]any{"division_id": *input.DivisionID})
			}
			return nil, apperrors.MapError(err)
		}
		dept.DivisionID = input.DivisionID
	}

	var failed []string
	if input.ManagerIDs == nil {
		if err := s.departments.Update(ctx, dept); err != nil {
			return nil, apperrors.MapError(err)
		}
	} else {
		managerIDs := DedupeIDs(*input.ManagerIDs)
		if _, err := s.validateManagers(ctx, managerIDs, dept.ID); err != nil {
			return nil, err
		}
		prev, err := s.departments.ListManagerIDs(ctx, dept.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		added, removed := DiffIDs(prev, managerIDs)
		failed, err = s.departments.UpdateWithManagers(ctx, dept, repository.ManagerChange{
			All:     managerIDs,
			Added:   added,
			Removed: removed,
		})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		s.warnFailedLinks(dept.ID, failed)
		s.publishDepartmentEvent(ctx, dept.ID, "managers_replaced", managerIDs)
	}

	return s.departmentResult(ctx, dept, nil, failed)
}

// DeleteDepartment soft-deletes the department and clears every manager and
// technician reference to it, atomically.
func (s *OrgService) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.departments.SoftDeleteCascade(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return apperrors.MapError(err)
	}
	s.publishDepartmentEvent(ctx, id, "deleted", nil)
	return nil
}

// GetDepartment returns one department with its roster.
func (s *OrgService) GetDepartment(ctx context.Context, id string) (*DepartmentResult, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return s.departmentResult(ctx, dept, nil, nil)
}

// ListDepartments returns non-deleted departments with rosters and meta.
func (s *OrgService) ListDepartments(ctx context.Context, filter repository.DepartmentFilter, page int) ([]DepartmentResult, PageMeta, error) {
	departments, total, err := s.departments.List(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	results := make([]DepartmentResult, 0, len(departments))
	for i := range departments {
		result, err := s.departmentResult(ctx, &departments[i], nil, nil)
		if err != nil {
			return nil, PageMeta{}, err
		}
		results = append(results, *result)
	}
	return results, NewPageMeta(total, page, filter.Limit), nil
}

// ManagedScope returns the departments the admin manages and the technicians
// reachable through them.
func (s *OrgService) ManagedScope(ctx context.Context, adminID string) ([]domain.Department, []domain.AdminRef, error) {
	departments, technicians, err := s.resolver.ManagerScope(ctx, adminID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return departments, technicians, nil
}

// validateManagers checks that every candidate resolves to a live MANAGER
// admin and, when currentDeptID is set, that none of them is already attached
// to a different department.
func (s *OrgService) validateManagers(ctx context.Context, managerIDs []string, currentDeptID string) ([]domain.Admin, error) {
	if len(managerIDs) == 0 {
		return nil, nil
	}
	admins, err := s.admins.ListByIDs(ctx, managerIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	found := make(map[string]domain.Admin, len(admins))
	for _, admin := range admins {
		found[admin.ID] = admin
	}

	var missing, notManagers, attached []string
	for _, id := range managerIDs {
		admin, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if admin.Role != domain.AdminRoleManager {
			notManagers = append(notManagers, admin.Name)
			continue
		}
		if currentDeptID != "" && admin.DepartmentID != nil && *admin.DepartmentID != currentDeptID {
			attached = append(attached, admin.Name)
		}
	}
	if len(missing) > 0 || len(notManagers) > 0 || len(attached) > 0 {
		details := map[string]any{}
		if len(missing) > 0 {
			details["unknown_ids"] = missing
		}
		if len(notManagers) > 0 {
			details["not_managers"] = notManagers
		}
		if len(attached) > 0 {
			details["attached_elsewhere"] = attached
		}
		return nil, apperrors.NewValidationError("invalid manager assignment", details)
	}
	return admins, nil
}

func (s *OrgService) departmentResult(ctx context.Context, dept *domain.Department, division *domain.Division, failed []string) (*DepartmentResult, error) {
	managers, technicians, err := s.resolver.DepartmentRoster(ctx, dept.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if division == nil && dept.DivisionID != nil {
		if div, err := s.divisions.GetByID(ctx, *dept.DivisionID); err == nil {
			division = div
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	return &DepartmentResult{
		DepartmentRoster: domain.DepartmentRoster{
			Department:  *dept,
			Division:    division,
			Managers:    managers,
			Technicians: technicians,
		},
		FailedManagerIDs: failed,
	}, nil
}

func (s *OrgService) warnFailedLinks(deptID string, failed []string) {
	if len(failed) == 0 {
		return
	}
	s.logger.Warn("manager link fallback left rows unwritten",
		zap.String("department_id", deptID),
		zap.Strings("admin_ids", failed))
}

func (s *OrgService) publishDepartmentEvent(ctx context.Context, deptID, action string, managerIDs []string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventDepartmentChanged,
		Timestamp: time.Now(),
		Payload: events.DepartmentChangedPayload{
			DepartmentID: deptID,
			Action:       action,
			ManagerIDs:   managerIDs,
		},
	})
}
