package service

import (
	"context"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// Resolver answers read-side assignment questions: who belongs to a
// department, what a manager's reach is, and which receiver rows a principal
// matches for notification fan-out. It holds no state of its own and performs
// no writes, so the pure helpers below are shared by the org and ticket
// services and testable in isolation.
type Resolver struct {
	admins      repository.AdminRepository
	departments repository.DepartmentRepository
}

// NewResolver builds the resolver.
func NewResolver(admins repository.AdminRepository, departments repository.DepartmentRepository) *Resolver {
	return &Resolver{admins: admins, departments: departments}
}

// DedupeIDs drops duplicates while preserving first-seen order.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DiffIDs computes the symmetric difference between the previous and next id
// sets: ids only in next are added, ids only in prev are removed.
func DiffIDs(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		prevSet[id] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}
	for _, id := range next {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := nextSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// ExcludeManagers removes every technician that also appears in the manager
// set, so a manager is never double-counted as a technician.
func ExcludeManagers(technicians []domain.AdminRef, managerIDs []string) []domain.AdminRef {
	if len(managerIDs) == 0 {
		return technicians
	}
	managers := make(map[string]struct{}, len(managerIDs))
	for _, id := range managerIDs {
		managers[id] = struct{}{}
	}
	out := make([]domain.AdminRef, 0, len(technicians))
	for _, tech := range technicians {
		if _, ok := managers[tech.ID]; ok {
			continue
		}
		out = append(out, tech)
	}
	return out
}

// DepartmentRoster returns the department's managers and its technicians with
// the manager overlap removed.
func (r *Resolver) DepartmentRoster(ctx context.Context, deptID string) ([]domain.AdminRef, []domain.AdminRef, error) {
	managers, err := r.departments.ListManagers(ctx, deptID)
	if err != nil {
		return nil, nil, err
	}
	technicians, err := r.departments.ListTechnicians(ctx, deptID)
	if err != nil {
		return nil, nil, err
	}
	managerIDs := make([]string, 0, len(managers))
	for _, m := range managers {
		managerIDs = append(managerIDs, m.ID)
	}
	return managers, ExcludeManagers(technicians, managerIDs), nil
}

// ManagerScope returns the departments an admin manages and, transitively,
// the technicians under those departments.
func (r *Resolver) ManagerScope(ctx context.Context, adminID string) ([]domain.Department, []domain.AdminRef, error) {
	departments, err := r.departments.ListManagedBy(ctx, adminID)
	if err != nil {
		return nil, nil, err
	}
	var technicians []domain.AdminRef
	seen := make(map[string]struct{})
	for _, dept := range departments {
		techs, err := r.departments.ListTechnicians(ctx, dept.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, tech := range techs {
			if _, ok := seen[tech.ID]; ok {
				continue
			}
			seen[tech.ID] = struct{}{}
			technicians = append(technicians, tech)
		}
	}
	return departments, technicians, nil
}

// ReceiverMatch builds the notification fan-in predicate for a principal.
// Customers match rows addressed to them, managers match rows addressed to any
// department they manage, every other admin role matches by admin id.
func (r *Resolver) ReceiverMatch(ctx context.Context, role domain.PartyRole, id string) (repository.ReceiverMatch, error) {
	switch {
	case role == domain.PartyRoleCustomer:
		return repository.ReceiverMatch{Role: role, CustomerID: &id}, nil
	case role == domain.PartyRoleManager:
		departments, err := r.departments.ListManagedBy(ctx, id)
		if err != nil {
			return repository.ReceiverMatch{}, err
		}
		deptIDs := make([]string, 0, len(departments))
		for _, dept := range departments {
			deptIDs = append(deptIDs, dept.ID)
		}
		// managers also receive anything addressed to them directly
		return repository.ReceiverMatch{Role: role, AdminID: &id, DepartmentIDs: deptIDs}, nil
	default:
		return repository.ReceiverMatch{Role: role, AdminID: &id}, nil
	}
}
