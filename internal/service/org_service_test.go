package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

func newOrgFixture(t *testing.T) (*OrgService, *memStore) {
	t.Helper()
	store := newMemStore()
	adminRepo := &fakeAdminRepo{s: store}
	deptRepo := &fakeDepartmentRepo{s: store}
	divRepo := &fakeDivisionRepo{s: store}
	resolver := NewResolver(adminRepo, deptRepo)
	svc := NewOrgService(OrgDependencies{
		DivisionRepo:   divRepo,
		DepartmentRepo: deptRepo,
		AdminRepo:      adminRepo,
		Resolver:       resolver,
		Logger:         zap.NewNop(),
	})
	return svc, store
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func TestOrgLifecycle(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()
	m1 := store.addAdmin("Manager One", "m1@example.com", domain.AdminRoleManager)
	m2 := store.addAdmin("Manager Two", "m2@example.com", domain.AdminRoleManager)

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}

	dept, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{
		Name:       "Support",
		ManagerIDs: []string{m1.ID},
		IsActive:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(dept.Managers) != 1 || dept.Managers[0].ID != m1.ID {
		t.Fatalf("managers = %v, want [%s]", dept.Managers, m1.ID)
	}
	if store.admins[m1.ID].DepartmentID == nil || *store.admins[m1.ID].DepartmentID != dept.Department.ID {
		t.Fatal("manager back-reference not set on create")
	}

	managers := []string{m1.ID, m2.ID}
	updated, err := svc.UpdateDepartment(ctx, dept.Department.ID, DepartmentUpdateInput{ManagerIDs: &managers})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Managers) != 2 {
		t.Fatalf("managers after replace = %d, want 2", len(updated.Managers))
	}

	if err := svc.DeleteDepartment(ctx, dept.Department.ID); err != nil {
		t.Fatal(err)
	}
	if store.admins[m1.ID].DepartmentID != nil || store.admins[m2.ID].DepartmentID != nil {
		t.Fatal("delete cascade left department back-references")
	}
	if len(store.managedBy[dept.Department.ID]) != 0 {
		t.Fatal("delete cascade left managed rows")
	}
}

func TestUpdateDepartmentManagerSemantics(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()
	m1 := store.addAdmin("Manager One", "m1@example.com", domain.AdminRoleManager)

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}
	dept, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{
		Name:       "Support",
		ManagerIDs: []string{m1.ID},
		IsActive:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	deptID := dept.Department.ID

	// nil manager set keeps links untouched
	name := "Support EMEA"
	result, err := svc.UpdateDepartment(ctx, deptID, DepartmentUpdateInput{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Managers) != 1 {
		t.Fatalf("nil manager set changed links: %v", result.Managers)
	}

	// empty slice clears all links
	empty := []string{}
	result, err = svc.UpdateDepartment(ctx, deptID, DepartmentUpdateInput{ManagerIDs: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Managers) != 0 {
		t.Fatalf("empty manager set kept links: %v", result.Managers)
	}
	if store.admins[m1.ID].DepartmentID != nil {
		t.Fatal("cleared manager kept its back-reference")
	}
}

func TestCreateDepartmentRejectsBadManagers(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()
	tech := store.addAdmin("Tech One", "tech@example.com", domain.AdminRoleTechnician)

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{
		Name:       "Support",
		ManagerIDs: []string{tech.ID},
	})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}

	_, err = svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{
		Name:       "Support",
		ManagerIDs: []string{"ghost"},
	})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("unknown id code = %s, want VALIDATION_FAILED", code)
	}
}

func TestUpdateDepartmentRejectsAttachedManager(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()
	m1 := store.addAdmin("Manager One", "m1@example.com", domain.AdminRoleManager)
	m2 := store.addAdmin("Manager Two", "m2@example.com", domain.AdminRoleManager)

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}
	first, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{Name: "First", ManagerIDs: []string{m1.ID}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{Name: "Second", ManagerIDs: []string{m2.ID}})
	if err != nil {
		t.Fatal(err)
	}
	_ = first

	// m1 is attached to First; pulling them into Second must fail
	managers := []string{m1.ID, m2.ID}
	_, err = svc.UpdateDepartment(ctx, second.Department.ID, DepartmentUpdateInput{ManagerIDs: &managers})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestDepartmentNameConflict(t *testing.T) {
	svc, _ := newOrgFixture(t)
	ctx := context.Background()

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{Name: "Support"}); err != nil {
		t.Fatal(err)
	}
	_, err = svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{Name: "support"})
	if code := errorCode(t, err); code != "CONFLICT" {
		t.Fatalf("code = %s, want CONFLICT", code)
	}
}

func TestCreateDepartmentReportsFailedLinks(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()
	m1 := store.addAdmin("Manager One", "m1@example.com", domain.AdminRoleManager)
	m2 := store.addAdmin("Manager Two", "m2@example.com", domain.AdminRoleManager)
	store.failManagerIDs[m2.ID] = true

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}
	result, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{
		Name:       "Support",
		ManagerIDs: []string{m1.ID, m2.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.FailedManagerIDs) != 1 || result.FailedManagerIDs[0] != m2.ID {
		t.Fatalf("FailedManagerIDs = %v, want [%s]", result.FailedManagerIDs, m2.ID)
	}
	if len(result.Managers) != 1 || result.Managers[0].ID != m1.ID {
		t.Fatalf("managers = %v, want only %s", result.Managers, m1.ID)
	}
}

func TestDeleteDivisionDetachesDepartments(t *testing.T) {
	svc, store := newOrgFixture(t)
	ctx := context.Background()

	div, err := svc.CreateDivision(ctx, "Ops", true)
	if err != nil {
		t.Fatal(err)
	}
	dept, err := svc.CreateDepartment(ctx, div.ID, DepartmentCreateInput{Name: "Support"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDivision(ctx, div.ID); err != nil {
		t.Fatal(err)
	}
	if store.departments[dept.Department.ID].DivisionID != nil {
		t.Fatal("division delete did not detach child department")
	}
	if err := svc.DeleteDivision(ctx, div.ID); errorCode(t, err) != "NOT_FOUND" {
		t.Fatal("second delete should be NOT_FOUND")
	}
}

func TestNewPageMeta(t *testing.T) {
	cases := []struct {
		total      int64
		limit      int
		totalPages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, tc := range cases {
		meta := NewPageMeta(tc.total, 1, tc.limit)
		if meta.TotalPages != tc.totalPages {
			t.Errorf("NewPageMeta(%d, 1, %d).TotalPages = %d, want %d",
				tc.total, tc.limit, meta.TotalPages, tc.totalPages)
		}
	}
}
