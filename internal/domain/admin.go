package domain

import "time"

// AdminRole enumerates staff roles.
type AdminRole string

const (
	AdminRoleSuperadmin AdminRole = "SUPERADMIN"
	AdminRoleManager    AdminRole = "MANAGER"
	AdminRoleTechnician AdminRole = "TECHNICIAN"
	AdminRoleAssistant  AdminRole = "ASSISTANT"
)

// ValidAdminRole reports whether the role is one of the known values.
func ValidAdminRole(role AdminRole) bool {
	switch role {
	case AdminRoleSuperadmin, AdminRoleManager, AdminRoleTechnician, AdminRoleAssistant:
		return true
	}
	return false
}

// Admin models a staff account. DepartmentID is a back-reference maintained by
// department and division mutations, never written by generic admin updates.
type Admin struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           AdminRole
	Phone          *string
	ProfilePicture *string
	DepartmentID   *string
	IsActive       bool
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AdminRef is the compact admin summary used in rosters and listings.
type AdminRef struct {
	ID   string
	Name string
}
