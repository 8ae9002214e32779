package domain

import "time"

// PartyRole identifies which kind of entity sits on one side of an assignment.
type PartyRole string

const (
	PartyRoleCustomer   PartyRole = "CUSTOMER"
	PartyRoleSuperadmin PartyRole = "SUPERADMIN"
	PartyRoleManager    PartyRole = "MANAGER"
	PartyRoleTechnician PartyRole = "TECHNICIAN"
	PartyRoleAssistant  PartyRole = "ASSISTANT"
	PartyRoleDepartment PartyRole = "DEPARTMENT"
)

// PartyRoleForAdmin maps a staff role to its party role.
func PartyRoleForAdmin(role AdminRole) PartyRole {
	return PartyRole(role)
}

// IsAdminParty reports whether the role addresses an admin account.
func (r PartyRole) IsAdminParty() bool {
	switch r {
	case PartyRoleSuperadmin, PartyRoleManager, PartyRoleTechnician, PartyRoleAssistant:
		return true
	}
	return false
}

// AssignmentParty points to exactly one concrete entity consistent with Role.
type AssignmentParty struct {
	Role         PartyRole
	AdminID      *string
	CustomerID   *string
	DepartmentID *string
}

// Resolved reports whether exactly one id is set and it matches the role kind.
func (p AssignmentParty) Resolved() bool {
	set := 0
	if p.AdminID != nil {
		set++
	}
	if p.CustomerID != nil {
		set++
	}
	if p.DepartmentID != nil {
		set++
	}
	if set != 1 {
		return false
	}
	switch {
	case p.Role.IsAdminParty():
		return p.AdminID != nil
	case p.Role == PartyRoleCustomer:
		return p.CustomerID != nil
	case p.Role == PartyRoleDepartment:
		return p.DepartmentID != nil
	}
	return false
}

// TicketItem is one routed work assignment or update under a ticket.
type TicketItem struct {
	ID          string
	TicketID    string
	Title       string
	Description string
	IsPublic    bool
	AssignedBy  AssignmentParty
	AssignedTo  AssignmentParty
	Assets      []TicketAsset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
