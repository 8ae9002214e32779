package domain

import "time"

// Division is the top organizational unit. Deleting a division detaches its
// departments instead of cascading.
type Division struct {
	ID        string
	Name      string
	IsActive  bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Department belongs to at most one division and links to managers through
// ManagedDepartment rows. Technicians reference it via Admin.DepartmentID.
type Department struct {
	ID         string
	Name       string
	DivisionID *string
	IsActive   bool
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ManagedDepartment is one manager-to-department assignment.
type ManagedDepartment struct {
	ID           string
	AdminID      string
	DepartmentID string
	CreatedAt    time.Time
}

// DepartmentRoster is a department with its resolved people.
type DepartmentRoster struct {
	Department  Department
	Division    *Division
	Managers    []AdminRef
	Technicians []AdminRef
}
