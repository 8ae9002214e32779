package domain

import "time"

// SubjectType differentiates admin vs customer tokens.
type SubjectType string

const (
	SubjectTypeAdmin    SubjectType = "ADMIN"
	SubjectTypeCustomer SubjectType = "CUSTOMER"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *AdminRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
