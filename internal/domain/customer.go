package domain

import "time"

// Customer models an end-customer. Unregistered customers are created lazily
// the first time a ticket references an unknown email or phone.
type Customer struct {
	ID                string
	FirstName         string
	LastName          *string
	Email             string
	Phone             *string
	Address           *string
	PasswordHash      *string
	InsuranceProvider *string
	InsuranceNumber   *string
	IsVerified        bool
	IsRegistered      bool
	IsDeleted         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
