package domain

import "time"

// Notification is one fan-out event record.
type Notification struct {
	ID               string
	Type             string
	Title            string
	Body             string
	SenderRole       PartyRole
	SenderAdminID    *string
	SenderCustomerID *string
	TicketID         *string
	Receivers        []NotificationReceiver
	CreatedAt        time.Time
}

// NotificationReceiver addresses one recipient of a notification.
type NotificationReceiver struct {
	ID             string
	NotificationID string
	Role           PartyRole
	AdminID        *string
	CustomerID     *string
	DepartmentID   *string
	ReadAt         *time.Time
}
