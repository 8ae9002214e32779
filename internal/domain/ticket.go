package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// TicketPriority enumerates priority classes.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// TicketUrgency is orthogonal to priority and status.
type TicketUrgency string

const (
	TicketUrgencyNormal    TicketUrgency = "NORMAL"
	TicketUrgencyUrgent    TicketUrgency = "URGENT"
	TicketUrgencyEmergency TicketUrgency = "EMERGENCY"
)

// AssetType classifies an attachment by its URL extension.
type AssetType string

const (
	AssetTypeImage    AssetType = "IMAGE"
	AssetTypeVideo    AssetType = "VIDEO"
	AssetTypeDocument AssetType = "DOCUMENT"
	AssetTypeFile     AssetType = "FILE"
)

// Ticket is the aggregate for service requests. Contact fields are a snapshot
// taken at creation time and never follow later customer edits.
type Ticket struct {
	ID             string
	Title          string
	Description    *string
	ContactName    string
	ContactEmail   *string
	ContactPhone   *string
	ContactAddress *string
	CustomerID     string
	Priority       TicketPriority
	Urgency        TicketUrgency
	Status         TicketStatus
	IsDeleted      bool
	Assets         []TicketAsset
	Items          []TicketItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TicketAsset stores one attachment on a ticket.
type TicketAsset struct {
	ID        string
	TicketID  string
	URL       string
	Type      AssetType
	CreatedAt time.Time
}
