package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketDeleted     EventType = "ticket_deleted"
	EventTicketItemCreated EventType = "ticket_item_created"
	EventDepartmentChanged EventType = "department_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role       domain.PartyRole `json:"role"`
	AdminID    *string          `json:"admin_id,omitempty"`
	CustomerID *string          `json:"customer_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string                `json:"title"`
	CustomerID string                `json:"customer_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Urgency    domain.TicketUrgency  `json:"urgency"`
}

// TicketItemCreatedPayload payload.
type TicketItemCreatedPayload struct {
	ItemID     string                 `json:"item_id"`
	Title      string                 `json:"title"`
	IsPublic   bool                   `json:"is_public"`
	AssignedTo domain.AssignmentParty `json:"assigned_to"`
}

// DepartmentChangedPayload payload.
type DepartmentChangedPayload struct {
	DepartmentID string   `json:"department_id"`
	Action       string   `json:"action"`
	ManagerIDs   []string `json:"manager_ids,omitempty"`
}
