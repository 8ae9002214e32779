package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TicketCreateRequest opens a ticket. Staff callers must provide at least one
// of email or phone so the customer can be resolved.
type TicketCreateRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Name        string   `json:"name"`
	Email       *string  `json:"email,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Urgency     string   `json:"urgency,omitempty"`
	AssetURLs   []string `json:"assetUrls,omitempty"`
}

// TicketUpdateRequest patches a ticket. Omitting assetUrls keeps the current
// attachments; providing any array fully replaces them.
type TicketUpdateRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	Urgency     *string   `json:"urgency,omitempty"`
	Status      *string   `json:"status,omitempty"`
	AssetURLs   *[]string `json:"assetUrls,omitempty"`
}

// AssignmentPartyRequest names one side of a ticket item assignment.
type AssignmentPartyRequest struct {
	Role         string  `json:"role"`
	AdminID      *string `json:"adminId,omitempty"`
	CustomerID   *string `json:"customerId,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty"`
}

// ToDomain maps the request party.
func (r AssignmentPartyRequest) ToDomain() domain.AssignmentParty {
	return domain.AssignmentParty{
		Role:         domain.PartyRole(r.Role),
		AdminID:      r.AdminID,
		CustomerID:   r.CustomerID,
		DepartmentID: r.DepartmentID,
	}
}

// TicketItemCreateRequest routes a work assignment under a ticket.
type TicketItemCreateRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	IsPublic    bool                   `json:"isPublic"`
	AssignedTo  AssignmentPartyRequest `json:"assignedTo"`
	AssetURLs   []string               `json:"assetUrls,omitempty"`
}

// TicketAssetResponse is one attachment.
type TicketAssetResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssignmentPartyResponse names one side of an assignment.
type AssignmentPartyResponse struct {
	Role         string  `json:"role"`
	AdminID      *string `json:"adminId,omitempty"`
	CustomerID   *string `json:"customerId,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty"`
}

// TicketItemResponse is one routed work assignment.
type TicketItemResponse struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticketId"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	IsPublic    bool                    `json:"isPublic"`
	AssignedBy  AssignmentPartyResponse `json:"assignedBy"`
	AssignedTo  AssignmentPartyResponse `json:"assignedTo"`
	Assets      []TicketAssetResponse   `json:"assets"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Description    *string               `json:"description,omitempty"`
	ContactName    string                `json:"contactName"`
	ContactEmail   *string               `json:"contactEmail,omitempty"`
	ContactPhone   *string               `json:"contactPhone,omitempty"`
	ContactAddress *string               `json:"contactAddress,omitempty"`
	CustomerID     string                `json:"customerId"`
	Priority       string                `json:"priority"`
	Urgency        string                `json:"urgency"`
	Status         string                `json:"status"`
	Assets         []TicketAssetResponse `json:"assets"`
	Items          []TicketItemResponse  `json:"items,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	items := make([]TicketItemResponse, 0, len(ticket.Items))
	for i := range ticket.Items {
		items = append(items, NewTicketItemResponse(&ticket.Items[i]))
	}
	return TicketResponse{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		ContactName:    ticket.ContactName,
		ContactEmail:   ticket.ContactEmail,
		ContactPhone:   ticket.ContactPhone,
		ContactAddress: ticket.ContactAddress,
		CustomerID:     ticket.CustomerID,
		Priority:       string(ticket.Priority),
		Urgency:        string(ticket.Urgency),
		Status:         string(ticket.Status),
		Assets:         newAssetResponses(ticket.Assets),
		Items:          items,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

// NewTicketItemResponse maps a domain ticket item.
func NewTicketItemResponse(item *domain.TicketItem) TicketItemResponse {
	return TicketItemResponse{
		ID:          item.ID,
		TicketID:    item.TicketID,
		Title:       item.Title,
		Description: item.Description,
		IsPublic:    item.IsPublic,
		AssignedBy:  newPartyResponse(item.AssignedBy),
		AssignedTo:  newPartyResponse(item.AssignedTo),
		Assets:      newAssetResponses(item.Assets),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func newPartyResponse(party domain.AssignmentParty) AssignmentPartyResponse {
	return AssignmentPartyResponse{
		Role:         string(party.Role),
		AdminID:      party.AdminID,
		CustomerID:   party.CustomerID,
		DepartmentID: party.DepartmentID,
	}
}

func newAssetResponses(assets []domain.TicketAsset) []TicketAssetResponse {
	out := make([]TicketAssetResponse, 0, len(assets))
	for _, asset := range assets {
		out = append(out, TicketAssetResponse{
			ID:        asset.ID,
			URL:       asset.URL,
			Type:      string(asset.Type),
			CreatedAt: asset.CreatedAt,
		})
	}
	return out
}
