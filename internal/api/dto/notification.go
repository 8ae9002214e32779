package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// NotificationResponse is one notification visible to the caller.
type NotificationResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	SenderRole string    `json:"senderRole"`
	TicketID   *string   `json:"ticketId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewNotificationResponse maps a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Body:       n.Body,
		SenderRole: string(n.SenderRole),
		TicketID:   n.TicketID,
		CreatedAt:  n.CreatedAt,
	}
}

// UploadResponse describes one stored object.
type UploadResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	AssetType string `json:"assetType"`
	Size      int64  `json:"size"`
}
