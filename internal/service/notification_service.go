package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// NotificationService turns domain events into persisted notifications and
// answers per-principal notification queries.
type NotificationService struct {
	notifications repository.NotificationRepository
	admins        repository.AdminRepository
	resolver      *Resolver
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	AdminRepo        repository.AdminRepository
	Resolver         *Resolver
	Logger           *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		admins:        deps.AdminRepo,
		resolver:      deps.Resolver,
		logger:        deps.Logger,
	}
}

// HandleEvent builds and persists the notification for one event. Unknown
// event types are ignored.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	var (
		notification *domain.Notification
		err          error
	)
	switch event.Type {
	case events.EventTicketCreated:
		notification, err = s.buildTicketCreated(ctx, event)
	case events.EventTicketItemCreated:
		notification, err = s.buildItemCreated(event)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if notification == nil || len(notification.Receivers) == 0 {
		return nil
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Error("notification persist failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// buildTicketCreated fans a new ticket out to every active superadmin and
// assistant so intake staff see it immediately.
func (s *NotificationService) buildTicketCreated(ctx context.Context, event events.Event) (*domain.Notification, error) {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil, nil
	}

	var receivers []domain.NotificationReceiver
	for _, role := range []domain.AdminRole{domain.AdminRoleSuperadmin, domain.AdminRoleAssistant} {
		role := role
		active := true
		admins, _, err := s.admins.List(ctx, repository.AdminFilter{Role: &role, Active: &active, Limit: 500})
		if err != nil {
			return nil, err
		}
		for _, admin := range admins {
			id := admin.ID
			receivers = append(receivers, domain.NotificationReceiver{
				Role:    domain.PartyRoleForAdmin(admin.Role),
				AdminID: &id,
			})
		}
	}

	ticketID := event.TicketID
	return &domain.Notification{
		Type:             string(events.EventTicketCreated),
		Title:            "New ticket",
		Body:             fmt.Sprintf("Ticket %q was opened.", payload.Title),
		SenderRole:       event.Actor.Role,
		SenderAdminID:    event.Actor.AdminID,
		SenderCustomerID: event.Actor.CustomerID,
		TicketID:         &ticketID,
		Receivers:        receivers,
	}, nil
}

// buildItemCreated notifies whoever the item was assigned to, whether a single
// admin, a customer, or a whole department.
func (s *NotificationService) buildItemCreated(event events.Event) (*domain.Notification, error) {
	payload, ok := event.Payload.(events.TicketItemCreatedPayload)
	if !ok {
		return nil, nil
	}

	target := payload.AssignedTo
	receiver := domain.NotificationReceiver{
		Role:         target.Role,
		AdminID:      target.AdminID,
		CustomerID:   target.CustomerID,
		DepartmentID: target.DepartmentID,
	}

	ticketID := event.TicketID
	return &domain.Notification{
		Type:             string(events.EventTicketItemCreated),
		Title:            "New assignment",
		Body:             fmt.Sprintf("You were assigned %q.", payload.Title),
		SenderRole:       event.Actor.Role,
		SenderAdminID:    event.Actor.AdminID,
		SenderCustomerID: event.Actor.CustomerID,
		TicketID:         &ticketID,
		Receivers:        []domain.NotificationReceiver{receiver},
	}, nil
}

// ListNotifications returns the notifications visible to the principal, newest
// first.
func (s *NotificationService) ListNotifications(ctx context.Context, role domain.PartyRole, subjectID string, page, limit int) ([]domain.Notification, PageMeta, error) {
	match, err := s.resolver.ReceiverMatch(ctx, role, subjectID)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	notifications, total, err := s.notifications.ListForReceiver(ctx, match, limit, offset)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	return notifications, NewPageMeta(total, page, limit), nil
}

// MarkRead stamps a receiver row as read. Rows not addressed to the principal
// and already-read rows are NotFound.
func (s *NotificationService) MarkRead(ctx context.Context, role domain.PartyRole, subjectID, receiverID string) error {
	match, err := s.resolver.ReceiverMatch(ctx, role, subjectID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.notifications.MarkRead(ctx, receiverID, match, time.Now()); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
