package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets     repository.TicketRepository
	items       repository.TicketItemRepository
	customers   repository.CustomerRepository
	admins      repository.AdminRepository
	departments repository.DepartmentRepository
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	ItemRepo       repository.TicketItemRepository
	CustomerRepo   repository.CustomerRepository
	AdminRepo      repository.AdminRepository
	DepartmentRepo repository.DepartmentRepository
	Dispatcher     events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		items:       deps.ItemRepo,
		customers:   deps.CustomerRepo,
		admins:      deps.AdminRepo,
		departments: deps.DepartmentRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// Actor identifies who performs a ticket operation.
type Actor struct {
	Role       domain.PartyRole
	AdminID    *string
	CustomerID *string
}

// TicketCreateInput describes the ticket creation payload. Name/Email/Phone/
// Address are snapshotted onto the ticket.
type TicketCreateInput struct {
	Title       string
	Description *string
	Name        string
	Email       *string
	Phone       *string
	Address     *string
	Priority    domain.TicketPriority
	Urgency     domain.TicketUrgency
	AssetURLs   []string
}

// TicketUpdateInput patches scalar fields. A nil AssetURLs leaves assets
// untouched; a non-nil slice fully replaces them.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Urgency     *domain.TicketUrgency
	Status      *domain.TicketStatus
	AssetURLs   *[]string
}

// TicketItemCreateInput describes a routed work assignment under a ticket.
type TicketItemCreateInput struct {
	TicketID    string
	Title       string
	Description string
	IsPublic    bool
	AssignedTo  domain.AssignmentParty
	AssetURLs   []string
}

// transitions is the enforced status graph. CLOSED and CANCELLED are terminal.
var transitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusCancelled, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusCancelled, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusCancelled:  {},
}

func validTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range transitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket is the staff-initiated path for walk-in or phone requests. The
// customer is resolved by email first, then phone, and created as an
// unregistered account when neither matches.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateTicketInput(&input); err != nil {
		return nil, err
	}
	if !hasValue(input.Email) && !hasValue(input.Phone) {
		return nil, apperrors.NewValidationError("email or phone required", nil)
	}

	customer, err := s.resolveCustomer(ctx, input)
	if err != nil {
		return nil, err
	}

	ticket := buildTicket(input)
	ticket.CustomerID = customer.ID
	assets := assetsFromURLs(input.AssetURLs)
	if err := s.tickets.CreateGraph(ctx, ticket, customer, assets); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishTicketEvent(ctx, events.EventTicketCreated, actor, ticket)
	return ticket, nil
}

// CreateCustomerTicket is the self-service path. Empty phone/address fields
// on the customer record are backfilled from the ticket, first write wins.
func (s *TicketService) CreateCustomerTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateTicketInput(&input); err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
		}
		return nil, apperrors.MapError(err)
	}

	backfilled := false
	if customer.Phone == nil && hasValue(input.Phone) {
		customer.Phone = input.Phone
		backfilled = true
	}
	if customer.Address == nil && hasValue(input.Address) {
		customer.Address = input.Address
		backfilled = true
	}
	if backfilled {
		if err := s.customers.Update(ctx, customer); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if input.Name == "" {
		input.Name = customerDisplayName(customer)
	}
	if input.Email == nil {
		email := customer.Email
		input.Email = &email
	}

	ticket := buildTicket(input)
	ticket.CustomerID = customer.ID
	assets := assetsFromURLs(input.AssetURLs)
	if err := s.tickets.CreateGraph(ctx, ticket, nil, assets); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishTicketEvent(ctx, events.EventTicketCreated, Actor{Role: domain.PartyRoleCustomer, CustomerID: &customer.ID}, ticket)
	return ticket, nil
}

// UpdateTicket applies a partial update. A provided asset list fully replaces
// the existing set.
func (s *TicketService) UpdateTicket(ctx context.Context, actor Actor, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = input.Description
	}
	if input.Priority != nil {
		if !validPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Urgency != nil {
		if !validUrgency(*input.Urgency) {
			return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": *input.Urgency})
		}
		ticket.Urgency = *input.Urgency
	}
	if input.Status != nil && *input.Status != ticket.Status {
		if !validTransition(ticket.Status, *input.Status) {
			return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   *input.Status,
			})
		}
		ticket.Status = *input.Status
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.AssetURLs != nil {
		assets, err := s.tickets.ReplaceAssets(ctx, ticket.ID, assetsFromURLs(*input.AssetURLs))
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.Assets = assets
	} else {
		assets, err := s.tickets.ListAssets(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.Assets = assets
	}
	s.publishTicketEvent(ctx, events.EventTicketUpdated, actor, ticket)
	return ticket, nil
}

// DeleteTicket soft-deletes a ticket. An already-deleted ticket is NotFound.
func (s *TicketService) DeleteTicket(ctx context.Context, actor Actor, id string) error {
	if err := s.tickets.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return apperrors.MapError(err)
	}
	s.publishTicketEvent(ctx, events.EventTicketDeleted, actor, &domain.Ticket{ID: id})
	return nil
}

// GetTicket loads a ticket with assets and items. Customers only see public
// items.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.PartyRoleCustomer {
		if actor.CustomerID == nil || *actor.CustomerID != ticket.CustomerID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}

	assets, err := s.tickets.ListAssets(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Assets = assets

	publicOnly := actor.Role == domain.PartyRoleCustomer
	items, err := s.items.ListByTicket(ctx, ticket.ID, publicOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Items = items
	return ticket, nil
}

// ListTickets returns a filtered page of tickets plus pagination meta.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter, page int) ([]domain.Ticket, PageMeta, error) {
	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, PageMeta{}, apperrors.MapError(err)
	}
	return tickets, NewPageMeta(total, page, filter.Limit), nil
}

// CreateTicketItem routes a work assignment under a ticket. The assignment
// target must resolve to exactly one live entity matching its declared role;
// the assigning side is stamped from the authenticated actor.
func (s *TicketService) CreateTicketItem(ctx context.Context, actor Actor, input TicketItemCreateInput) (*domain.TicketItem, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, input.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.PartyRoleCustomer {
		if actor.CustomerID == nil || *actor.CustomerID != ticket.CustomerID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}

	if !input.AssignedTo.Resolved() {
		return nil, apperrors.NewValidationError("assigned_to must name exactly one target matching its role", nil)
	}
	if err := s.checkAssignmentTarget(ctx, input.AssignedTo); err != nil {
		return nil, err
	}

	assignedBy := domain.AssignmentParty{Role: actor.Role}
	switch {
	case actor.Role == domain.PartyRoleCustomer:
		assignedBy.CustomerID = actor.CustomerID
	default:
		assignedBy.AdminID = actor.AdminID
	}
	if !assignedBy.Resolved() {
		return nil, apperrors.NewUnauthorized("actor identity required")
	}

	item := &domain.TicketItem{
		TicketID:    ticket.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		IsPublic:    input.IsPublic,
		AssignedBy:  assignedBy,
		AssignedTo:  input.AssignedTo,
	}
	if err := s.items.Create(ctx, item, assetsFromURLs(input.AssetURLs)); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishItemEvent(ctx, actor, ticket.ID, item)
	return item, nil
}

// checkAssignmentTarget verifies the target entity exists, is live, and that
// admin targets carry the declared role.
func (s *TicketService) checkAssignmentTarget(ctx context.Context, party domain.AssignmentParty) error {
	switch {
	case party.Role.IsAdminParty():
		admin, err := s.admins.GetByID(ctx, *party.AdminID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("admin", map[string]any{"admin_id": *party.AdminID})
			}
			return apperrors.MapError(err)
		}
		if domain.PartyRoleForAdmin(admin.Role) != party.Role {
			return apperrors.NewValidationError("assignment role does not match admin role", map[string]any{
				"declared": party.Role,
				"actual":   admin.Role,
			})
		}
	case party.Role == domain.PartyRoleCustomer:
		if _, err := s.customers.GetByID(ctx, *party.CustomerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("customer", map[string]any{"customer_id": *party.CustomerID})
			}
			return apperrors.MapError(err)
		}
	case party.Role == domain.PartyRoleDepartment:
		if _, err := s.departments.GetByID(ctx, *party.DepartmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("department", map[string]any{"department_id": *party.DepartmentID})
			}
			return apperrors.MapError(err)
		}
	default:
		return apperrors.NewValidationError("unknown assignment role", map[string]any{"role": party.Role})
	}
	return nil
}

// resolveCustomer looks up by email, then phone; otherwise builds a new
// unregistered customer. New customers without an email get a synthetic
// placeholder so the unique constraint holds.
func (s *TicketService) resolveCustomer(ctx context.Context, input TicketCreateInput) (*domain.Customer, error) {
	if hasValue(input.Email) {
		customer, err := s.customers.GetByEmail(ctx, *input.Email)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	if hasValue(input.Phone) {
		customer, err := s.customers.GetByPhone(ctx, *input.Phone)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	first, last := splitName(input.Name)
	email := ""
	if hasValue(input.Email) {
		email = strings.ToLower(strings.TrimSpace(*input.Email))
	} else {
		email = placeholderEmail()
	}
	customer := &domain.Customer{
		FirstName:    first,
		Email:        email,
		Phone:        input.Phone,
		Address:      input.Address,
		IsVerified:   false,
		IsRegistered: false,
	}
	if last != "" {
		customer.LastName = &last
	}
	return customer, nil
}

func validateTicketInput(input *TicketCreateInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	} else if !validPriority(input.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.Urgency == "" {
		input.Urgency = domain.TicketUrgencyNormal
	} else if !validUrgency(input.Urgency) {
		return apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": input.Urgency})
	}
	return nil
}

func buildTicket(input TicketCreateInput) *domain.Ticket {
	return &domain.Ticket{
		Title:          input.Title,
		Description:    input.Description,
		ContactName:    strings.TrimSpace(input.Name),
		ContactEmail:   input.Email,
		ContactPhone:   input.Phone,
		ContactAddress: input.Address,
		Priority:       input.Priority,
		Urgency:        input.Urgency,
		Status:         domain.TicketStatusOpen,
	}
}

func validPriority(p domain.TicketPriority) bool {
	switch p {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
		return true
	}
	return false
}

func validUrgency(u domain.TicketUrgency) bool {
	switch u {
	case domain.TicketUrgencyNormal, domain.TicketUrgencyUrgent, domain.TicketUrgencyEmergency:
		return true
	}
	return false
}

func hasValue(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "Customer", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func placeholderEmail() string {
	return fmt.Sprintf("unregistered+%s@placeholder.local", uuid.NewString()[:8])
}

// assetsFromURLs classifies each URL by its extension.
func assetsFromURLs(urls []string) []domain.TicketAsset {
	assets := make([]domain.TicketAsset, 0, len(urls))
	for _, raw := range urls {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		assets = append(assets, domain.TicketAsset{URL: url, Type: InferAssetType(url)})
	}
	return assets
}

// InferAssetType maps a URL extension to an asset type, defaulting to FILE.
func InferAssetType(url string) domain.AssetType {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(url), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp", "svg":
		return domain.AssetTypeImage
	case "mp4", "mov", "avi", "mkv", "webm":
		return domain.AssetTypeVideo
	case "pdf", "doc", "docx", "xls", "xlsx", "txt", "csv":
		return domain.AssetTypeDocument
	default:
		return domain.AssetTypeFile
	}
}

func customerDisplayName(customer *domain.Customer) string {
	if customer.LastName != nil {
		return customer.FirstName + " " + *customer.LastName
	}
	return customer.FirstName
}

func (s *TicketService) publishTicketEvent(ctx context.Context, eventType events.EventType, actor Actor, ticket *domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Role: actor.Role, AdminID: actor.AdminID, CustomerID: actor.CustomerID},
		Timestamp: time.Now(),
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			CustomerID: ticket.CustomerID,
			Priority:   ticket.Priority,
			Urgency:    ticket.Urgency,
		},
	})
}

func (s *TicketService) publishItemEvent(ctx context.Context, actor Actor, ticketID string, item *domain.TicketItem) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketItemCreated,
		TicketID:  ticketID,
		Actor:     events.Actor{Role: actor.Role, AdminID: actor.AdminID, CustomerID: actor.CustomerID},
		Timestamp: time.Now(),
		Payload: events.TicketItemCreatedPayload{
			ItemID:     item.ID,
			Title:      item.Title,
			IsPublic:   item.IsPublic,
			AssignedTo: item.AssignedTo,
		},
	})
}
