package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketHandler exposes the ticket lifecycle.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler constructs the handler.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	actor := service.Actor{Role: principal.PartyRole()}
	id := principal.SubjectID
	if principal.SubjectType == domain.SubjectTypeCustomer {
		actor.CustomerID = &id
	} else {
		actor.AdminID = &id
	}
	return actor, nil
}

// Create opens a ticket. Staff callers resolve or create the customer from
// contact details; customer callers always file under their own account.
func (h *TicketHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TicketCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Priority:    domain.TicketPriority(req.Priority),
		Urgency:     domain.TicketUrgency(req.Urgency),
		AssetURLs:   req.AssetURLs,
	}

	var ticket *domain.Ticket
	if actor.Role == domain.PartyRoleCustomer {
		ticket, err = h.tickets.CreateCustomerTicket(c.Context(), *actor.CustomerID, input)
	} else {
		ticket, err = h.tickets.CreateTicket(c.Context(), actor, input)
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Update patches a ticket.
func (h *TicketHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TicketUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		AssetURLs:   req.AssetURLs,
	}
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		input.Priority = &p
	}
	if req.Urgency != nil {
		u := domain.TicketUrgency(*req.Urgency)
		input.Urgency = &u
	}
	if req.Status != nil {
		s := domain.TicketStatus(*req.Status)
		input.Status = &s
	}
	ticket, err := h.tickets.UpdateTicket(c.Context(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Delete soft-deletes a ticket.
func (h *TicketHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// Get returns one ticket with assets and items. Customers only see their own
// tickets and public items.
func (h *TicketHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// List returns a filtered page of tickets. Customer callers are pinned to
// their own tickets regardless of query parameters.
func (h *TicketHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, limit, offset := pageParams(c)
	filter := repository.TicketFilter{
		SearchTerm: optionalQuery(c, "search"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		Limit:      limit,
		Offset:     offset,
	}
	if actor.Role == domain.PartyRoleCustomer {
		filter.CustomerID = actor.CustomerID
	} else {
		filter.CustomerID = optionalQuery(c, "customerId")
	}
	if p := optionalQuery(c, "priority"); p != nil {
		priority := domain.TicketPriority(*p)
		filter.Priority = &priority
	}
	if u := optionalQuery(c, "urgency"); u != nil {
		urgency := domain.TicketUrgency(*u)
		filter.Urgency = &urgency
	}
	if s := optionalQuery(c, "status"); s != nil {
		status := domain.TicketStatus(*s)
		filter.Status = &status
	}
	if from := optionalQuery(c, "from"); from != nil {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return apperrors.NewValidationError("invalid from date", map[string]any{"from": *from})
		}
		filter.FromDate = &t
	}
	if to := optionalQuery(c, "to"); to != nil {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return apperrors.NewValidationError("invalid to date", map[string]any{"to": *to})
		}
		filter.ToDate = &t
	}

	tickets, meta, err := h.tickets.ListTickets(c.Context(), filter, page)
	if err != nil {
		return err
	}
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": out, "meta": dto.NewPageMetaResponse(meta)})
}

// CreateItem routes a work assignment under a ticket.
func (h *TicketHandler) CreateItem(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TicketItemCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.tickets.CreateTicketItem(c.Context(), actor, service.TicketItemCreateInput{
		TicketID:    c.Params("id"),
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		AssignedTo:  req.AssignedTo.ToDomain(),
		AssetURLs:   req.AssetURLs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketItemResponse(item)})
}
