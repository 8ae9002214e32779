package service

import (
	"context"
	"testing"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

func newTicketFixture(t *testing.T) (*TicketService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:     &fakeTicketRepo{s: store},
		ItemRepo:       &fakeTicketItemRepo{s: store},
		CustomerRepo:   &fakeCustomerRepo{s: store},
		AdminRepo:      &fakeAdminRepo{s: store},
		DepartmentRepo: &fakeDepartmentRepo{s: store},
	})
	return svc, store
}

func staffActor(store *memStore) Actor {
	admin := store.addAdmin("Desk Staff", "staff@example.com", domain.AdminRoleAssistant)
	id := admin.ID
	return Actor{Role: domain.PartyRoleAssistant, AdminID: &id}
}

func strptr(s string) *string { return &s }

func TestCreateTicketRequiresContactChannel(t *testing.T) {
	svc, store := newTicketFixture(t)
	_, err := svc.CreateTicket(context.Background(), staffActor(store), TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat Smith",
	})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}
}

func TestCreateTicketReusesCustomerByEmail(t *testing.T) {
	svc, store := newTicketFixture(t)
	existing := store.addCustomer("Pat", "pat@example.com")

	ticket, err := svc.CreateTicket(context.Background(), staffActor(store), TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat Smith",
		Email: strptr("PAT@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ticket.CustomerID != existing.ID {
		t.Fatalf("CustomerID = %s, want %s", ticket.CustomerID, existing.ID)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("Status = %s, want OPEN", ticket.Status)
	}
}

func TestCreateTicketFallsBackToPhoneLookup(t *testing.T) {
	svc, store := newTicketFixture(t)
	existing := store.addCustomer("Pat", "pat@example.com")
	existing.Phone = strptr("555-0100")

	ticket, err := svc.CreateTicket(context.Background(), staffActor(store), TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat Smith",
		Email: strptr("other@example.com"),
		Phone: strptr("555-0100"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ticket.CustomerID != existing.ID {
		t.Fatalf("phone fallback picked %s, want %s", ticket.CustomerID, existing.ID)
	}
}

func TestCreateTicketCreatesUnregisteredCustomer(t *testing.T) {
	svc, store := newTicketFixture(t)

	ticket, err := svc.CreateTicket(context.Background(), staffActor(store), TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat Smith",
		Phone: strptr("555-0199"),
	})
	if err != nil {
		t.Fatal(err)
	}
	customer := store.customers[ticket.CustomerID]
	if customer == nil {
		t.Fatal("no customer created")
	}
	if customer.IsRegistered || customer.IsVerified {
		t.Fatal("walk-in customer must be unregistered and unverified")
	}
	if customer.Email == "" {
		t.Fatal("customer without email must get a placeholder")
	}
	if customer.FirstName != "Pat" || customer.LastName == nil || *customer.LastName != "Smith" {
		t.Fatalf("name split = %s / %v", customer.FirstName, customer.LastName)
	}
}

func TestCreateCustomerTicketBackfillsContact(t *testing.T) {
	svc, store := newTicketFixture(t)
	customer := store.addCustomer("Pat", "pat@example.com")

	_, err := svc.CreateCustomerTicket(context.Background(), customer.ID, TicketCreateInput{
		Title:   "No network",
		Phone:   strptr("555-0100"),
		Address: strptr("1 Main St"),
	})
	if err != nil {
		t.Fatal(err)
	}
	stored := store.customers[customer.ID]
	if stored.Phone == nil || *stored.Phone != "555-0100" {
		t.Fatal("empty phone not backfilled")
	}
	if stored.Address == nil || *stored.Address != "1 Main St" {
		t.Fatal("empty address not backfilled")
	}

	// first write wins: a second ticket must not overwrite
	_, err = svc.CreateCustomerTicket(context.Background(), customer.ID, TicketCreateInput{
		Title: "Still no network",
		Phone: strptr("555-9999"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if *store.customers[customer.ID].Phone != "555-0100" {
		t.Fatal("backfill overwrote existing phone")
	}
}

func TestUpdateTicketStatusTransitions(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat",
		Email: strptr("pat@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}

	// OPEN -> RESOLVED is not allowed
	resolved := domain.TicketStatusResolved
	_, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Status: &resolved})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s, want VALIDATION_FAILED", code)
	}

	inProgress := domain.TicketStatusInProgress
	if _, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Status: &inProgress}); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Status: &resolved}); err != nil {
		t.Fatal(err)
	}

	closed := domain.TicketStatusClosed
	if _, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Status: &closed}); err != nil {
		t.Fatal(err)
	}
	// CLOSED is terminal
	open := domain.TicketStatusOpen
	_, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Status: &open})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("terminal transition code = %s, want VALIDATION_FAILED", code)
	}
}

func TestUpdateTicketReplacesAssets(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title:     "Broken printer",
		Name:      "Pat",
		Email:     strptr("pat@example.com"),
		AssetURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.pdf"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ticket.Assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(ticket.Assets))
	}

	replacement := []string{"https://cdn.example.com/c.mp4"}
	updated, err := svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{AssetURLs: &replacement})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Assets) != 1 || updated.Assets[0].Type != domain.AssetTypeVideo {
		t.Fatalf("assets after replace = %v", updated.Assets)
	}

	// omitting the asset list keeps the current set
	title := "Broken printer again"
	updated, err = svc.UpdateTicket(context.Background(), actor, ticket.ID, TicketUpdateInput{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Assets) != 1 {
		t.Fatalf("nil asset list changed attachments: %v", updated.Assets)
	}
}

func TestDeleteTicketTwiceIsNotFound(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat",
		Email: strptr("pat@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTicket(context.Background(), actor, ticket.ID); err != nil {
		t.Fatal(err)
	}
	err = svc.DeleteTicket(context.Background(), actor, ticket.ID)
	if code := errorCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("code = %s, want NOT_FOUND", code)
	}
	_, err = svc.GetTicket(context.Background(), actor, ticket.ID)
	if code := errorCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("get after delete code = %s, want NOT_FOUND", code)
	}
}

func TestGetTicketHidesPrivateItemsFromCustomers(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	tech := store.addAdmin("Tech One", "tech@example.com", domain.AdminRoleTechnician)

	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat",
		Email: strptr("pat@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}

	techID := tech.ID
	for _, public := range []bool{true, false} {
		_, err := svc.CreateTicketItem(context.Background(), actor, TicketItemCreateInput{
			TicketID: ticket.ID,
			Title:    "Check cable",
			IsPublic: public,
			AssignedTo: domain.AssignmentParty{
				Role:    domain.PartyRoleTechnician,
				AdminID: &techID,
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	staffView, err := svc.GetTicket(context.Background(), actor, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(staffView.Items) != 2 {
		t.Fatalf("staff sees %d items, want 2", len(staffView.Items))
	}

	customerID := ticket.CustomerID
	customerActor := Actor{Role: domain.PartyRoleCustomer, CustomerID: &customerID}
	customerView, err := svc.GetTicket(context.Background(), customerActor, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(customerView.Items) != 1 || !customerView.Items[0].IsPublic {
		t.Fatalf("customer sees %d items, want 1 public", len(customerView.Items))
	}

	otherID := "cus-nope"
	stranger := Actor{Role: domain.PartyRoleCustomer, CustomerID: &otherID}
	_, err = svc.GetTicket(context.Background(), stranger, ticket.ID)
	if code := errorCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("stranger code = %s, want FORBIDDEN", code)
	}
}

func TestCreateTicketItemValidatesTarget(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	tech := store.addAdmin("Tech One", "tech@example.com", domain.AdminRoleTechnician)

	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat",
		Email: strptr("pat@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	techID := tech.ID

	// declared role must match the admin's actual role
	_, err = svc.CreateTicketItem(context.Background(), actor, TicketItemCreateInput{
		TicketID: ticket.ID,
		Title:    "Check cable",
		AssignedTo: domain.AssignmentParty{
			Role:    domain.PartyRoleManager,
			AdminID: &techID,
		},
	})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("role mismatch code = %s, want VALIDATION_FAILED", code)
	}

	// exactly one target id must be set
	custID := ticket.CustomerID
	_, err = svc.CreateTicketItem(context.Background(), actor, TicketItemCreateInput{
		TicketID: ticket.ID,
		Title:    "Check cable",
		AssignedTo: domain.AssignmentParty{
			Role:       domain.PartyRoleTechnician,
			AdminID:    &techID,
			CustomerID: &custID,
		},
	})
	if code := errorCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("ambiguous target code = %s, want VALIDATION_FAILED", code)
	}

	item, err := svc.CreateTicketItem(context.Background(), actor, TicketItemCreateInput{
		TicketID: ticket.ID,
		Title:    "Check cable",
		AssignedTo: domain.AssignmentParty{
			Role:    domain.PartyRoleTechnician,
			AdminID: &techID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if item.AssignedBy.AdminID == nil || *item.AssignedBy.AdminID != *actor.AdminID {
		t.Fatalf("assignedBy = %+v, want actor %s", item.AssignedBy, *actor.AdminID)
	}
}

func TestCreateTicketItemRejectsForeignCustomers(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	tech := store.addAdmin("Tech One", "tech@example.com", domain.AdminRoleTechnician)

	ticket, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: "Broken printer",
		Name:  "Pat",
		Email: strptr("pat@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	techID := tech.ID

	otherID := "cus-nope"
	stranger := Actor{Role: domain.PartyRoleCustomer, CustomerID: &otherID}
	_, err = svc.CreateTicketItem(context.Background(), stranger, TicketItemCreateInput{
		TicketID: ticket.ID,
		Title:    "Check cable",
		IsPublic: true,
		AssignedTo: domain.AssignmentParty{
			Role:    domain.PartyRoleTechnician,
			AdminID: &techID,
		},
	})
	if code := errorCode(t, err); code != "FORBIDDEN" {
		t.Fatalf("stranger code = %s, want FORBIDDEN", code)
	}

	ownerID := ticket.CustomerID
	owner := Actor{Role: domain.PartyRoleCustomer, CustomerID: &ownerID}
	item, err := svc.CreateTicketItem(context.Background(), owner, TicketItemCreateInput{
		TicketID: ticket.ID,
		Title:    "Still broken after reboot",
		IsPublic: true,
		AssignedTo: domain.AssignmentParty{
			Role:    domain.PartyRoleTechnician,
			AdminID: &techID,
		},
	})
	if err != nil {
		t.Fatalf("owner must be able to append items: %v", err)
	}
	if item.AssignedBy.CustomerID == nil || *item.AssignedBy.CustomerID != ownerID {
		t.Fatalf("assignedBy = %+v, want owning customer", item.AssignedBy)
	}
}

func TestInferAssetType(t *testing.T) {
	cases := map[string]domain.AssetType{
		"https://cdn.example.com/a.JPG":      domain.AssetTypeImage,
		"https://cdn.example.com/clip.mp4":   domain.AssetTypeVideo,
		"https://cdn.example.com/report.pdf": domain.AssetTypeDocument,
		"https://cdn.example.com/blob.bin":   domain.AssetTypeFile,
		"https://cdn.example.com/noext":      domain.AssetTypeFile,
	}
	for url, want := range cases {
		if got := InferAssetType(url); got != want {
			t.Errorf("InferAssetType(%s) = %s, want %s", url, got, want)
		}
	}
}

func newTicketFilter(limit, offset int) repository.TicketFilter {
	return repository.TicketFilter{Limit: limit, Offset: offset}
}

func TestListTicketsPagination(t *testing.T) {
	svc, store := newTicketFixture(t)
	actor := staffActor(store)
	for i := 0; i < 5; i++ {
		_, err := svc.CreateTicket(context.Background(), actor, TicketCreateInput{
			Title: "Ticket",
			Name:  "Pat",
			Email: strptr("pat@example.com"),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	tickets, meta, err := svc.ListTickets(context.Background(), newTicketFilter(2, 2), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tickets) != 2 {
		t.Fatalf("page size = %d, want 2", len(tickets))
	}
	if meta.Total != 5 || meta.TotalPages != 3 || meta.Page != 2 {
		t.Fatalf("meta = %+v", meta)
	}
}
