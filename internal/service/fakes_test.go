package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// memStore backs the in-memory repository fakes. Everything lives in one
// struct so cascades can cross entity boundaries like the real SQL does.
type memStore struct {
	seq           int
	admins        map[string]*domain.Admin
	adminOrder    []string
	customers     map[string]*domain.Customer
	customerOrder []string
	divisions     map[string]*domain.Division
	departments   map[string]*domain.Department
	managedBy     map[string][]string // deptID -> managerIDs
	tickets       map[string]*domain.Ticket
	ticketAssets  map[string][]domain.TicketAsset
	items         map[string][]domain.TicketItem
	notifications []*domain.Notification

	failManagerIDs map[string]bool // link inserts reported as failed
}

func newMemStore() *memStore {
	return &memStore{
		admins:         make(map[string]*domain.Admin),
		customers:      make(map[string]*domain.Customer),
		divisions:      make(map[string]*domain.Division),
		departments:    make(map[string]*domain.Department),
		managedBy:      make(map[string][]string),
		tickets:        make(map[string]*domain.Ticket),
		ticketAssets:   make(map[string][]domain.TicketAsset),
		items:          make(map[string][]domain.TicketItem),
		failManagerIDs: make(map[string]bool),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addAdmin(name, email string, role domain.AdminRole) *domain.Admin {
	admin := &domain.Admin{
		ID:       s.nextID("adm"),
		Name:     name,
		Email:    strings.ToLower(email),
		Role:     role,
		IsActive: true,
	}
	s.admins[admin.ID] = admin
	s.adminOrder = append(s.adminOrder, admin.ID)
	return admin
}

func (s *memStore) addCustomer(first, email string) *domain.Customer {
	customer := &domain.Customer{
		ID:        s.nextID("cus"),
		FirstName: first,
		Email:     strings.ToLower(email),
	}
	s.customers[customer.ID] = customer
	s.customerOrder = append(s.customerOrder, customer.ID)
	return customer
}

// --- AdminRepository ---

type fakeAdminRepo struct{ s *memStore }

func (r *fakeAdminRepo) Create(_ context.Context, admin *domain.Admin) error {
	admin.ID = r.s.nextID("adm")
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = admin.CreatedAt
	r.s.admins[admin.ID] = admin
	r.s.adminOrder = append(r.s.adminOrder, admin.ID)
	return nil
}

func (r *fakeAdminRepo) Update(_ context.Context, admin *domain.Admin) error {
	stored, ok := r.s.admins[admin.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	copied := *admin
	r.s.admins[admin.ID] = &copied
	return nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	admin, ok := r.s.admins[id]
	if !ok || admin.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *admin
	return &copied, nil
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	for _, id := range r.s.adminOrder {
		admin := r.s.admins[id]
		if !admin.IsDeleted && strings.EqualFold(admin.Email, email) {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAdminRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Admin, error) {
	var out []domain.Admin
	for _, id := range ids {
		if admin, ok := r.s.admins[id]; ok && !admin.IsDeleted {
			out = append(out, *admin)
		}
	}
	return out, nil
}

func (r *fakeAdminRepo) List(_ context.Context, filter repository.AdminFilter) ([]domain.Admin, int64, error) {
	var out []domain.Admin
	for _, id := range r.s.adminOrder {
		admin := r.s.admins[id]
		if admin.IsDeleted {
			continue
		}
		if filter.Role != nil && admin.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && admin.IsActive != *filter.Active {
			continue
		}
		out = append(out, *admin)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAdminRepo) SoftDeleteCascade(_ context.Context, id string) error {
	admin, ok := r.s.admins[id]
	if !ok || admin.IsDeleted {
		return pgx.ErrNoRows
	}
	admin.IsDeleted = true
	admin.IsActive = false
	admin.DepartmentID = nil
	for deptID, managers := range r.s.managedBy {
		kept := managers[:0]
		for _, mid := range managers {
			if mid != id {
				kept = append(kept, mid)
			}
		}
		r.s.managedBy[deptID] = kept
	}
	return nil
}

// --- CustomerRepository ---

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	customer.ID = r.s.nextID("cus")
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	r.s.customers[customer.ID] = customer
	r.s.customerOrder = append(r.s.customerOrder, customer.ID)
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	stored, ok := r.s.customers[customer.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	copied := *customer
	r.s.customers[customer.ID] = &copied
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	customer, ok := r.s.customers[id]
	if !ok || customer.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *customer
	return &copied, nil
}

func (r *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, id := range r.s.customerOrder {
		customer := r.s.customers[id]
		if !customer.IsDeleted && strings.EqualFold(customer.Email, email) {
			copied := *customer
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) GetByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	for _, id := range r.s.customerOrder {
		customer := r.s.customers[id]
		if !customer.IsDeleted && customer.Phone != nil && *customer.Phone == phone {
			copied := *customer
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) List(_ context.Context, filter repository.CustomerFilter) ([]domain.Customer, int64, error) {
	var out []domain.Customer
	for _, id := range r.s.customerOrder {
		customer := r.s.customers[id]
		if customer.IsDeleted {
			continue
		}
		out = append(out, *customer)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCustomerRepo) SoftDelete(_ context.Context, id string) error {
	customer, ok := r.s.customers[id]
	if !ok || customer.IsDeleted {
		return pgx.ErrNoRows
	}
	customer.IsDeleted = true
	return nil
}

// --- DivisionRepository ---

type fakeDivisionRepo struct{ s *memStore }

func (r *fakeDivisionRepo) Create(_ context.Context, div *domain.Division) error {
	div.ID = r.s.nextID("div")
	div.CreatedAt = time.Now()
	div.UpdatedAt = div.CreatedAt
	r.s.divisions[div.ID] = div
	return nil
}

func (r *fakeDivisionRepo) Update(_ context.Context, div *domain.Division) error {
	stored, ok := r.s.divisions[div.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	copied := *div
	r.s.divisions[div.ID] = &copied
	return nil
}

func (r *fakeDivisionRepo) GetByID(_ context.Context, id string) (*domain.Division, error) {
	div, ok := r.s.divisions[id]
	if !ok || div.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *div
	return &copied, nil
}

func (r *fakeDivisionRepo) GetByName(_ context.Context, name string) (*domain.Division, error) {
	for _, div := range r.s.divisions {
		if !div.IsDeleted && strings.EqualFold(div.Name, name) {
			copied := *div
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDivisionRepo) List(_ context.Context, filter repository.DivisionFilter) ([]domain.Division, int64, error) {
	var out []domain.Division
	for _, div := range r.s.divisions {
		if !div.IsDeleted {
			out = append(out, *div)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeDivisionRepo) SoftDeleteDetachingDepartments(_ context.Context, id string) error {
	div, ok := r.s.divisions[id]
	if !ok || div.IsDeleted {
		return pgx.ErrNoRows
	}
	div.IsDeleted = true
	for _, dept := range r.s.departments {
		if dept.DivisionID != nil && *dept.DivisionID == id {
			dept.DivisionID = nil
		}
	}
	return nil
}

// --- DepartmentRepository ---

type fakeDepartmentRepo struct{ s *memStore }

func (r *fakeDepartmentRepo) linkManagers(deptID string, managerIDs []string) []string {
	var linked, failed []string
	for _, id := range managerIDs {
		if r.s.failManagerIDs[id] {
			failed = append(failed, id)
			continue
		}
		linked = append(linked, id)
		if admin, ok := r.s.admins[id]; ok {
			dept := deptID
			admin.DepartmentID = &dept
		}
	}
	r.s.managedBy[deptID] = linked
	return failed
}

func (r *fakeDepartmentRepo) CreateWithManagers(_ context.Context, dept *domain.Department, managerIDs []string) ([]string, error) {
	dept.ID = r.s.nextID("dep")
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	r.s.departments[dept.ID] = dept
	return r.linkManagers(dept.ID, managerIDs), nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	stored, ok := r.s.departments[dept.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	copied := *dept
	r.s.departments[dept.ID] = &copied
	return nil
}

func (r *fakeDepartmentRepo) UpdateWithManagers(ctx context.Context, dept *domain.Department, change repository.ManagerChange) ([]string, error) {
	if err := r.Update(ctx, dept); err != nil {
		return nil, err
	}
	for _, removed := range change.Removed {
		if admin, ok := r.s.admins[removed]; ok && admin.DepartmentID != nil && *admin.DepartmentID == dept.ID {
			admin.DepartmentID = nil
		}
	}
	return r.linkManagers(dept.ID, change.All), nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := r.s.departments[id]
	if !ok || dept.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *dept
	return &copied, nil
}

func (r *fakeDepartmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	for _, dept := range r.s.departments {
		if !dept.IsDeleted && strings.EqualFold(dept.Name, name) {
			copied := *dept
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeDepartmentRepo) List(_ context.Context, filter repository.DepartmentFilter) ([]domain.Department, int64, error) {
	var out []domain.Department
	for _, dept := range r.s.departments {
		if dept.IsDeleted {
			continue
		}
		if filter.DivisionID != nil && (dept.DivisionID == nil || *dept.DivisionID != *filter.DivisionID) {
			continue
		}
		out = append(out, *dept)
	}
	return out, int64(len(out)), nil
}

func (r *fakeDepartmentRepo) ListManagers(_ context.Context, deptID string) ([]domain.AdminRef, error) {
	var out []domain.AdminRef
	for _, id := range r.s.managedBy[deptID] {
		if admin, ok := r.s.admins[id]; ok && !admin.IsDeleted {
			out = append(out, domain.AdminRef{ID: admin.ID, Name: admin.Name})
		}
	}
	return out, nil
}

func (r *fakeDepartmentRepo) ListManagerIDs(_ context.Context, deptID string) ([]string, error) {
	return append([]string(nil), r.s.managedBy[deptID]...), nil
}

func (r *fakeDepartmentRepo) ListTechnicians(_ context.Context, deptID string) ([]domain.AdminRef, error) {
	var out []domain.AdminRef
	for _, id := range r.s.adminOrder {
		admin := r.s.admins[id]
		if admin.IsDeleted || admin.Role != domain.AdminRoleTechnician {
			continue
		}
		if admin.DepartmentID != nil && *admin.DepartmentID == deptID {
			out = append(out, domain.AdminRef{ID: admin.ID, Name: admin.Name})
		}
	}
	return out, nil
}

func (r *fakeDepartmentRepo) ListManagedBy(_ context.Context, adminID string) ([]domain.Department, error) {
	var out []domain.Department
	for deptID, managers := range r.s.managedBy {
		for _, id := range managers {
			if id == adminID {
				if dept, ok := r.s.departments[deptID]; ok && !dept.IsDeleted {
					out = append(out, *dept)
				}
			}
		}
	}
	return out, nil
}

func (r *fakeDepartmentRepo) SoftDeleteCascade(_ context.Context, id string) error {
	dept, ok := r.s.departments[id]
	if !ok || dept.IsDeleted {
		return pgx.ErrNoRows
	}
	dept.IsDeleted = true
	delete(r.s.managedBy, id)
	for _, admin := range r.s.admins {
		if admin.DepartmentID != nil && *admin.DepartmentID == id {
			admin.DepartmentID = nil
		}
	}
	return nil
}

// --- TicketRepository ---

type fakeTicketRepo struct{ s *memStore }

func (r *fakeTicketRepo) CreateGraph(_ context.Context, ticket *domain.Ticket, customer *domain.Customer, assets []domain.TicketAsset) error {
	if customer != nil {
		if customer.ID == "" {
			customer.ID = r.s.nextID("cus")
			copied := *customer
			r.s.customers[customer.ID] = &copied
			r.s.customerOrder = append(r.s.customerOrder, customer.ID)
		}
		ticket.CustomerID = customer.ID
	}
	ticket.ID = r.s.nextID("tkt")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	for i := range assets {
		assets[i].ID = r.s.nextID("ast")
		assets[i].TicketID = ticket.ID
	}
	ticket.Assets = assets
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	r.s.ticketAssets[ticket.ID] = assets
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.s.tickets[ticket.ID]
	if !ok || stored.IsDeleted {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) ReplaceAssets(_ context.Context, ticketID string, assets []domain.TicketAsset) ([]domain.TicketAsset, error) {
	for i := range assets {
		assets[i].ID = r.s.nextID("ast")
		assets[i].TicketID = ticketID
	}
	r.s.ticketAssets[ticketID] = assets
	return assets, nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListAssets(_ context.Context, ticketID string) ([]domain.TicketAsset, error) {
	return append([]domain.TicketAsset(nil), r.s.ticketAssets[ticketID]...), nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	var all []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.IsDeleted {
			continue
		}
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		all = append(all, *ticket)
	}
	total := int64(len(all))
	if filter.Offset > 0 && filter.Offset < len(all) {
		all = all[filter.Offset:]
	} else if filter.Offset >= len(all) {
		all = nil
	}
	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r *fakeTicketRepo) SoftDelete(_ context.Context, id string) error {
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.IsDeleted {
		return pgx.ErrNoRows
	}
	ticket.IsDeleted = true
	return nil
}

// --- TicketItemRepository ---

type fakeTicketItemRepo struct{ s *memStore }

func (r *fakeTicketItemRepo) Create(_ context.Context, item *domain.TicketItem, assets []domain.TicketAsset) error {
	item.ID = r.s.nextID("itm")
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	for i := range assets {
		assets[i].ID = r.s.nextID("ast")
	}
	item.Assets = assets
	r.s.items[item.TicketID] = append(r.s.items[item.TicketID], *item)
	return nil
}

func (r *fakeTicketItemRepo) GetByID(_ context.Context, id string) (*domain.TicketItem, error) {
	for _, items := range r.s.items {
		for i := range items {
			if items[i].ID == id {
				copied := items[i]
				return &copied, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketItemRepo) ListByTicket(_ context.Context, ticketID string, publicOnly bool) ([]domain.TicketItem, error) {
	var out []domain.TicketItem
	for _, item := range r.s.items[ticketID] {
		if publicOnly && !item.IsPublic {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// --- NotificationRepository ---

type fakeNotificationRepo struct{ s *memStore }

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	notification.ID = r.s.nextID("ntf")
	notification.CreatedAt = time.Now()
	for i := range notification.Receivers {
		notification.Receivers[i].ID = r.s.nextID("rcv")
		notification.Receivers[i].NotificationID = notification.ID
	}
	r.s.notifications = append(r.s.notifications, notification)
	return nil
}

func (r *fakeNotificationRepo) ListForReceiver(_ context.Context, match repository.ReceiverMatch, limit, offset int) ([]domain.Notification, int64, error) {
	var out []domain.Notification
	for _, n := range r.s.notifications {
		if notificationMatches(n, match) {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func notificationMatches(n *domain.Notification, match repository.ReceiverMatch) bool {
	for _, receiver := range n.Receivers {
		if receiverMatches(receiver, match) {
			return true
		}
	}
	return false
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, receiverID string, match repository.ReceiverMatch, readAt time.Time) error {
	for _, n := range r.s.notifications {
		for i := range n.Receivers {
			receiver := &n.Receivers[i]
			if receiver.ID != receiverID || receiver.ReadAt != nil {
				continue
			}
			if !receiverMatches(*receiver, match) {
				continue
			}
			receiver.ReadAt = &readAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func receiverMatches(receiver domain.NotificationReceiver, match repository.ReceiverMatch) bool {
	if match.AdminID != nil && receiver.AdminID != nil && *receiver.AdminID == *match.AdminID {
		return true
	}
	if match.CustomerID != nil && receiver.CustomerID != nil && *receiver.CustomerID == *match.CustomerID {
		return true
	}
	for _, deptID := range match.DepartmentIDs {
		if receiver.DepartmentID != nil && *receiver.DepartmentID == deptID {
			return true
		}
	}
	return false
}

// --- OTPStore ---

type fakeOTPStore struct {
	codes map[string]string
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (s *fakeOTPStore) Save(_ context.Context, email, code string, _ time.Duration) error {
	s.codes[strings.ToLower(email)] = code
	return nil
}

func (s *fakeOTPStore) Verify(_ context.Context, email, code string) (bool, error) {
	stored, ok := s.codes[strings.ToLower(email)]
	if !ok || stored != code {
		return false, nil
	}
	delete(s.codes, strings.ToLower(email))
	return true, nil
}
