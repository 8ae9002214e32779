package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	CustomerID *string
	Priority   *domain.TicketPriority
	Urgency    *domain.TicketUrgency
	Status     *domain.TicketStatus
	SearchTerm *string
	FromDate   *time.Time
	ToDate     *time.Time
	SortBy     string
	SortOrder  string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. All reads exclude
// soft-deleted rows.
type TicketRepository interface {
	// CreateGraph inserts the ticket and its assets in one transaction. When
	// customer is non-nil and has no id yet, the customer row is inserted in
	// the same transaction and the ticket links to it.
	CreateGraph(ctx context.Context, ticket *domain.Ticket, customer *domain.Customer, assets []domain.TicketAsset) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	// ReplaceAssets deletes the full asset set and recreates it atomically.
	ReplaceAssets(ctx context.Context, ticketID string, assets []domain.TicketAsset) ([]domain.TicketAsset, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListAssets(ctx context.Context, ticketID string) ([]domain.TicketAsset, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

const ticketColumns = `id, title, description, contact_name, contact_email, contact_phone, contact_address,
       customer_id, priority, urgency, status, is_deleted, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) CreateGraph(ctx context.Context, ticket *domain.Ticket, customer *domain.Customer, assets []domain.TicketAsset) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if customer != nil {
		if customer.ID == "" {
			const insertCustomer = `
            INSERT INTO customers (first_name, last_name, email, phone, address, is_verified, is_registered)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id, created_at, updated_at`
			if err := tx.QueryRow(ctx, insertCustomer,
				customer.FirstName,
				customer.LastName,
				strings.ToLower(customer.Email),
				customer.Phone,
				customer.Address,
				customer.IsVerified,
				customer.IsRegistered,
			).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
				return err
			}
		}
		ticket.CustomerID = customer.ID
	}

	const insertTicket = `
        INSERT INTO tickets (title, description, contact_name, contact_email, contact_phone, contact_address,
            customer_id, priority, urgency, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.Title,
		ticket.Description,
		ticket.ContactName,
		ticket.ContactEmail,
		ticket.ContactPhone,
		ticket.ContactAddress,
		ticket.CustomerID,
		ticket.Priority,
		ticket.Urgency,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	created, err := insertTicketAssets(ctx, tx, ticket.ID, assets)
	if err != nil {
		return err
	}
	ticket.Assets = created
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, urgency=$4, status=$5, updated_at=NOW()
        WHERE id=$6 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Urgency,
		ticket.Status,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ReplaceAssets(ctx context.Context, ticketID string, assets []domain.TicketAsset) ([]domain.TicketAsset, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_assets WHERE ticket_id=$1`, ticketID); err != nil {
		return nil, err
	}
	created, err := insertTicketAssets(ctx, tx, ticketID, assets)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func insertTicketAssets(ctx context.Context, tx pgx.Tx, ticketID string, assets []domain.TicketAsset) ([]domain.TicketAsset, error) {
	created := make([]domain.TicketAsset, 0, len(assets))
	for _, asset := range assets {
		asset.TicketID = ticketID
		if err := tx.QueryRow(ctx, `
            INSERT INTO ticket_assets (ticket_id, url, asset_type)
            VALUES ($1,$2,$3)
            RETURNING id, created_at`,
			ticketID, asset.URL, asset.Type,
		).Scan(&asset.ID, &asset.CreatedAt); err != nil {
			return nil, err
		}
		created = append(created, asset)
	}
	return created, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND is_deleted=FALSE`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.ContactName,
		&ticket.ContactEmail,
		&ticket.ContactPhone,
		&ticket.ContactAddress,
		&ticket.CustomerID,
		&ticket.Priority,
		&ticket.Urgency,
		&ticket.Status,
		&ticket.IsDeleted,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListAssets(ctx context.Context, ticketID string) ([]domain.TicketAsset, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, ticket_id, url, asset_type, created_at
        FROM ticket_assets WHERE ticket_id=$1 ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketAssets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Urgency != nil {
		args = append(args, *filter.Urgency)
		clauses = append(clauses, fmt.Sprintf("urgency=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(COALESCE(description,'')) LIKE %s OR LOWER(contact_name) LIKE %s"+
				" OR LOWER(COALESCE(contact_email,'')) LIKE %s OR COALESCE(contact_phone,'') LIKE %s OR LOWER(COALESCE(contact_address,'')) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder, placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, where, orderClause(filter.SortBy, filter.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.ContactName,
			&ticket.ContactEmail,
			&ticket.ContactPhone,
			&ticket.ContactAddress,
			&ticket.CustomerID,
			&ticket.Priority,
			&ticket.Urgency,
			&ticket.Status,
			&ticket.IsDeleted,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND is_deleted=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicketAssets(rows pgx.Rows) ([]domain.TicketAsset, error) {
	var result []domain.TicketAsset
	for rows.Next() {
		var asset domain.TicketAsset
		if err := rows.Scan(&asset.ID, &asset.TicketID, &asset.URL, &asset.Type, &asset.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}
