package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TicketItemRepository persists routed work assignments under a ticket.
type TicketItemRepository interface {
	// Create inserts the item and its assets in one transaction.
	Create(ctx context.Context, item *domain.TicketItem, assets []domain.TicketAsset) error
	GetByID(ctx context.Context, id string) (*domain.TicketItem, error)
	// ListByTicket returns items ordered by creation time. With publicOnly set,
	// items hidden from the customer are skipped.
	ListByTicket(ctx context.Context, ticketID string, publicOnly bool) ([]domain.TicketItem, error)
}

const ticketItemColumns = `id, ticket_id, title, description, is_public,
       assigned_by_role, assigned_by_admin_id, assigned_by_customer_id, assigned_by_dept_id,
       assigned_to_role, assigned_to_admin_id, assigned_to_customer_id, assigned_to_dept_id,
       created_at, updated_at`

type ticketItemRepository struct {
	pool *pgxpool.Pool
}

// NewTicketItemRepository instantiates the repository.
func NewTicketItemRepository(pool *pgxpool.Pool) TicketItemRepository {
	return &ticketItemRepository{pool: pool}
}

func (r *ticketItemRepository) Create(ctx context.Context, item *domain.TicketItem, assets []domain.TicketAsset) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO ticket_items (ticket_id, title, description, is_public,
            assigned_by_role, assigned_by_admin_id, assigned_by_customer_id, assigned_by_dept_id,
            assigned_to_role, assigned_to_admin_id, assigned_to_customer_id, assigned_to_dept_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		item.TicketID,
		item.Title,
		item.Description,
		item.IsPublic,
		item.AssignedBy.Role,
		item.AssignedBy.AdminID,
		item.AssignedBy.CustomerID,
		item.AssignedBy.DepartmentID,
		item.AssignedTo.Role,
		item.AssignedTo.AdminID,
		item.AssignedTo.CustomerID,
		item.AssignedTo.DepartmentID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return err
	}

	for _, asset := range assets {
		var created domain.TicketAsset
		created = asset
		created.TicketID = item.TicketID
		if err := tx.QueryRow(ctx, `
            INSERT INTO ticket_item_assets (item_id, url, asset_type)
            VALUES ($1,$2,$3)
            RETURNING id, created_at`,
			item.ID, asset.URL, asset.Type,
		).Scan(&created.ID, &created.CreatedAt); err != nil {
			return err
		}
		item.Assets = append(item.Assets, created)
	}
	return tx.Commit(ctx)
}

func (r *ticketItemRepository) GetByID(ctx context.Context, id string) (*domain.TicketItem, error) {
	query := `SELECT ` + ticketItemColumns + ` FROM ticket_items WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	item, err := scanTicketItem(row)
	if err != nil {
		return nil, err
	}
	assets, err := r.listItemAssets(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Assets = assets
	return item, nil
}

func (r *ticketItemRepository) ListByTicket(ctx context.Context, ticketID string, publicOnly bool) ([]domain.TicketItem, error) {
	query := `SELECT ` + ticketItemColumns + ` FROM ticket_items WHERE ticket_id=$1`
	if publicOnly {
		query += ` AND is_public=TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketItem
	for rows.Next() {
		item, err := scanTicketItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		assets, err := r.listItemAssets(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Assets = assets
	}
	return result, nil
}

func (r *ticketItemRepository) listItemAssets(ctx context.Context, itemID string) ([]domain.TicketAsset, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, item_id, url, asset_type, created_at
        FROM ticket_item_assets WHERE item_id=$1 ORDER BY created_at`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketAssets(rows)
}

func scanTicketItem(row pgx.Row) (*domain.TicketItem, error) {
	var item domain.TicketItem
	if err := row.Scan(
		&item.ID,
		&item.TicketID,
		&item.Title,
		&item.Description,
		&item.IsPublic,
		&item.AssignedBy.Role,
		&item.AssignedBy.AdminID,
		&item.AssignedBy.CustomerID,
		&item.AssignedBy.DepartmentID,
		&item.AssignedTo.Role,
		&item.AssignedTo.AdminID,
		&item.AssignedTo.CustomerID,
		&item.AssignedTo.DepartmentID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
