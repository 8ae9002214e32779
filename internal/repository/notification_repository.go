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

// ReceiverMatch is the predicate for notification fan-in, produced by the
// assignment resolver. Exactly one of the id fields is populated for direct
// recipients; managers match on their managed department set instead.
type ReceiverMatch struct {
	Role          domain.PartyRole
	AdminID       *string
	CustomerID    *string
	DepartmentIDs []string
}

// NotificationRepository persists notifications and their receiver rows.
type NotificationRepository interface {
	// Create inserts the notification and all receiver rows in one transaction.
	Create(ctx context.Context, notification *domain.Notification) error
	ListForReceiver(ctx context.Context, match ReceiverMatch, limit, offset int) ([]domain.Notification, int64, error)
	// MarkRead flips the receiver row, but only when it is addressed to the
	// matching principal.
	MarkRead(ctx context.Context, receiverID string, match ReceiverMatch, readAt time.Time) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO notifications (notification_type, title, body, sender_role, sender_admin_id, sender_customer_id, ticket_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		notification.Type,
		notification.Title,
		notification.Body,
		notification.SenderRole,
		notification.SenderAdminID,
		notification.SenderCustomerID,
		notification.TicketID,
	).Scan(&notification.ID, &notification.CreatedAt); err != nil {
		return err
	}

	for i := range notification.Receivers {
		receiver := &notification.Receivers[i]
		receiver.NotificationID = notification.ID
		if err := tx.QueryRow(ctx, `
            INSERT INTO notification_receivers (notification_id, receiver_role, receiver_admin_id, receiver_customer_id, receiver_dept_id)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id`,
			notification.ID,
			receiver.Role,
			receiver.AdminID,
			receiver.CustomerID,
			receiver.DepartmentID,
		).Scan(&receiver.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *notificationRepository) ListForReceiver(ctx context.Context, match ReceiverMatch, limit, offset int) ([]domain.Notification, int64, error) {
	clauses := []string{}
	args := []any{}

	if match.AdminID != nil {
		args = append(args, *match.AdminID)
		clauses = append(clauses, fmt.Sprintf("nr.receiver_admin_id=$%d", len(args)))
	}
	if match.CustomerID != nil {
		args = append(args, *match.CustomerID)
		clauses = append(clauses, fmt.Sprintf("nr.receiver_customer_id=$%d", len(args)))
	}
	if len(match.DepartmentIDs) > 0 {
		args = append(args, match.DepartmentIDs)
		clauses = append(clauses, fmt.Sprintf("nr.receiver_dept_id = ANY($%d)", len(args)))
	}
	if len(clauses) == 0 {
		return []domain.Notification{}, 0, nil
	}
	where := "(" + strings.Join(clauses, " OR ") + ")"

	var total int64
	if err := r.pool.QueryRow(ctx, `
        SELECT COUNT(DISTINCT n.id) FROM notifications n
        JOIN notification_receivers nr ON nr.notification_id = n.id
        WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT DISTINCT n.id, n.notification_type, n.title, n.body, n.sender_role,
               n.sender_admin_id, n.sender_customer_id, n.ticket_id, n.created_at
        FROM notifications n
        JOIN notification_receivers nr ON nr.notification_id = n.id
        WHERE %s
        ORDER BY n.created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.Title,
			&n.Body,
			&n.SenderRole,
			&n.SenderAdminID,
			&n.SenderCustomerID,
			&n.TicketID,
			&n.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, receiverID string, match ReceiverMatch, readAt time.Time) error {
	args := []any{readAt, receiverID}
	clauses := []string{}

	if match.AdminID != nil {
		args = append(args, *match.AdminID)
		clauses = append(clauses, fmt.Sprintf("receiver_admin_id=$%d", len(args)))
	}
	if match.CustomerID != nil {
		args = append(args, *match.CustomerID)
		clauses = append(clauses, fmt.Sprintf("receiver_customer_id=$%d", len(args)))
	}
	if len(match.DepartmentIDs) > 0 {
		args = append(args, match.DepartmentIDs)
		clauses = append(clauses, fmt.Sprintf("receiver_dept_id = ANY($%d)", len(args)))
	}
	if len(clauses) == 0 {
		return pgx.ErrNoRows
	}

	query := `UPDATE notification_receivers SET read_at=$1
        WHERE id=$2 AND read_at IS NULL AND (` + strings.Join(clauses, " OR ") + `)`
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
