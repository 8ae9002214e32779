package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AdminFilter defines query params for admin listing.
type AdminFilter struct {
	Role         *domain.AdminRole
	DepartmentID *string
	Active       *bool
	Search       *string
	Limit        int
	Offset       int
}

// AdminRepository handles persistence for staff accounts. All reads exclude
// soft-deleted rows.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	Update(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Admin, error)
	List(ctx context.Context, filter AdminFilter) ([]domain.Admin, int64, error)
	SoftDeleteCascade(ctx context.Context, id string) error
}

const adminColumns = `id, name, email, password_hash, role, phone, profile_picture, department_id, is_active, is_deleted, created_at, updated_at`

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (name, email, password_hash, role, phone, profile_picture, department_id, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		admin.Name,
		strings.ToLower(admin.Email),
		admin.PasswordHash,
		admin.Role,
		admin.Phone,
		admin.ProfilePicture,
		admin.DepartmentID,
		admin.IsActive,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *adminRepository) Update(ctx context.Context, admin *domain.Admin) error {
	const query = `
        UPDATE admins
        SET name=$1, email=$2, password_hash=$3, role=$4, phone=$5, profile_picture=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query,
		admin.Name,
		strings.ToLower(admin.Email),
		admin.PasswordHash,
		admin.Role,
		admin.Phone,
		admin.ProfilePicture,
		admin.IsActive,
		admin.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id=$1 AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, id)
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE LOWER(email)=LOWER($1) AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, email)
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	var admin domain.Admin
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Phone,
		&admin.ProfilePicture,
		&admin.DepartmentID,
		&admin.IsActive,
		&admin.IsDeleted,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Admin, error) {
	if len(ids) == 0 {
		return []domain.Admin{}, nil
	}
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = ANY($1) AND is_deleted=FALSE`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAdmins(rows)
}

func (r *adminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.Admin, int64, error) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(email) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		adminColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	admins, err := scanAdmins(rows)
	if err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// SoftDeleteCascade marks the admin deleted, drops their manager assignments
// and clears the department back-reference in one transaction.
func (r *adminRepository) SoftDeleteCascade(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE admins SET is_deleted=TRUE, is_active=FALSE, department_id=NULL, updated_at=NOW()
        WHERE id=$1 AND is_deleted=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `DELETE FROM managed_departments WHERE admin_id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanAdmins(rows pgx.Rows) ([]domain.Admin, error) {
	var result []domain.Admin
	for rows.Next() {
		var admin domain.Admin
		if err := rows.Scan(
			&admin.ID,
			&admin.Name,
			&admin.Email,
			&admin.PasswordHash,
			&admin.Role,
			&admin.Phone,
			&admin.ProfilePicture,
			&admin.DepartmentID,
			&admin.IsActive,
			&admin.IsDeleted,
			&admin.CreatedAt,
			&admin.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, admin)
	}
	return result, rows.Err()
}
