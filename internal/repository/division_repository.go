package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// DivisionFilter defines query params for division listing.
type DivisionFilter struct {
	Search    *string
	IsActive  *bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// DivisionRepository manages division persistence.
type DivisionRepository interface {
	Create(ctx context.Context, div *domain.Division) error
	Update(ctx context.Context, div *domain.Division) error
	GetByID(ctx context.Context, id string) (*domain.Division, error)
	GetByName(ctx context.Context, name string) (*domain.Division, error)
	List(ctx context.Context, filter DivisionFilter) ([]domain.Division, int64, error)
	// SoftDeleteDetachingDepartments nulls division_id on every child department
	// and marks the division deleted, atomically.
	SoftDeleteDetachingDepartments(ctx context.Context, id string) error
}

const divisionColumns = `id, name, is_active, is_deleted, created_at, updated_at`

type divisionRepository struct {
	pool *pgxpool.Pool
}

// NewDivisionRepository builds the repository.
func NewDivisionRepository(pool *pgxpool.Pool) DivisionRepository {
	return &divisionRepository{pool: pool}
}

func (r *divisionRepository) Create(ctx context.Context, div *domain.Division) error {
	const query = `
        INSERT INTO divisions (name, is_active)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, div.Name, div.IsActive).
		Scan(&div.ID, &div.CreatedAt, &div.UpdatedAt)
}

func (r *divisionRepository) Update(ctx context.Context, div *domain.Division) error {
	const query = `
        UPDATE divisions SET name=$1, is_active=$2, updated_at=NOW()
        WHERE id=$3 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, div.Name, div.IsActive, div.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *divisionRepository) GetByID(ctx context.Context, id string) (*domain.Division, error) {
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE id=$1 AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, id)
}

func (r *divisionRepository) GetByName(ctx context.Context, name string) (*domain.Division, error) {
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE LOWER(name)=LOWER($1) AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, name)
}

func (r *divisionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Division, error) {
	var div domain.Division
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&div.ID,
		&div.Name,
		&div.IsActive,
		&div.IsDeleted,
		&div.CreatedAt,
		&div.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &div, nil
}

func (r *divisionRepository) List(ctx context.Context, filter DivisionFilter) ([]domain.Division, int64, error) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM divisions WHERE `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM divisions WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		divisionColumns, where, orderClause(filter.SortBy, filter.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Division
	for rows.Next() {
		var div domain.Division
		if err := rows.Scan(&div.ID, &div.Name, &div.IsActive, &div.IsDeleted, &div.CreatedAt, &div.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, div)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *divisionRepository) SoftDeleteDetachingDepartments(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE departments SET division_id=NULL, updated_at=NOW() WHERE division_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx,
		`UPDATE divisions SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND is_deleted=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

// orderClause whitelists sortable columns; anything else falls back to created_at.
func orderClause(sortBy, sortOrder string) string {
	column := "created_at"
	switch strings.ToLower(sortBy) {
	case "name":
		column = "name"
	case "updatedat", "updated_at":
		column = "updated_at"
	case "createdat", "created_at", "":
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}
