package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// DepartmentFilter defines query params for department listing.
type DepartmentFilter struct {
	DivisionID *string
	Search     *string
	IsActive   *bool
	SortBy     string
	SortOrder  string
	Limit      int
	Offset     int
}

// ManagerChange carries a full replacement of a department's manager set plus
// the precomputed symmetric difference against the previous set.
type ManagerChange struct {
	All     []string
	Added   []string
	Removed []string
}

// DepartmentRepository manages departments and their manager links. All reads
// exclude soft-deleted rows.
type DepartmentRepository interface {
	// CreateWithManagers inserts the department, its managed_departments rows
	// and sets department_id on each manager, in one transaction. Returns the
	// admin ids whose link row could not be inserted by the per-row fallback.
	CreateWithManagers(ctx context.Context, dept *domain.Department, managerIDs []string) ([]string, error)
	Update(ctx context.Context, dept *domain.Department) error
	// UpdateWithManagers updates scalar fields and replaces the full manager
	// set (delete-all-then-insert) in one transaction, maintaining the
	// department_id back-references for added and removed managers.
	UpdateWithManagers(ctx context.Context, dept *domain.Department, change ManagerChange) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context, filter DepartmentFilter) ([]domain.Department, int64, error)
	ListManagers(ctx context.Context, deptID string) ([]domain.AdminRef, error)
	ListManagerIDs(ctx context.Context, deptID string) ([]string, error)
	// ListTechnicians returns technician-role admins whose department_id points
	// at the department. Manager overlap removal happens in the resolver.
	ListTechnicians(ctx context.Context, deptID string) ([]domain.AdminRef, error)
	ListManagedBy(ctx context.Context, adminID string) ([]domain.Department, error)
	// SoftDeleteCascade marks the department deleted, deletes its
	// managed_departments rows and clears department_id on every admin that
	// referenced it, atomically.
	SoftDeleteCascade(ctx context.Context, id string) error
}

const departmentColumns = `id, name, division_id, is_active, is_deleted, created_at, updated_at`

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) CreateWithManagers(ctx context.Context, dept *domain.Department, managerIDs []string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO departments (name, division_id, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query, dept.Name, dept.DivisionID, dept.IsActive).
		Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt); err != nil {
		return nil, err
	}

	failed, err := insertManagerLinks(ctx, tx, dept.ID, managerIDs)
	if err != nil {
		return nil, err
	}
	if err := setAdminDepartment(ctx, tx, managerIDs, &dept.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return failed, nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, division_id=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, dept.Name, dept.DivisionID, dept.IsActive, dept.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) UpdateWithManagers(ctx context.Context, dept *domain.Department, change ManagerChange) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE departments SET name=$1, division_id=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4 AND is_deleted=FALSE`
	cmd, err := tx.Exec(ctx, query, dept.Name, dept.DivisionID, dept.IsActive, dept.ID)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `DELETE FROM managed_departments WHERE department_id=$1`, dept.ID); err != nil {
		return nil, err
	}
	failed, err := insertManagerLinks(ctx, tx, dept.ID, change.All)
	if err != nil {
		return nil, err
	}
	if err := setAdminDepartment(ctx, tx, change.Removed, nil); err != nil {
		return nil, err
	}
	if err := setAdminDepartment(ctx, tx, change.Added, &dept.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return failed, nil
}

// insertManagerLinks bulk-inserts the manager link rows. When the bulk insert
// fails it falls back to inserting one row at a time and reports the admin ids
// that still could not be linked, instead of aborting the whole operation.
// Each attempt runs inside a savepoint so a failed statement does not poison
// the surrounding transaction.
func insertManagerLinks(ctx context.Context, tx pgx.Tx, deptID string, managerIDs []string) ([]string, error) {
	if len(managerIDs) == 0 {
		return nil, nil
	}

	rows := make([][]any, 0, len(managerIDs))
	for _, adminID := range managerIDs {
		rows = append(rows, []any{adminID, deptID})
	}
	bulk, err := tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := bulk.CopyFrom(ctx,
		pgx.Identifier{"managed_departments"},
		[]string{"admin_id", "department_id"},
		pgx.CopyFromRows(rows),
	); err == nil {
		if err := bulk.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	_ = bulk.Rollback(ctx)

	var failed []string
	for _, adminID := range managerIDs {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, err
		}
		if _, rowErr := sp.Exec(ctx, `
            INSERT INTO managed_departments (admin_id, department_id)
            VALUES ($1,$2) ON CONFLICT (admin_id, department_id) DO NOTHING`,
			adminID, deptID); rowErr != nil {
			_ = sp.Rollback(ctx)
			failed = append(failed, adminID)
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			failed = append(failed, adminID)
		}
	}
	return failed, nil
}

func setAdminDepartment(ctx context.Context, tx pgx.Tx, adminIDs []string, deptID *string) error {
	if len(adminIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE admins SET department_id=$1, updated_at=NOW() WHERE id = ANY($2)`, deptID, adminIDs)
	return err
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id=$1 AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, id)
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE LOWER(name)=LOWER($1) AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, name)
}

func (r *departmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Department, error) {
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&dept.ID,
		&dept.Name,
		&dept.DivisionID,
		&dept.IsActive,
		&dept.IsDeleted,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context, filter DepartmentFilter) ([]domain.Department, int64, error) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.DivisionID != nil {
		args = append(args, *filter.DivisionID)
		clauses = append(clauses, fmt.Sprintf("division_id=$%d", len(args)))
	}
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM departments WHERE `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		departmentColumns, where, orderClause(filter.SortBy, filter.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.DivisionID, &dept.IsActive, &dept.IsDeleted, &dept.CreatedAt, &dept.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *departmentRepository) ListManagers(ctx context.Context, deptID string) ([]domain.AdminRef, error) {
	const query = `
        SELECT a.id, a.name FROM managed_departments md
        JOIN admins a ON a.id = md.admin_id AND a.is_deleted=FALSE
        WHERE md.department_id=$1
        ORDER BY a.name`
	return r.listRefs(ctx, query, deptID)
}

func (r *departmentRepository) ListManagerIDs(ctx context.Context, deptID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT admin_id FROM managed_departments WHERE department_id=$1`, deptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *departmentRepository) ListTechnicians(ctx context.Context, deptID string) ([]domain.AdminRef, error) {
	const query = `
        SELECT id, name FROM admins
        WHERE department_id=$1 AND role=$2 AND is_deleted=FALSE
        ORDER BY name`
	rows, err := r.pool.Query(ctx, query, deptID, domain.AdminRoleTechnician)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRefs(rows)
}

func (r *departmentRepository) ListManagedBy(ctx context.Context, adminID string) ([]domain.Department, error) {
	query := `
        SELECT ` + prefixColumns("d", departmentColumns) + ` FROM managed_departments md
        JOIN departments d ON d.id = md.department_id AND d.is_deleted=FALSE
        WHERE md.admin_id=$1
        ORDER BY d.name`
	rows, err := r.pool.Query(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.DivisionID, &dept.IsActive, &dept.IsDeleted, &dept.CreatedAt, &dept.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (r *departmentRepository) SoftDeleteCascade(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE departments SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND is_deleted=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `DELETE FROM managed_departments WHERE department_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE admins SET department_id=NULL, updated_at=NOW() WHERE department_id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *departmentRepository) listRefs(ctx context.Context, query string, args ...any) ([]domain.AdminRef, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRefs(rows)
}

func scanRefs(rows pgx.Rows) ([]domain.AdminRef, error) {
	var refs []domain.AdminRef
	for rows.Next() {
		var ref domain.AdminRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
