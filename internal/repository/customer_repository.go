package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CustomerFilter defines query params for customer listing.
type CustomerFilter struct {
	Search     *string
	Verified   *bool
	Registered *bool
	Limit      int
	Offset     int
}

// CustomerRepository handles persistence for customer accounts.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	// GetByPhone returns the oldest live customer carrying the phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

const customerColumns = `id, first_name, last_name, email, phone, address, password_hash,
       insurance_provider, insurance_number, is_verified, is_registered, is_deleted, created_at, updated_at`

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository instantiates the repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (first_name, last_name, email, phone, address, password_hash,
            insurance_provider, insurance_number, is_verified, is_registered)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.FirstName,
		customer.LastName,
		strings.ToLower(customer.Email),
		customer.Phone,
		customer.Address,
		customer.PasswordHash,
		customer.InsuranceProvider,
		customer.InsuranceNumber,
		customer.IsVerified,
		customer.IsRegistered,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	const query = `
        UPDATE customers
        SET first_name=$1, last_name=$2, email=$3, phone=$4, address=$5, password_hash=$6,
            insurance_provider=$7, insurance_number=$8, is_verified=$9, is_registered=$10, updated_at=NOW()
        WHERE id=$11 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query,
		customer.FirstName,
		customer.LastName,
		strings.ToLower(customer.Email),
		customer.Phone,
		customer.Address,
		customer.PasswordHash,
		customer.InsuranceProvider,
		customer.InsuranceNumber,
		customer.IsVerified,
		customer.IsRegistered,
		customer.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1 AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE LOWER(email)=LOWER($1) AND is_deleted=FALSE`
	return r.fetchSingle(ctx, query, email)
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
        WHERE phone=$1 AND is_deleted=FALSE ORDER BY created_at ASC LIMIT 1`
	return r.fetchSingle(ctx, query, phone)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&customer.Address,
		&customer.PasswordHash,
		&customer.InsuranceProvider,
		&customer.InsuranceNumber,
		&customer.IsVerified,
		&customer.IsRegistered,
		&customer.IsDeleted,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int64, error) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		clauses = append(clauses, fmt.Sprintf("is_verified=$%d", len(args)))
	}
	if filter.Registered != nil {
		args = append(args, *filter.Registered)
		clauses = append(clauses, fmt.Sprintf("is_registered=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(first_name) LIKE %s OR LOWER(COALESCE(last_name,'')) LIKE %s OR LOWER(email) LIKE %s OR COALESCE(phone,'') LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		customerColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID,
			&customer.FirstName,
			&customer.LastName,
			&customer.Email,
			&customer.Phone,
			&customer.Address,
			&customer.PasswordHash,
			&customer.InsuranceProvider,
			&customer.InsuranceNumber,
			&customer.IsVerified,
			&customer.IsRegistered,
			&customer.IsDeleted,
			&customer.CreatedAt,
			&customer.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *customerRepository) SoftDelete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE customers SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND is_deleted=FALSE`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
