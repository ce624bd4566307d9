package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// UserRepository defines persistence access for guardian and staff accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter UserFilter) (domain.Page[domain.User], error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, address, phone, language, is_staff, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, full_name, address, phone, language, is_staff)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Address,
		user.Phone,
		user.Language,
		user.IsStaff,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return mapPgError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, password_hash=$2, full_name=$3, address=$4, phone=$5,
            language=$6, is_staff=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Address,
		user.Phone,
		user.Language,
		user.IsStaff,
		user.ID,
	).Scan(&user.UpdatedAt)
	return mapPgError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE id=$1`, id))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) (domain.Page[domain.User], error) {
	q := conn(ctx, r.pool)
	where := &whereBuilder{}
	where.search(filter.Search, "email", "full_name", "phone")
	if filter.IsStaff != nil {
		where.eq("is_staff", *filter.IsStaff)
	}
	if filter.CreatedFrom != nil {
		where.cmp("created_at", ">=", *filter.CreatedFrom)
	}

	total, err := countRows(ctx, q, "users", where)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where.sql() + ` ORDER BY email` + pageClause(filter.PageRequest)
	rows, err := q.Query(ctx, query, where.args...)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	defer rows.Close()

	var items []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return domain.Page[domain.User]{}, err
		}
		items = append(items, *user)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.NewPage(items, filter.PageRequest, total), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Address,
		&user.Phone,
		&user.Language,
		&user.IsStaff,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &user, nil
}
