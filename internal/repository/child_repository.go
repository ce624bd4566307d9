package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// ChildRepository manages students registered by guardians.
type ChildRepository interface {
	Create(ctx context.Context, child *domain.Child) error
	ListByParent(ctx context.Context, parentID string) ([]domain.Child, error)
}

type childRepository struct {
	pool *pgxpool.Pool
}

// NewChildRepository instantiates the repository.
func NewChildRepository(pool *pgxpool.Pool) ChildRepository {
	return &childRepository{pool: pool}
}

func (r *childRepository) Create(ctx context.Context, child *domain.Child) error {
	const query = `
        INSERT INTO children (parent_id, full_name, class)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, child.ParentID, child.FullName, child.Class).
		Scan(&child.ID, &child.CreatedAt, &child.UpdatedAt)
	return mapPgError(err)
}

func (r *childRepository) ListByParent(ctx context.Context, parentID string) ([]domain.Child, error) {
	const query = `
        SELECT id, parent_id, full_name, class, created_at, updated_at
        FROM children WHERE parent_id=$1 ORDER BY full_name`
	rows, err := conn(ctx, r.pool).Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Child
	for rows.Next() {
		var child domain.Child
		if err := rows.Scan(
			&child.ID,
			&child.ParentID,
			&child.FullName,
			&child.Class,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, child)
	}
	return result, rows.Err()
}
