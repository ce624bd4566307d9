package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// AssignmentRepository encapsulates request/locker link persistence.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	Update(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, id string) error
	GetByRequest(ctx context.Context, requestID string) (*domain.Assignment, error)
	GetByLocker(ctx context.Context, lockerID string) (*domain.Assignment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error)
	ListAll(ctx context.Context) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `a.id, a.request_id, a.locker_id, a.assigned_at, a.created_at, a.updated_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (request_id, locker_id, assigned_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		assignment.RequestID,
		assignment.LockerID,
		assignment.AssignedAt,
	).Scan(&assignment.ID, &assignment.CreatedAt, &assignment.UpdatedAt)
	return mapPgError(err)
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        UPDATE assignments SET request_id=$1, locker_id=$2, assigned_at=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		assignment.RequestID,
		assignment.LockerID,
		assignment.AssignedAt,
		assignment.ID,
	).Scan(&assignment.UpdatedAt)
	return mapPgError(err)
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx, `DELETE FROM assignments WHERE id=$1`, id))
}

func (r *assignmentRepository) GetByRequest(ctx context.Context, requestID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments a
        WHERE a.request_id=$1 ORDER BY a.assigned_at DESC LIMIT 1`
	return scanAssignment(conn(ctx, r.pool).QueryRow(ctx, query, requestID))
}

func (r *assignmentRepository) GetByLocker(ctx context.Context, lockerID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments a
        WHERE a.locker_id=$1 ORDER BY a.assigned_at DESC LIMIT 1`
	return scanAssignment(conn(ctx, r.pool).QueryRow(ctx, query, lockerID))
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments a
        JOIN requests req ON req.id = a.request_id
        WHERE req.user_id=$1 ORDER BY a.assigned_at DESC`
	return r.list(ctx, query, userID)
}

func (r *assignmentRepository) ListAll(ctx context.Context) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments a ORDER BY a.assigned_at`
	return r.list(ctx, query)
}

func (r *assignmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assignment)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := row.Scan(
		&assignment.ID,
		&assignment.RequestID,
		&assignment.LockerID,
		&assignment.AssignedAt,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &assignment, nil
}
