package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// RequestRepository encapsulates locker request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	Update(ctx context.Context, request *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter RequestFilter) (domain.Page[domain.Request], error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, user_id, requester_name, requester_address, requester_phone, student_name,
        student_class, school_year, preferred_zone_id, preferred_locker, status, submitted_at, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (user_id, requester_name, requester_address, requester_phone, student_name,
            student_class, school_year, preferred_zone_id, preferred_locker, status, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		request.UserID,
		request.RequesterName,
		request.RequesterAddress,
		request.RequesterPhone,
		request.StudentName,
		request.StudentClass,
		request.SchoolYear,
		request.PreferredZoneID,
		request.PreferredLocker,
		request.Status,
		request.SubmittedAt,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	return mapPgError(err)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request) error {
	const query = `
        UPDATE requests SET user_id=$1, requester_name=$2, requester_address=$3, requester_phone=$4,
            student_name=$5, student_class=$6, school_year=$7, preferred_zone_id=$8, preferred_locker=$9,
            status=$10, submitted_at=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		request.UserID,
		request.RequesterName,
		request.RequesterAddress,
		request.RequesterPhone,
		request.StudentName,
		request.StudentClass,
		request.SchoolYear,
		request.PreferredZoneID,
		request.PreferredLocker,
		request.Status,
		request.SubmittedAt,
		request.ID,
	).Scan(&request.UpdatedAt)
	return mapPgError(err)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id=$1`
	return scanRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx, `DELETE FROM requests WHERE id=$1`, id))
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) (domain.Page[domain.Request], error) {
	q := conn(ctx, r.pool)
	where := &whereBuilder{}
	where.search(filter.Search, "student_name", "requester_name", "requester_address", "requester_phone")
	if filter.Status != nil {
		where.eq("status", *filter.Status)
	}
	if filter.UserID != nil {
		where.eq("user_id", *filter.UserID)
	}
	if filter.PreferredZoneID != nil {
		where.eq("preferred_zone_id", *filter.PreferredZoneID)
	}

	total, err := countRows(ctx, q, "requests", where)
	if err != nil {
		return domain.Page[domain.Request]{}, err
	}
	query := `SELECT ` + requestColumns + ` FROM requests` + where.sql() +
		` ORDER BY submitted_at DESC` + pageClause(filter.PageRequest)
	rows, err := q.Query(ctx, query, where.args...)
	if err != nil {
		return domain.Page[domain.Request]{}, err
	}
	defer rows.Close()

	var items []domain.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return domain.Page[domain.Request]{}, err
		}
		items = append(items, *request)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Request]{}, err
	}
	return domain.NewPage(items, filter.PageRequest, total), nil
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var request domain.Request
	if err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.RequesterName,
		&request.RequesterAddress,
		&request.RequesterPhone,
		&request.StudentName,
		&request.StudentClass,
		&request.SchoolYear,
		&request.PreferredZoneID,
		&request.PreferredLocker,
		&request.Status,
		&request.SubmittedAt,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &request, nil
}
