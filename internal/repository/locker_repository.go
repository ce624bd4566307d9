package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// LockerRepository encapsulates locker persistence.
type LockerRepository interface {
	Create(ctx context.Context, locker *domain.Locker) error
	Update(ctx context.Context, locker *domain.Locker) error
	UpdateStatus(ctx context.Context, id string, status domain.LockerStatus) error
	GetByID(ctx context.Context, id string) (*domain.Locker, error)
	GetByNumber(ctx context.Context, number int) (*domain.Locker, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter LockerFilter) (domain.Page[domain.Locker], error)
	// FindFirstFree returns the lowest-numbered free locker, optionally within a zone.
	FindFirstFree(ctx context.Context, zoneID *string) (*domain.Locker, error)
}

type lockerRepository struct {
	pool *pgxpool.Pool
}

// NewLockerRepository instantiates the repository.
func NewLockerRepository(pool *pgxpool.Pool) LockerRepository {
	return &lockerRepository{pool: pool}
}

const lockerColumns = `id, number, status, zone_id, note, created_at, updated_at`

func (r *lockerRepository) Create(ctx context.Context, locker *domain.Locker) error {
	const query = `
        INSERT INTO lockers (number, status, zone_id, note)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		locker.Number,
		locker.Status,
		locker.ZoneID,
		locker.Note,
	).Scan(&locker.ID, &locker.CreatedAt, &locker.UpdatedAt)
	return mapPgError(err)
}

func (r *lockerRepository) Update(ctx context.Context, locker *domain.Locker) error {
	const query = `
        UPDATE lockers SET number=$1, status=$2, zone_id=$3, note=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		locker.Number,
		locker.Status,
		locker.ZoneID,
		locker.Note,
		locker.ID,
	).Scan(&locker.UpdatedAt)
	return mapPgError(err)
}

func (r *lockerRepository) UpdateStatus(ctx context.Context, id string, status domain.LockerStatus) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx,
		`UPDATE lockers SET status=$1, updated_at=NOW() WHERE id=$2`, status, id))
}

func (r *lockerRepository) GetByID(ctx context.Context, id string) (*domain.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE id=$1`
	return scanLocker(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *lockerRepository) GetByNumber(ctx context.Context, number int) (*domain.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE number=$1`
	return scanLocker(conn(ctx, r.pool).QueryRow(ctx, query, number))
}

func (r *lockerRepository) Delete(ctx context.Context, id string) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx, `DELETE FROM lockers WHERE id=$1`, id))
}

func (r *lockerRepository) FindFirstFree(ctx context.Context, zoneID *string) (*domain.Locker, error) {
	where := &whereBuilder{}
	where.eq("status", domain.LockerStatusFree)
	if zoneID != nil {
		where.eq("zone_id", *zoneID)
	}
	query := `SELECT ` + lockerColumns + ` FROM lockers` + where.sql() + ` ORDER BY number LIMIT 1 FOR UPDATE SKIP LOCKED`
	return scanLocker(conn(ctx, r.pool).QueryRow(ctx, query, where.args...))
}

func (r *lockerRepository) List(ctx context.Context, filter LockerFilter) (domain.Page[domain.Locker], error) {
	q := conn(ctx, r.pool)
	where := &whereBuilder{}
	if filter.Status != nil {
		where.eq("status", *filter.Status)
	}
	if filter.ZoneID != nil {
		where.eq("zone_id", *filter.ZoneID)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		if number, err := strconv.Atoi(term); err == nil {
			where.eq("number", number)
		} else {
			where.search(term, "note")
		}
	}

	total, err := countRows(ctx, q, "lockers", where)
	if err != nil {
		return domain.Page[domain.Locker]{}, err
	}
	query := `SELECT ` + lockerColumns + ` FROM lockers` + where.sql() + ` ORDER BY number` + pageClause(filter.PageRequest)
	rows, err := q.Query(ctx, query, where.args...)
	if err != nil {
		return domain.Page[domain.Locker]{}, err
	}
	defer rows.Close()

	var items []domain.Locker
	for rows.Next() {
		locker, err := scanLocker(rows)
		if err != nil {
			return domain.Page[domain.Locker]{}, err
		}
		items = append(items, *locker)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Locker]{}, err
	}
	return domain.NewPage(items, filter.PageRequest, total), nil
}

func scanLocker(row pgx.Row) (*domain.Locker, error) {
	var locker domain.Locker
	if err := row.Scan(
		&locker.ID,
		&locker.Number,
		&locker.Status,
		&locker.ZoneID,
		&locker.Note,
		&locker.CreatedAt,
		&locker.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &locker, nil
}
