package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spindit/locker-service/internal/domain"
)

// ZoneRepository encapsulates zone persistence.
type ZoneRepository interface {
	Create(ctx context.Context, zone *domain.Zone) error
	Update(ctx context.Context, zone *domain.Zone) error
	GetByID(ctx context.Context, id string) (*domain.Zone, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ZoneFilter) (domain.Page[domain.Zone], error)
}

type zoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository instantiates the repository.
func NewZoneRepository(pool *pgxpool.Pool) ZoneRepository {
	return &zoneRepository{pool: pool}
}

const zoneColumns = `id, name, description, class_tags, map_key, created_at, updated_at`

func (r *zoneRepository) Create(ctx context.Context, zone *domain.Zone) error {
	const query = `
        INSERT INTO zones (name, description, class_tags, map_key)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, zone.Name, zone.Description, classTags(zone.ClassTags), zone.MapKey).
		Scan(&zone.ID, &zone.CreatedAt, &zone.UpdatedAt)
	return mapPgError(err)
}

func (r *zoneRepository) Update(ctx context.Context, zone *domain.Zone) error {
	const query = `
        UPDATE zones SET name=$1, description=$2, class_tags=$3, map_key=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, zone.Name, zone.Description, classTags(zone.ClassTags), zone.MapKey, zone.ID).
		Scan(&zone.UpdatedAt)
	return mapPgError(err)
}

func (r *zoneRepository) GetByID(ctx context.Context, id string) (*domain.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE id=$1`
	return scanZone(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *zoneRepository) Delete(ctx context.Context, id string) error {
	return expectAffected(conn(ctx, r.pool).Exec(ctx, `DELETE FROM zones WHERE id=$1`, id))
}

func (r *zoneRepository) List(ctx context.Context, filter ZoneFilter) (domain.Page[domain.Zone], error) {
	q := conn(ctx, r.pool)
	where := &whereBuilder{}
	where.search(filter.Search, "name", "description")

	total, err := countRows(ctx, q, "zones", where)
	if err != nil {
		return domain.Page[domain.Zone]{}, err
	}
	query := `SELECT ` + zoneColumns + ` FROM zones` + where.sql() + ` ORDER BY name` + pageClause(filter.PageRequest)
	rows, err := q.Query(ctx, query, where.args...)
	if err != nil {
		return domain.Page[domain.Zone]{}, err
	}
	defer rows.Close()

	var items []domain.Zone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return domain.Page[domain.Zone]{}, err
		}
		items = append(items, *zone)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Zone]{}, err
	}
	return domain.NewPage(items, filter.PageRequest, total), nil
}

// classTags keeps the NOT NULL column from receiving a nil slice.
func classTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanZone(row pgx.Row) (*domain.Zone, error) {
	var zone domain.Zone
	if err := row.Scan(
		&zone.ID,
		&zone.Name,
		&zone.Description,
		&zone.ClassTags,
		&zone.MapKey,
		&zone.CreatedAt,
		&zone.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &zone, nil
}
