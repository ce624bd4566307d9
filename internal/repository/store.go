package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store groups the collection repositories behind one driver.
type Store struct {
	Users       UserRepository
	Zones       ZoneRepository
	Lockers     LockerRepository
	Requests    RequestRepository
	Assignments AssignmentRepository
	Children    ChildRepository
	Tx          Transactor
}

// NewPostgresStore wires every repository to the same pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:       NewUserRepository(pool),
		Zones:       NewZoneRepository(pool),
		Lockers:     NewLockerRepository(pool),
		Requests:    NewRequestRepository(pool),
		Assignments: NewAssignmentRepository(pool),
		Children:    NewChildRepository(pool),
		Tx:          NewTransactor(pool),
	}
}
