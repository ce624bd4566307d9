package domain

import "time"

// LockerStatus is the occupancy state of a locker.
type LockerStatus string

const (
	LockerStatusFree        LockerStatus = "free"
	LockerStatusReserved    LockerStatus = "reserved"
	LockerStatusOccupied    LockerStatus = "occupied"
	LockerStatusMaintenance LockerStatus = "maintenance"
)

// LockerStatuses lists every accepted locker status.
var LockerStatuses = []LockerStatus{
	LockerStatusFree,
	LockerStatusReserved,
	LockerStatusOccupied,
	LockerStatusMaintenance,
}

// Valid reports whether s is a known locker status.
func (s LockerStatus) Valid() bool {
	for _, known := range LockerStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Locked reports whether the status is set by staff outside the assignment flow.
func (s LockerStatus) Locked() bool {
	return s == LockerStatusOccupied || s == LockerStatusMaintenance
}

// Locker is a physical locker unit.
type Locker struct {
	ID        string
	Number    int
	Status    LockerStatus
	ZoneID    *string
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
