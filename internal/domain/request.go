package domain

import "time"

// RequestStatus tracks a locker request through its lifecycle.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusReserved  RequestStatus = "reserved"
	RequestStatusExpired   RequestStatus = "expired"
	RequestStatusAssigned  RequestStatus = "assigned"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// RequestStatuses lists every accepted request status.
var RequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusReserved,
	RequestStatusExpired,
	RequestStatusAssigned,
	RequestStatusCancelled,
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Request is a guardian's ask for a locker for one student.
type Request struct {
	ID               string
	UserID           string
	RequesterName    string
	RequesterAddress string
	RequesterPhone   string
	StudentName      string
	StudentClass     string
	SchoolYear       string
	PreferredZoneID  *string
	// PreferredLocker is free text: a locker id or a locker number.
	PreferredLocker string
	Status          RequestStatus
	SubmittedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
