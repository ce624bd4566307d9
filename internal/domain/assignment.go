package domain

import "time"

// Assignment binds one request to one locker.
type Assignment struct {
	ID         string
	RequestID  string
	LockerID   string
	AssignedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ViolationKind names a broken request/locker invariant.
type ViolationKind string

const (
	ViolationReservedWithoutAssignment ViolationKind = "reserved_without_assignment"
	ViolationAssignmentToFree          ViolationKind = "assignment_to_free_locker"
	ViolationMissingLocker             ViolationKind = "assignment_missing_locker"
	ViolationMissingRequest            ViolationKind = "assignment_missing_request"
	ViolationLockerSharedByRequests    ViolationKind = "locker_shared_by_requests"
	ViolationRequestHasManyAssignments ViolationKind = "request_has_multiple_assignments"
)

// InvariantViolation describes one inconsistency between assignments and locker status.
type InvariantViolation struct {
	Kind         ViolationKind
	LockerID     string
	RequestID    string
	AssignmentID string
	Detail       string
}
