package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spindit/locker-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventAssignmentChanged    EventType = "assignment_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, requestID string, actorID *string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	UserID          string  `json:"user_id"`
	PreferredZoneID *string `json:"preferred_zone_id,omitempty"`
	PreferredLocker string  `json:"preferred_locker,omitempty"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// AssignmentChangedPayload payload. A nil NewLockerID means the assignment was removed.
type AssignmentChangedPayload struct {
	AssignmentID string  `json:"assignment_id,omitempty"`
	OldLockerID  *string `json:"old_locker_id,omitempty"`
	NewLockerID  *string `json:"new_locker_id,omitempty"`
}
