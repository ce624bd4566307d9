package dto

import (
	"time"

	"github.com/spindit/locker-service/internal/domain"
)

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPageResponse maps every item of a page with fn.
func NewPageResponse[T, R any](page domain.Page[T], fn func(*T) R) PageResponse[R] {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, fn(&page.Items[i]))
	}
	return PageResponse[R]{
		Items:      items,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
}

// ZoneResponse describes a zone.
type ZoneResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ClassTags   []string  `json:"class_tags"`
	HasMap      bool      `json:"has_map"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LockerResponse describes a locker.
type LockerResponse struct {
	ID        string              `json:"id"`
	Number    int                 `json:"number"`
	Status    domain.LockerStatus `json:"status"`
	ZoneID    *string             `json:"zone_id"`
	Note      string              `json:"note"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// RequestResponse describes a locker request.
type RequestResponse struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	RequesterName    string               `json:"requester_name"`
	RequesterAddress string               `json:"requester_address"`
	RequesterPhone   string               `json:"requester_phone"`
	StudentName      string               `json:"student_name"`
	StudentClass     string               `json:"student_class"`
	SchoolYear       string               `json:"school_year"`
	PreferredZoneID  *string              `json:"preferred_zone_id"`
	PreferredLocker  string               `json:"preferred_locker"`
	Status           domain.RequestStatus `json:"status"`
	SubmittedAt      time.Time            `json:"submitted_at"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// AssignmentResponse links a request to its locker.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	LockerID   string    `json:"locker_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// ViolationResponse reports one inconsistency found by the audit.
type ViolationResponse struct {
	Kind         domain.ViolationKind `json:"kind"`
	LockerID     string               `json:"locker_id,omitempty"`
	RequestID    string               `json:"request_id,omitempty"`
	AssignmentID string               `json:"assignment_id,omitempty"`
	Detail       string               `json:"detail"`
}

// AssignLockerRequest sets or clears the locker of a request. A null
// locker_id releases the current assignment.
type AssignLockerRequest struct {
	LockerID *string `json:"locker_id"`
}

func NewZoneResponse(z *domain.Zone) ZoneResponse {
	return ZoneResponse{
		ID:          z.ID,
		Name:        z.Name,
		Description: z.Description,
		ClassTags:   z.ClassTags,
		HasMap:      z.MapKey != "",
		CreatedAt:   z.CreatedAt,
		UpdatedAt:   z.UpdatedAt,
	}
}

func NewLockerResponse(l *domain.Locker) LockerResponse {
	return LockerResponse{
		ID:        l.ID,
		Number:    l.Number,
		Status:    l.Status,
		ZoneID:    l.ZoneID,
		Note:      l.Note,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:               r.ID,
		UserID:           r.UserID,
		RequesterName:    r.RequesterName,
		RequesterAddress: r.RequesterAddress,
		RequesterPhone:   r.RequesterPhone,
		StudentName:      r.StudentName,
		StudentClass:     r.StudentClass,
		SchoolYear:       r.SchoolYear,
		PreferredZoneID:  r.PreferredZoneID,
		PreferredLocker:  r.PreferredLocker,
		Status:           r.Status,
		SubmittedAt:      r.SubmittedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func NewAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{ID: a.ID, RequestID: a.RequestID, LockerID: a.LockerID, AssignedAt: a.AssignedAt}
}

func NewViolationResponse(v *domain.InvariantViolation) ViolationResponse {
	return ViolationResponse{
		Kind:         v.Kind,
		LockerID:     v.LockerID,
		RequestID:    v.RequestID,
		AssignmentID: v.AssignmentID,
		Detail:       v.Detail,
	}
}

// MapSlice maps every element of items with fn and never returns nil.
func MapSlice[T, R any](items []T, fn func(*T) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, fn(&items[i]))
	}
	return out
}
