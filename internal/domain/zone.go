package domain

import "time"

// Zone groups lockers by location.
type Zone struct {
	ID          string
	Name        string
	Description string
	// ClassTags lists the school classes the zone is meant for, e.g. "7th".
	ClassTags []string
	// MapKey is the blob storage key of the zone's floor plan image, if any.
	MapKey    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
