package domain

import "time"

// Child is a student registered by a guardian.
type Child struct {
	ID        string
	ParentID  string
	FullName  string
	Class     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
