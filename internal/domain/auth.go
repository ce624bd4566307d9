package domain

import "time"

// Role is derived from the user's staff flag.
type Role string

const (
	RoleGuardian Role = "GUARDIAN"
	RoleStaff    Role = "STAFF"
)

// RoleOf returns the role implied by the user's staff flag.
func RoleOf(u *User) Role {
	if u != nil && u.IsStaff {
		return RoleStaff
	}
	return RoleGuardian
}

// Token represents issued access token metadata.
type Token struct {
	Value     string
	SubjectID string
	Role      Role
	ExpiresAt time.Time
}
