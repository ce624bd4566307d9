package dto

import (
	"time"

	"github.com/spindit/locker-service/internal/domain"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	Language  domain.Language `json:"language"`
	IsStaff   bool            `json:"is_staff"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string      `json:"token"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ChildResponse is a student registered by a guardian.
type ChildResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Class     string    `json:"class"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse maps a user, leaving out the password hash.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Address:   u.Address,
		Phone:     u.Phone,
		Language:  u.Language,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(t domain.Token) AuthResponse {
	return AuthResponse{Token: t.Value, Role: t.Role, ExpiresAt: t.ExpiresAt}
}

func NewChildResponse(c *domain.Child) ChildResponse {
	return ChildResponse{ID: c.ID, FullName: c.FullName, Class: c.Class, CreatedAt: c.CreatedAt}
}
