package domain

import "time"

// Language is the preferred correspondence language of a user.
type Language string

const (
	LanguageGerman  Language = "de"
	LanguageEnglish Language = "en"
)

// DefaultLanguage is applied when a user does not pick one.
const DefaultLanguage = LanguageGerman

// Valid reports whether the language is supported.
func (l Language) Valid() bool {
	return l == LanguageGerman || l == LanguageEnglish
}

// User is a guardian or staff account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Address      string
	Phone        string
	Language     Language
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the contact fields a user may edit on their own account.
type Profile struct {
	FullName string
	Address  string
	Phone    string
	Language Language
}

// ApplyProfile copies non-empty profile fields onto the user.
func (u *User) ApplyProfile(p Profile) {
	if p.FullName != "" {
		u.FullName = p.FullName
	}
	if p.Address != "" {
		u.Address = p.Address
	}
	if p.Phone != "" {
		u.Phone = p.Phone
	}
	if p.Language != "" {
		u.Language = p.Language
	}
}
