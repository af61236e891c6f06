package domain

import (
	"strings"
	"time"
)

// User is the authenticated identity held by the credential store.
type User struct {
	ID             int64
	Username       string
	Email          string
	FirstName      string
	LastName       string
	ProfilePicture string
	Timezone       string
	Active         *bool
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// RegisterInput holds the account-creation payload.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Validate checks required registration fields.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return ErrInvalidUsername
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if in.Password == "" {
		return ErrInvalidPassword
	}
	return nil
}

// ProfilePatch holds optional profile fields for a partial update.
type ProfilePatch struct {
	Email          *string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	Timezone       *string
}
