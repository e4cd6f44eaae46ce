package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Users become group members by ID.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique login name, also shown in balances.
	Username string

	// DisplayName is an optional human-friendly name.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser returns a User with a fresh ID and timestamps.
func NewUser(username, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
