package types

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents an account in the system.
// Accounts are identified by email address; there is no separate username.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the normalized, unique login address of the user.
	Email string `json:"email" db:"email"`

	// Name is the user's optional display name.
	Name string `json:"name" db:"name"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsActive reports whether the account may authenticate.
	IsActive bool `json:"-" db:"is_active"`

	// IsStaff marks accounts allowed into operator tooling.
	IsStaff bool `json:"-" db:"is_staff"`

	// IsSuperuser marks accounts that bypass every permission check.
	IsSuperuser bool `json:"-" db:"is_superuser"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// CheckPassword reports whether plain matches the stored password hash.
func (u User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// String returns the email address of the user.
func (u User) String() string {
	return u.Email
}
