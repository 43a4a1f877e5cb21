package models

import (
	"time"

	id "virasat/pkg/domain"
)

// User is an account in the identity store. PasswordHash is empty for
// accounts created through an OAuth provider.
type User struct {
	ID            id.UserID
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	EmailVerified bool
	OAuthProvider string
	OAuthSubject  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Device captures where a session was opened from, parsed out of the
// User-Agent at sign-in. Informational only.
type Device struct {
	Browser  string
	OS       string
	Mobile   bool
	ClientIP string
}

// PasswordResetToken is a one-time credential mailed to the user.
type PasswordResetToken struct {
	Token     string
	UserID    id.UserID
	ExpiresAt time.Time
}
