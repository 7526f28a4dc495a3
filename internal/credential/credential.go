// Package credential verifies email/password sign-ins and registers new users.
package credential

import (
	"context"
	"time"

	"github.com/example/userauth/internal/token"
)

// User is the stored credential record. The verifier reads it and, on sign-up, hands a new
// one to the store; it never mutates an existing record.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         token.Role
	Created      time.Time
	Updated      time.Time
}

// Profile holds the public fields of a user. The password hash is never part of it.
type Profile struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Role    token.Role `json:"role"`
	Created time.Time  `json:"created"`
	Updated time.Time  `json:"updated"`
}

// ProfileOf projects u onto its public fields.
func ProfileOf(u *User) *Profile {
	return &Profile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Created: u.Created,
		Updated: u.Updated,
	}
}

// NewUser is a sign-up request.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserStore is the persistence collaborator.
type UserStore interface {
	// FindByEmail returns nil, nil when no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts u when u.ID is empty (assigning ID, Created and Updated) and updates it
	// otherwise. It returns ErrDuplicateEmail when the email is already taken.
	Save(ctx context.Context, u *User) (*User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
