package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate")
)

// User is a directory record. Only Firstname, Lastname and Email are public.
type User struct {
	ID           int64
	Firstname    string
	Lastname     string
	Email        string
	PasswordHash string
	Lang         string
	Country      string
	CreatedAt    time.Time
}

// UserStore is the user directory consumed by login and users.info.
type UserStore interface {
	// CreateUser persists a new user. Returns ErrDuplicate if the email is taken.
	CreateUser(ctx context.Context, u *User) (*User, error)

	// GetUserByEmail returns the user with exactly this email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Close closes the underlying database connection.
	Close() error
}
