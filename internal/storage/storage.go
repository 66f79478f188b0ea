package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates that a user could not be located in the backing store.
var ErrNotFound = errors.New("user not found")

// ErrUserExists indicates that the email address is already registered.
var ErrUserExists = errors.New("email already registered")

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	CreateUser(ctx context.Context, input User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	Close()
}

// NewStore selects a backing store. A database URL switches to PostgreSQL,
// otherwise the single-file SQLite database is used and created lazily.
func NewStore(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if databaseURL != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewSQLiteStore(sqlitePath)
}
