package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore persists users in a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary creates) the database file and
// ensures the users table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		phone TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CreateUser inserts a new account, failing with ErrUserExists on a
// duplicate email.
func (s *SQLiteStore) CreateUser(ctx context.Context, input User) (User, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, phone, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		input.ID, input.Name, input.Email, input.Phone, input.PasswordHash, input.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return input, nil
}

// GetUserByEmail looks up an account by its unique email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password_hash, created_at FROM users WHERE email = ?`, email))
}

// GetUserByID looks up an account by id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
