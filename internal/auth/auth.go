// Package auth is the authentication oracle: it turns credentials into
// a verified Identity, or nothing. The drop core consumes the Identity
// and never sees credentials.
package auth

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials reports an unknown user or wrong password. The
// two cases are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Identity is a verified caller with coarse capabilities. A nil
// *Identity means the request is anonymous.
type Identity struct {
	Subject  string
	CanRead  bool
	CanWrite bool
}

// bcryptCost balances security and login latency.
const bcryptCost = 12

// HashPassword generates a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore authenticates users against the users table.
type UserStore struct {
	db *sql.DB
}

// NewUserStore wraps an open connection pool.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Authenticate verifies the username/password pair and returns the
// resulting identity. A bcrypt compare runs even for unknown users so
// lookups and mismatches take similar time.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	var (
		hash     string
		canRead  bool
		canWrite bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT password_hash, can_read, can_write FROM users WHERE username = $1
	`, username).Scan(&hash, &canRead, &canWrite)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a compare so absent users are not detectable by timing.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$12$XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}
	return &Identity{Subject: username, CanRead: canRead, CanWrite: canWrite}, nil
}

// EnsureUser creates the user if absent, updating the stored hash and
// capabilities otherwise. Used at bootstrap for the admin account.
func (s *UserStore) EnsureUser(ctx context.Context, username, password string, canRead, canWrite bool) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, can_read, can_write)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username)
		DO UPDATE SET password_hash = EXCLUDED.password_hash,
		              can_read = EXCLUDED.can_read,
		              can_write = EXCLUDED.can_write
	`, username, hash, canRead, canWrite)
	return err
}
