// Package directory is a SQLite-backed user directory. It persists verified
// identity profiles written by the identity wizard and maps payment handles
// to addresses, which makes it double as the name-resolution collaborator
// for the intent classifier.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDirectoryUnavailable indicates the backing database failed.
var ErrDirectoryUnavailable = errors.New("directory unavailable")

// Identity verification levels.
const (
	// LevelBasic is granted for a name-only verification.
	LevelBasic = 1
	// LevelFull is granted when an ID number was provided.
	LevelFull = 2
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	id_number  TEXT NOT NULL DEFAULT '',
	level      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS handles (
	handle  TEXT PRIMARY KEY,
	address TEXT NOT NULL
);
`

// Profile is a stored identity record.
type Profile struct {
	UserID    string
	FirstName string
	LastName  string
	IDNumber  string
	Level     int
}

// Store wraps the SQLite database. Safe for concurrent use; database/sql
// pools connections underneath.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the directory database at path. Use ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// VerifyIdentity persists the identity profile and returns the granted
// level: full when an ID number was supplied, basic otherwise. Re-verifying
// overwrites the previous profile.
func (s *Store) VerifyIdentity(ctx context.Context, userID, firstName, lastName, idNumber string) (int, error) {
	level := LevelBasic
	if idNumber != "" {
		level = LevelFull
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, first_name, last_name, id_number, level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			id_number  = excluded.id_number,
			level      = excluded.level`,
		userID, firstName, lastName, idNumber, level)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return level, nil
}

// Profile returns the stored identity for a user, or nil when absent.
func (s *Store) Profile(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, id_number, level
		FROM profiles WHERE user_id = ?`, userID)

	var p Profile
	if err := row.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.IDNumber, &p.Level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return &p, nil
}

// RegisterHandle binds a payment handle to an address, replacing any
// previous binding.
func (s *Store) RegisterHandle(ctx context.Context, handle, address string) error {
	handle = normalizeHandle(handle)
	if handle == "" || address == "" {
		return errors.New("handle and address required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handles (handle, address) VALUES (?, ?)
		ON CONFLICT(handle) DO UPDATE SET address = excluded.address`,
		handle, address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return nil
}

// Resolve implements the name-resolution collaborator: it maps a handle to
// its address. Unknown handles return valid=false without an error.
func (s *Store) Resolve(ctx context.Context, name string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT address FROM handles WHERE handle = ?`, normalizeHandle(name))

	var address string
	if err := row.Scan(&address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return address, true, nil
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
