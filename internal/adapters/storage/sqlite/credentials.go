package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Session keys stored in the kv table.
const (
	KeyToken = "trackit_token"
	KeyUser  = "trackit_user"
)

// CredentialStore persists the session token and user profile in sqlite.
type CredentialStore struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	clears int
}

// Open opens the credential database at path, creating parent dirs as needed.
func Open(path string) (*CredentialStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newStore(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*CredentialStore, error) {
	dsn := fmt.Sprintf("file:trackit-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newStore(db)
}

func newStore(db *sql.DB) (*CredentialStore, error) {
	// In-memory databases live only as long as their connection.
	db.SetMaxOpenConns(1)
	s := &CredentialStore{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}

// migrate creates the kv table.
func (s *CredentialStore) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS session_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Get returns the stored session. ok is false when no token is stored.
func (s *CredentialStore) Get(ctx context.Context) (app.Credentials, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_kv WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return app.Credentials{}, false, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var token, rawUser string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return app.Credentials{}, false, fmt.Errorf("scan session: %w", err)
		}
		switch key {
		case KeyToken:
			token = value
		case KeyUser:
			rawUser = value
		}
	}
	if err := rows.Err(); err != nil {
		return app.Credentials{}, false, fmt.Errorf("read session: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return app.Credentials{}, false, nil
	}

	creds := app.Credentials{Token: token}
	if rawUser != "" {
		user, err := app.UserFromJSON([]byte(rawUser))
		if err != nil {
			// Corrupt profile rows are ignored; the token still counts.
			return creds, true, nil
		}
		creds.User = user
	}
	return creds, true, nil
}

// Set stores token and user together.
func (s *CredentialStore) Set(ctx context.Context, token string, user domain.User) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is required")
	}
	rawUser, err := app.UserToJSON(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := ts(s.now())
	for _, kv := range [][2]string{{KeyToken, token}, {KeyUser, string(rawUser)}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_kv(key, value, updated_at) VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, kv[0], kv[1], now); err != nil {
			return fmt.Errorf("write %s: %w", kv[0], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Clear removes both session rows.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key IN (?, ?)`, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return nil
}

// Clears reports how many times Clear succeeded on this handle.
func (s *CredentialStore) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// UpdatedAt returns when the token row was last written.
func (s *CredentialStore) UpdatedAt(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM session_kv WHERE key = ?`, KeyToken).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read session timestamp: %w", err)
	}
	return parseTS(raw), true, nil
}

// ts formats t for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses a stored timestamp.
func parseTS(v string) time.Time {
	out, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return out.UTC()
}
