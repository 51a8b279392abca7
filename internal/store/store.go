// Package store persists Spotify credentials in a local SQLite key-value table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Keys under which credentials are stored. They are always cleared together.
const (
	KeyAccessToken  = "spotify_access_token"
	KeyTokenExpiry  = "spotify_token_expiry"
	KeyRefreshToken = "spotify_refresh_token"
	KeyCodeVerifier = "spotify_code_verifier"
)

// Credentials is the persisted copy of a session
type Credentials struct {
	AccessToken  string
	ExpiresAt    time.Time // zero if the expiry key is missing or unparseable
	RefreshToken string
}

// Valid reports whether the credentials hold a token that has not expired at now
func (c *Credentials) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && !c.ExpiresAt.IsZero() && now.Before(c.ExpiresAt)
}

// TokenStore is a durable key-value store for the access token and its companions
type TokenStore struct {
	db *sql.DB
}

// Open opens (or creates) the token store at dbPath.
// ":memory:" gives a throwaway store for tests.
func Open(dbPath string) (*TokenStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &TokenStore{db: db}, nil
}

// Close closes the database connection
func (s *TokenStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save persists the access token and its absolute expiry in one transaction
func (s *TokenStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := set(ctx, tx, KeyAccessToken, token); err != nil {
		return err
	}
	if err := set(ctx, tx, KeyTokenExpiry, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load returns the stored credentials, or nil if no access token is stored
func (s *TokenStore) Load(ctx context.Context) (*Credentials, error) {
	token, ok, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	creds := &Credentials{AccessToken: token}

	expiry, ok, err := s.get(ctx, KeyTokenExpiry)
	if err != nil {
		return nil, err
	}
	if ok {
		// A corrupt expiry leaves ExpiresAt zero, which reads as expired
		if ms, err := strconv.ParseInt(expiry, 10, 64); err == nil {
			creds.ExpiresAt = time.UnixMilli(ms)
		}
	}

	refresh, _, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	creds.RefreshToken = refresh

	return creds, nil
}

// Clear removes every credential key, including any pending PKCE verifier
func (s *TokenStore) Clear(ctx context.Context) error {
	query := `DELETE FROM kv WHERE key IN (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		KeyAccessToken,
		KeyTokenExpiry,
		KeyRefreshToken,
		KeyCodeVerifier,
	); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	return nil
}

// SaveRefreshToken stores the refresh token returned by a code exchange
func (s *TokenStore) SaveRefreshToken(ctx context.Context, token string) error {
	return set(ctx, s.db, KeyRefreshToken, token)
}

// SaveCodeVerifier stores the PKCE verifier between redirect-out and redirect-back
func (s *TokenStore) SaveCodeVerifier(ctx context.Context, verifier string) error {
	return set(ctx, s.db, KeyCodeVerifier, verifier)
}

// CodeVerifier returns the pending PKCE verifier, or "" if none is stored
func (s *TokenStore) CodeVerifier(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, KeyCodeVerifier)
	return v, err
}

// DeleteCodeVerifier removes the pending PKCE verifier
func (s *TokenStore) DeleteCodeVerifier(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, KeyCodeVerifier); err != nil {
		return fmt.Errorf("failed to delete code verifier: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func set(ctx context.Context, e execer, key, value string) error {
	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := e.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *TokenStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}
