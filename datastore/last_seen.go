package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LastSeenKey is the slot name, kept from the extension's storage key.
const LastSeenKey = "lastFetchedCallsign"

// LastSeenRepository persists the relay's last-seen slot in a key/value table.
type LastSeenRepository struct {
	db  *sql.DB
	key string
}

func NewLastSeenRepository(db *sql.DB) *LastSeenRepository {
	return &LastSeenRepository{db: db, key: LastSeenKey}
}

// Migrate creates the backing table if needed.
func (r *LastSeenRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS last_seen (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create last_seen table: %w", err)
	}
	return nil
}

// Get returns the stored callsign and false if the slot was never written.
func (r *LastSeenRepository) Get(ctx context.Context) (string, bool, error) {
	query := `SELECT value FROM last_seen WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get last seen callsign: %w", err)
	}
	return value, true, nil
}

// Set overwrites the slot.
func (r *LastSeenRepository) Set(ctx context.Context, callsign string) error {
	query := `
		INSERT INTO last_seen (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, r.key, callsign, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert last seen callsign: %w", err)
	}
	return nil
}
