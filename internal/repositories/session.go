package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository is a key/value store for auth items. It satisfies identity.Storage.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetItem returns the value stored under key, or "" when absent.
func (r *SessionRepository) GetItem(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM auth_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read auth item: %w", err)
	}
	return value, nil
}

// SetItem stores value under key, replacing any previous value.
func (r *SessionRepository) SetItem(key, value string) error {
	query := `
		INSERT INTO auth_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write auth item: %w", err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (r *SessionRepository) RemoveItem(key string) error {
	if _, err := r.db.Exec(`DELETE FROM auth_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove auth item: %w", err)
	}
	return nil
}
