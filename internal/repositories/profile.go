package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

// ProfileRepository stores credit balances.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves the profile of userID.
func (r *ProfileRepository) Get(userID string) (*models.Profile, error) {
	query := `
		SELECT id, email, credits, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`

	var p models.Profile
	err := r.db.QueryRow(query, userID).Scan(&p.ID, &p.Email, &p.Credits, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &p, nil
}

// Credits returns the balance of userID, or [shared.ErrUserNotFound] when no profile exists.
func (r *ProfileRepository) Credits(userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: userID cannot be empty", shared.ErrInvalidArgument)
	}

	p, err := r.Get(userID)
	if err != nil {
		return 0, err
	}
	return p.Credits, nil
}

// SetCredits replaces the balance of userID, creating the profile when missing.
func (r *ProfileRepository) SetCredits(userID string, credits int) error {
	p := &models.Profile{ID: userID, Credits: credits}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	query := `
		INSERT INTO profiles (id, credits, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET credits = excluded.credits, updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err := r.db.Exec(query, userID, credits, now, now); err != nil {
		return fmt.Errorf("failed to update user credits: %w", err)
	}
	return nil
}

// AddCredits increments the balance of userID, creating the profile with zero credits first when missing.
//
// Returns the new balance.
func (r *ProfileRepository) AddCredits(userID string, credits int) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: userID cannot be empty", shared.ErrInvalidArgument)
	}
	if credits < 0 {
		return 0, fmt.Errorf("%w: credits cannot be negative", shared.ErrInvalidArgument)
	}

	var total int
	err := withTx(r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		ensure := `INSERT INTO profiles (id, credits, created_at, updated_at) VALUES (?, 0, ?, ?) ON CONFLICT(id) DO NOTHING`
		if _, err := tx.Exec(ensure, userID, now, now); err != nil {
			return fmt.Errorf("failed to ensure user profile exists: %w", err)
		}

		if _, err := tx.Exec(`UPDATE profiles SET credits = credits + ?, updated_at = ? WHERE id = ?`, credits, now, userID); err != nil {
			return fmt.Errorf("failed to add user credits: %w", err)
		}

		return tx.QueryRow(`SELECT credits FROM profiles WHERE id = ?`, userID).Scan(&total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SetEmail records the email of userID, creating the profile when missing.
func (r *ProfileRepository) SetEmail(userID, email string) error {
	query := `
		INSERT INTO profiles (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	if _, err := r.db.Exec(query, userID, email, now, now); err != nil {
		return fmt.Errorf("failed to update profile email: %w", err)
	}
	return nil
}
