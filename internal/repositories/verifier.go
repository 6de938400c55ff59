package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vibes/internal/auth"
)

// VerifierRepository implements [auth.VerifierStore] over the session_values table so that
// `vibes auth url` and `vibes auth complete` can run as separate processes.
type VerifierRepository struct {
	db    *sql.DB
	ttl   time.Duration
	clock auth.Clock
}

// NewVerifierRepository creates a new [VerifierRepository]. A ttl of zero keeps entries until deleted.
func NewVerifierRepository(db *sql.DB, ttl time.Duration, clock auth.Clock) *VerifierRepository {
	if clock == nil {
		clock = auth.SystemClock
	}
	return &VerifierRepository{db: db, ttl: ttl, clock: clock}
}

// Put inserts or overwrites the value stored under key
func (r *VerifierRepository) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, key, value, r.clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. Missing and expired entries report ok=false.
func (r *VerifierRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value, updated_at FROM session_values WHERE key = ?`

	var (
		value     string
		updatedAt time.Time
	)

	err := r.db.QueryRowContext(ctx, query, key).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s: %w", key, err)
	}

	if r.expired(updatedAt) {
		return "", false, nil
	}

	return value, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *VerifierRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Purge deletes every expired entry and returns how many were removed.
func (r *VerifierRepository) Purge(ctx context.Context) (int64, error) {
	if r.ttl <= 0 {
		return 0, nil
	}

	cutoff := r.clock.Now().UTC().Add(-r.ttl)
	result, err := r.db.ExecContext(ctx, `DELETE FROM session_values WHERE updated_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge session values: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return n, nil
}

func (r *VerifierRepository) expired(updatedAt time.Time) bool {
	if r.ttl <= 0 {
		return false
	}
	return !r.clock.Now().Before(updatedAt.Add(r.ttl))
}

var _ auth.VerifierStore = (*VerifierRepository)(nil)
