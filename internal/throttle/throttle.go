// Package throttle enforces a per-athlete daily budget of upstream Strava
// API requests, tracked in a fixed 24h window in Postgres. Account ids are
// hashed before storage.
package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const window = 24 * time.Hour

// Throttler answers whether an account may make another upstream request
// today.
type Throttler struct {
	pool  *pgxpool.Pool
	limit int
}

// New creates a throttler with the given daily request limit.
func New(pool *pgxpool.Pool, limit int) *Throttler {
	return &Throttler{pool: pool, limit: limit}
}

// Allow consumes one request from the account's daily budget. It returns
// false when the budget is exhausted; the window resets 24h after the
// first counted request.
func (t *Throttler) Allow(ctx context.Context, accountID string) (bool, error) {
	hash := hashAccount(accountID)
	now := time.Now()

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("beginning throttle tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var count int
	var expiresAt time.Time
	err = tx.QueryRow(ctx, `
		SELECT request_count, expires_at FROM request_budget
		WHERE account_hash = $1
		FOR UPDATE
	`, hash).Scan(&count, &expiresAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows) || (err == nil && expiresAt.Before(now)):
		// New window: first request of the day.
		_, err = tx.Exec(ctx, `
			INSERT INTO request_budget (account_hash, request_count, expires_at)
			VALUES ($1, 1, $2)
			ON CONFLICT (account_hash) DO UPDATE SET request_count = 1, expires_at = $2
		`, hash, now.Add(window))
		if err != nil {
			return false, fmt.Errorf("resetting request budget: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("reading request budget: %w", err)
	case count >= t.limit:
		return false, tx.Commit(ctx)
	default:
		_, err = tx.Exec(ctx, `
			UPDATE request_budget SET request_count = request_count + 1
			WHERE account_hash = $1
		`, hash)
		if err != nil {
			return false, fmt.Errorf("incrementing request budget: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing throttle tx: %w", err)
	}
	return true, nil
}

func hashAccount(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
