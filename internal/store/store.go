// Package store persists athletes, their OAuth tokens, and their activity
// history in Postgres. It is the server-side replacement for the browser
// cache the site used to keep.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/cedarbaum/runstreak.app/strava"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Athlete is a registered athlete with their Strava credentials.
type Athlete struct {
	ID           int64
	FirstName    string
	LastName     string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// UpsertAthlete inserts or updates an athlete record.
func (s *Store) UpsertAthlete(ctx context.Context, a Athlete) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO athletes (id, first_name, last_name, access_token, refresh_token, token_expiry, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			updated_at = now()
	`, a.ID, a.FirstName, a.LastName, a.AccessToken, a.RefreshToken, a.TokenExpiry)
	if err != nil {
		return fmt.Errorf("upserting athlete %d: %w", a.ID, err)
	}
	return nil
}

// RegisterAthlete records an athlete and their freshly exchanged OAuth
// token after login.
func (s *Store) RegisterAthlete(ctx context.Context, athleteID int64, firstName, lastName string, tok *oauth2.Token) error {
	return s.UpsertAthlete(ctx, Athlete{
		ID:           athleteID,
		FirstName:    firstName,
		LastName:     lastName,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
	})
}

// GetAthlete retrieves an athlete by Strava id.
func (s *Store) GetAthlete(ctx context.Context, id int64) (*Athlete, error) {
	var a Athlete
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, access_token, refresh_token, token_expiry
		FROM athletes
		WHERE id = $1
	`, id).Scan(&a.ID, &a.FirstName, &a.LastName, &a.AccessToken, &a.RefreshToken, &a.TokenExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("athlete %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading athlete %d: %w", id, err)
	}
	return &a, nil
}

// SaveToken updates an athlete's OAuth tokens after a refresh.
func (s *Store) SaveToken(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE athletes
		SET access_token = $2, refresh_token = $3, token_expiry = $4, updated_at = now()
		WHERE id = $1
	`, id, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("saving token for athlete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("athlete %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertActivities writes a batch of activities for an athlete. A conflict
// on id takes the incoming record, so refetched activities win over stale
// rows.
func (s *Store) UpsertActivities(ctx context.Context, athleteID int64, acts []strava.Activity) error {
	if len(acts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range acts {
		batch.Queue(`
			INSERT INTO activities (
				id, athlete_id, start_date, distance, moving_time, elapsed_time,
				average_speed, max_speed, total_elevation_gain
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				start_date = excluded.start_date,
				distance = excluded.distance,
				moving_time = excluded.moving_time,
				elapsed_time = excluded.elapsed_time,
				average_speed = excluded.average_speed,
				max_speed = excluded.max_speed,
				total_elevation_gain = excluded.total_elevation_gain
		`, a.ID, athleteID, a.StartDate, a.Distance, a.MovingTime, a.ElapsedTime,
			a.AverageSpeed, a.MaxSpeed, a.TotalElevationGain)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range acts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting activities for athlete %d: %w", athleteID, err)
		}
	}
	return nil
}

// ListActivities returns an athlete's activities ascending by start date,
// the order the streak calculator expects.
func (s *Store) ListActivities(ctx context.Context, athleteID int64) ([]strava.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, start_date, distance, moving_time, elapsed_time,
			average_speed, max_speed, total_elevation_gain
		FROM activities
		WHERE athlete_id = $1
		ORDER BY start_date ASC
	`, athleteID)
	if err != nil {
		return nil, fmt.Errorf("listing activities for athlete %d: %w", athleteID, err)
	}
	defer rows.Close()

	var acts []strava.Activity
	for rows.Next() {
		var a strava.Activity
		if err := rows.Scan(&a.ID, &a.StartDate, &a.Distance, &a.MovingTime,
			&a.ElapsedTime, &a.AverageSpeed, &a.MaxSpeed, &a.TotalElevationGain); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

// LatestStartDate returns the most recent activity start (epoch millis)
// for an athlete, or zero when none exist. Incremental syncs fetch only
// after this instant.
func (s *Store) LatestStartDate(ctx context.Context, athleteID int64) (int64, error) {
	var latest *int64
	err := s.pool.QueryRow(ctx, `
		SELECT max(start_date) FROM activities WHERE athlete_id = $1
	`, athleteID).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("finding latest activity for athlete %d: %w", athleteID, err)
	}
	if latest == nil {
		return 0, nil
	}
	return *latest, nil
}
