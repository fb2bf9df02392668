package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/cedarbaum/runstreak.app/cache"
	"github.com/cedarbaum/runstreak.app/internal/config"
	"github.com/cedarbaum/runstreak.app/internal/jobs"
	"github.com/cedarbaum/runstreak.app/internal/store"
	"github.com/cedarbaum/runstreak.app/strava"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("unable to connect to database:", err)
	}
	defer pool.Close()
	st := store.New(pool)

	fc, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}

	oauthConf := &oauth2.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		Endpoint:     strava.Endpoint,
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			"sync":    10, // higher priority
			"default": 5,  // default priority
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskSyncActivities, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.SyncActivitiesPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Printf("[asynq] bad payload: %v", err)
			return err
		}
		log.Printf("[sync] start athlete=%d sync=%s", p.AthleteID, p.SyncID)
		start := time.Now()
		err := syncAthleteRuns(ctx, st, oauthConf, fc, p.AthleteID)
		duration := time.Since(start)

		if err != nil {
			if isRetryableError(err) {
				log.Printf("[sync] retryable error athlete=%d duration=%v: %v", p.AthleteID, duration, err)
				return err // allow retry
			}
			log.Printf("[sync] permanent error athlete=%d duration=%v: %v (dropping job)", p.AthleteID, duration, err)
			return nil // don't retry permanent failures
		}
		log.Printf("[sync] done athlete=%d duration=%v", p.AthleteID, duration)
		return nil
	})

	log.Println("Worker running...")
	log.Fatal(srv.Run(mux))
}

// syncAthleteRuns fetches every run newer than the athlete's latest stored
// activity and merges the pages into Postgres. The oauth2 token source
// refreshes expired tokens on the fly; a changed token is written back so
// the next sync starts from a live credential.
func syncAthleteRuns(ctx context.Context, st *store.Store, conf *oauth2.Config, fc cache.Cache, athleteID int64) error {
	athlete, err := st.GetAthlete(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("get athlete: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  athlete.AccessToken,
		RefreshToken: athlete.RefreshToken,
		Expiry:       athlete.TokenExpiry,
	}
	ts := conf.TokenSource(ctx, tok)
	client := strava.NewClientWithCache(ts, fc)

	// Incremental fetch: only activities after the newest one already
	// stored. Strava's after parameter is Unix seconds.
	latest, err := st.LatestStartDate(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("latest start date: %w", err)
	}
	after := latest / 1000

	fetched, err := client.FetchRuns(ctx, after)
	if err != nil {
		return fmt.Errorf("fetch strava activities: %w", err)
	}

	existing, err := st.ListActivities(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("list stored activities: %w", err)
	}
	merged := strava.Merge(existing, fetched)

	if err := st.UpsertActivities(ctx, athleteID, merged); err != nil {
		return fmt.Errorf("upsert activities: %w", err)
	}

	// Persist a refreshed token if the source rotated it.
	if fresh, err := ts.Token(); err == nil && fresh.AccessToken != athlete.AccessToken {
		if err := st.SaveToken(ctx, athleteID, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			return fmt.Errorf("save refreshed token: %w", err)
		}
	}

	log.Printf("[sync] athlete=%d fetched %d runs after %d", athleteID, len(fetched), after)
	return nil
}

// isRetryableError determines if an error should trigger a job retry
func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	// Network/connectivity issues - should retry
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// Strava rate limiting - should retry later
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}

	// Temporary server errors - should retry
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}

	// Token refresh failures might be temporary
	if strings.Contains(errStr, "oauth2") {
		return true
	}

	// Everything else (auth failures, bad data, etc.) - don't retry
	return false
}
