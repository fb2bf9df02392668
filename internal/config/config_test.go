package config

import (
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/runstreak_test")
	t.Setenv("STATE_SECRET", "test-secret")
	t.Setenv("STRAVA_CLIENT_ID", "client-id")
	t.Setenv("STRAVA_CLIENT_SECRET", "client-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Strava.DailyAPILimit != 1000 {
		t.Errorf("DailyAPILimit = %d, want 1000", cfg.Strava.DailyAPILimit)
	}
	if cfg.Strava.ClientID != "client-id" {
		t.Errorf("ClientID = %s", cfg.Strava.ClientID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoadRejectsBadLimit(t *testing.T) {
	setRequired(t)
	t.Setenv("STRAVA_DAILY_API_LIMIT", "-5")

	if _, err := Load(); err == nil {
		t.Error("expected error for negative daily API limit")
	}
}
