package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedarbaum/runstreak.app/internal/config"
	"github.com/cedarbaum/runstreak.app/strava"
)

const testAthleteID int64 = 42

type stubStore struct {
	activities []strava.Activity
}

func (s *stubStore) ListActivities(_ context.Context, athleteID int64) ([]strava.Activity, error) {
	if athleteID != testAthleteID {
		return nil, nil
	}
	return s.activities, nil
}

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (e *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type stubBudget struct {
	allow bool
}

func (b *stubBudget) Allow(context.Context, string) (bool, error) {
	return b.allow, nil
}

type testEnv struct {
	ts     *httptest.Server
	cookie *http.Cookie
	enq    *stubEnqueuer
	budget *stubBudget
}

// fixedNow keeps streak computation deterministic.
var fixedNow = time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)

func runAt(daysAgo int, id string, distance float64) strava.Activity {
	day := fixedNow.AddDate(0, 0, -daysAgo)
	start := time.Date(day.Year(), day.Month(), day.Day(), 8, 0, 0, 0, time.UTC)
	return strava.Activity{
		ID:           id,
		StartDate:    start.UnixMilli(),
		Distance:     distance,
		MovingTime:   1800,
		AverageSpeed: 2.5,
	}
}

func newTestEnv(t *testing.T, acts []strava.Activity) *testEnv {
	t.Helper()

	sess := scs.New()
	enq := &stubEnqueuer{}
	budget := &stubBudget{allow: true}

	cfg := config.Config{
		BaseURL:     "http://localhost:8080",
		StateSecret: "test-secret",
	}
	cfg.Strava.ClientID = "cid"
	cfg.Strava.ClientSecret = "csecret"

	srv := New(ServerOptions{
		Sess:   sess,
		Store:  &stubStore{activities: acts},
		Tasks:  enq,
		Budget: budget,
		Cfg:    cfg,
		Now:    func() time.Time { return fixedNow },
		Log:    zerolog.Nop(),
	})

	ts := httptest.NewServer(sess.LoadAndSave(srv.Router))
	t.Cleanup(ts.Close)

	// Log the test athlete in by committing a session directly.
	ctx, err := sess.Load(context.Background(), "")
	require.NoError(t, err)
	sess.Put(ctx, "athlete_id", testAthleteID)
	token, _, err := sess.Commit(ctx)
	require.NoError(t, err)

	return &testEnv{
		ts:     ts,
		cookie: &http.Cookie{Name: sess.Cookie.Name, Value: token},
		enq:    enq,
		budget: budget,
	}
}

func (e *testEnv) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, nil)
	require.NoError(t, err)
	req.AddCookie(e.cookie)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/streaks", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreaksEndpoint(t *testing.T) {
	acts := []strava.Activity{
		runAt(6, "a", 5000), runAt(5, "b", 5000),
		runAt(2, "c", 5000), runAt(1, "d", 5000), runAt(0, "e", 5000),
	}
	env := newTestEnv(t, acts)

	resp := env.do(t, http.MethodGet, "/api/streaks?tz=UTC")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Streaks []struct {
			StreakLength int `json:"streakLength"`
		} `json:"streaks"`
	}
	decode(t, resp, &body)

	require.Len(t, body.Streaks, 2)
	assert.Equal(t, 3, body.Streaks[0].StreakLength)
	assert.Equal(t, 2, body.Streaks[1].StreakLength)
}

func TestStreaksRejectsBadTimezone(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/streaks?tz=Not%2FAZone")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCurrentStreakEndpoint(t *testing.T) {
	acts := []strava.Activity{
		runAt(2, "a", 5000), runAt(1, "b", 5000), runAt(0, "c", 5000),
	}
	env := newTestEnv(t, acts)

	resp := env.do(t, http.MethodGet, "/api/streaks/current?tz=UTC")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Streak *struct {
			StreakLength int `json:"streakLength"`
		} `json:"streak"`
	}
	decode(t, resp, &body)
	require.NotNil(t, body.Streak)
	assert.Equal(t, 3, body.Streak.StreakLength)
}

func TestCurrentStreakNullWhenNone(t *testing.T) {
	env := newTestEnv(t, []strava.Activity{runAt(10, "a", 5000), runAt(9, "b", 5000)})

	resp := env.do(t, http.MethodGet, "/api/streaks/current?tz=UTC")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	require.Contains(t, body, "streak")
	assert.Nil(t, body["streak"])
}

func TestTopStreaksEndpoint(t *testing.T) {
	acts := []strava.Activity{
		runAt(12, "a", 5000), runAt(11, "b", 5000), runAt(10, "c", 5000), runAt(9, "d", 5000),
		runAt(1, "e", 5000), runAt(0, "f", 5000),
	}
	env := newTestEnv(t, acts)

	resp := env.do(t, http.MethodGet, "/api/streaks/top?tz=UTC&n=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Streaks []struct {
			StreakLength int `json:"streakLength"`
		} `json:"streaks"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Streaks, 1)
	assert.Equal(t, 4, body.Streaks[0].StreakLength)
}

func TestTriggerSync(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/activities/sync")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body struct {
		SyncID string `json:"sync_id"`
	}
	decode(t, resp, &body)
	assert.NotEmpty(t, body.SyncID)
	assert.Len(t, env.enq.tasks, 1)
}

func TestTriggerSyncOverBudget(t *testing.T) {
	env := newTestEnv(t, nil)
	env.budget.allow = false

	resp := env.do(t, http.MethodPost, "/api/activities/sync")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Empty(t, env.enq.tasks)
}

func TestTimeseriesEndpoint(t *testing.T) {
	acts := []strava.Activity{
		runAt(2, "a", 3000), runAt(1, "b", 4000), runAt(0, "c", 5000),
	}
	env := newTestEnv(t, acts)

	// Find the streak window first.
	resp := env.do(t, http.MethodGet, "/api/streaks?tz=UTC")
	var listing struct {
		Streaks []struct {
			StartTime int64 `json:"startTime"`
			EndTime   int64 `json:"endTime"`
		} `json:"streaks"`
	}
	decode(t, resp, &listing)
	require.Len(t, listing.Streaks, 1)

	path := fmt.Sprintf("/api/streaks/timeseries?tz=UTC&start=%d&end=%d&stat=%s",
		listing.Streaks[0].StartTime, listing.Streaks[0].EndTime,
		url.QueryEscape("Total distance:"))
	resp = env.do(t, http.MethodGet, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Bucket string `json:"bucket"`
		Unit   string `json:"unit"`
		Points []struct {
			Label string  `json:"label"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	decode(t, resp, &body)

	assert.Equal(t, "day", body.Bucket) // short streak defaults to daily buckets
	assert.Equal(t, "mi", body.Unit)
	require.Len(t, body.Points, 3)
	assert.InDelta(t, 1.86, body.Points[0].Value, 0.005)
}

func TestTimeseriesUnknownWindow(t *testing.T) {
	env := newTestEnv(t, nil)

	path := "/api/streaks/timeseries?tz=UTC&start=1&end=2&stat=" + url.QueryEscape("Total distance:")
	resp := env.do(t, http.MethodGet, path)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStateSignatureRoundTrip(t *testing.T) {
	s := &Server{StateSecret: "secret"}

	state := s.signState("nonce", time.Now().Add(time.Minute))
	assert.True(t, s.verifyState(state))
	assert.False(t, s.verifyState(state+"x"))

	expired := s.signState("nonce", time.Now().Add(-time.Minute))
	assert.False(t, s.verifyState(expired))
}
