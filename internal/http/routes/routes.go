// Package routes wires the JSON API: OAuth login against Strava, activity
// listing and sync triggering, and the streak/statistic endpoints consumed
// by the frontend.
package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/cedarbaum/runstreak.app/internal/config"
	appmw "github.com/cedarbaum/runstreak.app/internal/http/middleware"
	"github.com/cedarbaum/runstreak.app/internal/jobs"
	"github.com/cedarbaum/runstreak.app/settings"
	"github.com/cedarbaum/runstreak.app/strava"
	"github.com/cedarbaum/runstreak.app/streak"
)

// ActivityStore is the persistence surface the API needs.
type ActivityStore interface {
	ListActivities(ctx context.Context, athleteID int64) ([]strava.Activity, error)
}

// AthleteRegistrar records athletes and tokens after the OAuth callback.
type AthleteRegistrar interface {
	RegisterAthlete(ctx context.Context, athleteID int64, firstName, lastName string, tok *oauth2.Token) error
}

// TaskEnqueuer submits background work.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RequestBudget gates upstream Strava usage per athlete.
type RequestBudget interface {
	Allow(ctx context.Context, accountID string) (bool, error)
}

type Server struct {
	Router      *chi.Mux
	Sess        *scs.SessionManager
	Store       ActivityStore
	Registrar   AthleteRegistrar
	Tasks       TaskEnqueuer
	Budget      RequestBudget
	StravaConf  *oauth2.Config
	StateSecret string

	// Now is the evaluation clock for all streak computation; tests pin
	// it to a fixed instant.
	Now func() time.Time

	Log zerolog.Logger
}

type ServerOptions struct {
	Sess      *scs.SessionManager
	Store     ActivityStore
	Registrar AthleteRegistrar
	Tasks     TaskEnqueuer
	Budget    RequestBudget
	Cfg       config.Config
	Now       func() time.Time
	Log       zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:      r,
		Sess:        opts.Sess,
		Store:       opts.Store,
		Registrar:   opts.Registrar,
		Tasks:       opts.Tasks,
		Budget:      opts.Budget,
		StateSecret: opts.Cfg.StateSecret,
		Now:         opts.Now,
		Log:         opts.Log,
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	s.StravaConf = &oauth2.Config{
		ClientID:     opts.Cfg.Strava.ClientID,
		ClientSecret: opts.Cfg.Strava.ClientSecret,
		RedirectURL:  opts.Cfg.BaseURL + "/oauth/strava/callback",
		Scopes:       []string{"read", "activity:read_all"},
		Endpoint:     strava.Endpoint,
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/oauth/strava/start", s.handleStravaStart)
	r.Get("/oauth/strava/callback", s.handleStravaCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessionToContext)
		pr.Use(appmw.RequireAthlete)
		pr.Get("/api/activities", s.handleListActivities)
		pr.Post("/api/activities/sync", s.handleTriggerSync)
		pr.Get("/api/streaks", s.handleStreaks)
		pr.Get("/api/streaks/current", s.handleCurrentStreak)
		pr.Get("/api/streaks/top", s.handleTopStreaks)
		pr.Get("/api/streaks/timeseries", s.handleStreakTimeseries)
	})

	return s
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetInt64(r.Context(), "athlete_id"); id != 0 {
			r = r.WithContext(context.WithValue(r.Context(), appmw.AthleteIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func athleteID(r *http.Request) int64 {
	id, _ := r.Context().Value(appmw.AthleteIDKey).(int64)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// settingsFromRequest reads display preferences off the query string and
// applies defaults once.
func settingsFromRequest(r *http.Request) (settings.Settings, error) {
	set := settings.Settings{
		DistanceUnit: r.URL.Query().Get("unit"),
		Timezone:     r.URL.Query().Get("tz"),
	}
	if raw := r.URL.Query().Get("min_distance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return set, err
		}
		set.MinDistance = v
	}
	return set.Normalize()
}

func (s *Server) athleteStreaks(r *http.Request) ([]streak.Streak, settings.Settings, error) {
	set, err := settingsFromRequest(r)
	if err != nil {
		return nil, set, err
	}

	acts, err := s.Store.ListActivities(r.Context(), athleteID(r))
	if err != nil {
		return nil, set, err
	}

	streaks, err := streak.Calculate(s.Now(), set.Timezone, acts, 1, set.MinDistanceMeters())
	return streaks, set, err
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := s.Store.ListActivities(r.Context(), athleteID(r))
	if err != nil {
		s.Log.Error().Err(err).Msg("listing activities")
		s.writeError(w, http.StatusInternalServerError, "could not load activities")
		return
	}
	if acts == nil {
		acts = []strava.Activity{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"activities": acts})
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	id := athleteID(r)

	ok, err := s.Budget.Allow(r.Context(), strconv.FormatInt(id, 10))
	if err != nil {
		s.Log.Error().Err(err).Msg("checking request budget")
		s.writeError(w, http.StatusInternalServerError, "could not check request budget")
		return
	}
	if !ok {
		s.writeError(w, http.StatusTooManyRequests, "account exceeded request limit")
		return
	}

	syncID := uuid.NewString()
	task, err := jobs.NewSyncActivitiesTask(jobs.SyncActivitiesPayload{AthleteID: id, SyncID: syncID})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not build sync task")
		return
	}
	if _, err := s.Tasks.EnqueueContext(r.Context(), task); err != nil {
		s.Log.Error().Err(err).Int64("athlete", id).Msg("enqueueing sync")
		s.writeError(w, http.StatusInternalServerError, "could not schedule sync")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"sync_id": syncID})
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	streaks, _, err := s.athleteStreaks(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if streaks == nil {
		streaks = []streak.Streak{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"streaks": streaks})
}

func (s *Server) handleCurrentStreak(w http.ResponseWriter, r *http.Request) {
	streaks, set, err := s.athleteStreaks(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cur, err := streak.Current(streaks, s.Now(), set.Timezone)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// cur is nil when no streak is alive; the frontend renders "--".
	s.writeJSON(w, http.StatusOK, map[string]any{"streak": cur})
}

func (s *Server) handleTopStreaks(w http.ResponseWriter, r *http.Request) {
	n := streak.DefaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}

	streaks, _, err := s.athleteStreaks(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"streaks": streak.TopN(streaks, n)})
}

func (s *Server) handleStreakTimeseries(w http.ResponseWriter, r *http.Request) {
	start, err1 := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	end, err2 := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, http.StatusBadRequest, "start and end required (epoch millis)")
		return
	}

	statName := r.URL.Query().Get("stat")
	stat, ok := streak.StatByName(statName)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown statistic "+strconv.Quote(statName))
		return
	}

	streaks, set, err := s.athleteStreaks(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var target *streak.Streak
	for i := range streaks {
		if streaks[i].StartTime == start && streaks[i].EndTime == end {
			target = &streaks[i]
			break
		}
	}
	if target == nil {
		s.writeError(w, http.StatusNotFound, "no streak found between provided dates")
		return
	}

	g := streak.DefaultGranularity(target)
	if raw := r.URL.Query().Get("bucket"); raw != "" {
		g, err = streak.ParseGranularity(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	points, err := streak.StatTimeseries(stat, target, g, set)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"stat":   stat.Name,
		"unit":   stat.Unit(set),
		"bucket": g.String(),
		"points": points,
	})
}

func (s *Server) handleStravaStart(w http.ResponseWriter, r *http.Request) {
	state := s.signState(uuid.NewString(), time.Now().Add(30*time.Minute))
	s.Sess.Put(r.Context(), "oauth_state", state)

	authURL := s.StravaConf.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !s.verifyState(state) || state != s.Sess.GetString(r.Context(), "oauth_state") {
		s.writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	s.Sess.Remove(r.Context(), "oauth_state")

	tok, err := s.StravaConf.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.Log.Error().Err(err).Msg("strava token exchange failed")
		s.writeError(w, http.StatusBadGateway, "could not exchange token")
		return
	}

	athlete, err := s.fetchAthleteProfile(r.Context(), tok)
	if err != nil {
		s.Log.Error().Err(err).Msg("fetching athlete profile")
		s.writeError(w, http.StatusBadGateway, "could not load athlete profile")
		return
	}

	if err := s.Registrar.RegisterAthlete(r.Context(), athlete.ID, athlete.FirstName, athlete.LastName, tok); err != nil {
		s.Log.Error().Err(err).Int64("athlete", athlete.ID).Msg("registering athlete")
		s.writeError(w, http.StatusInternalServerError, "could not save athlete")
		return
	}

	s.Sess.Put(r.Context(), "athlete_id", athlete.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) fetchAthleteProfile(ctx context.Context, tok *oauth2.Token) (*strava.Athlete, error) {
	client := strava.NewClient(oauth2.StaticTokenSource(tok))
	return client.GetAthlete(ctx)
}

// signState produces nonce.expiry.mac, HMAC-signed so the callback can
// reject forged state parameters.
func (s *Server) signState(nonce string, exp time.Time) string {
	payload := nonce + "." + strconv.FormatInt(exp.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write([]byte(payload))
	return payload + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Server) verifyState(state string) bool {
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return false
	}

	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.StateSecret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(parts[2]))
}
