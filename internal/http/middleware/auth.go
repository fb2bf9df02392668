package middleware

import "net/http"

type contextKey string

// AthleteIDKey carries the authenticated athlete's Strava id.
const AthleteIDKey contextKey = "athlete_id"

// RequireAthlete rejects requests without an authenticated athlete in
// context.
func RequireAthlete(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Context().Value(AthleteIDKey)
		if id == nil || id == int64(0) {
			http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
