// Package cache stores Strava API responses with TTL expiry and ETag
// support, so repeated hydrations revalidate instead of refetching.
package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached API response.
type Entry struct {
	ETag      string          `json:"etag,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// Cache is implemented by response stores usable by the Strava client.
type Cache interface {
	// Read retrieves an entry by key. The boolean reports whether the
	// entry exists and is younger than maxAge; a maxAge of zero returns
	// any entry regardless of age.
	Read(key string, maxAge time.Duration) (*Entry, bool)

	// Write stores an entry under key, stamping FetchedAt.
	Write(key string, entry *Entry) error

	// GetETag returns the ETag stored for key, or "" if none.
	GetETag(key string) string

	// KeyFor derives a stable key from a request path and its parameters.
	KeyFor(path string, params map[string]string) string
}
