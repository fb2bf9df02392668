// Package strava talks to the Strava v3 API: OAuth-authenticated fetches of
// run activities with pagination, response caching with ETag revalidation,
// and merging of fetched pages into a previously cached history.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/cedarbaum/runstreak.app/cache"
)

const (
	APIBase  = "https://www.strava.com/api/v3"
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// PerPage is the page size for activity listing, the maximum Strava
	// allows.
	PerPage = 200

	// pageDelay is the courtesy pause between paginated requests.
	pageDelay = 100 * time.Millisecond
)

// Endpoint is the oauth2 endpoint for Strava.
var Endpoint = oauth2.Endpoint{
	AuthURL:  AuthURL,
	TokenURL: TokenURL,
}

// Client fetches athlete data from the Strava API.
type Client struct {
	httpClient *http.Client
	cache      cache.Cache
}

// NewClient creates a client that authenticates every request through the
// given token source (refreshing as needed).
func NewClient(ts oauth2.TokenSource) *Client {
	return &Client{httpClient: oauth2.NewClient(context.Background(), ts)}
}

// NewClientWithCache creates a client that additionally caches GET
// responses, revalidating stale entries with If-None-Match.
func NewClientWithCache(ts oauth2.TokenSource, c cache.Cache) *Client {
	cl := NewClient(ts)
	cl.cache = c
	return cl
}

// GetAthlete fetches the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &athlete, time.Hour); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// ListRuns fetches one page of the athlete's activities and keeps only
// runs, mapped onto the slim Activity model. after is a Unix-seconds lower
// bound; zero means no bound.
func (c *Client) ListRuns(ctx context.Context, after int64, page int) ([]Activity, error) {
	params := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(PerPage),
	}
	if after > 0 {
		params["after"] = strconv.FormatInt(after, 10)
	}

	var raw []apiActivity
	if err := c.getJSON(ctx, "/athlete/activities", params, &raw, 0); err != nil {
		return nil, err
	}

	runs := make([]Activity, 0, len(raw))
	for _, a := range raw {
		if a.SportType != "Run" && a.SportType != "TrailRun" {
			continue
		}
		act := a.toActivity()
		if act.StartDate == 0 {
			continue
		}
		runs = append(runs, act)
	}
	return runs, nil
}

// FetchRuns pages through /athlete/activities until an empty page, pausing
// between pages, and returns every run with start date after the given
// Unix-seconds bound.
func (c *Client) FetchRuns(ctx context.Context, after int64) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		runs, err := c.ListRuns(ctx, after, page)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(runs) == 0 {
			break
		}
		all = append(all, runs...)

		select {
		case <-time.After(pageDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return all, nil
}

// getJSON performs a GET against the API, consulting the cache first when
// one is configured. A ttl of zero skips the fresh-enough check but still
// allows ETag revalidation.
func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, out any, ttl time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, APIBase+path, nil)
	if err != nil {
		return err
	}
	if params != nil {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	var key string
	if c.cache != nil {
		key = c.cache.KeyFor(path, params)

		if ttl > 0 {
			if entry, fresh := c.cache.Read(key, ttl); fresh && len(entry.Body) > 0 {
				return json.Unmarshal(entry.Body, out)
			}
		}

		if etag := c.cache.GetETag(key); etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && key != "" {
		if entry, _ := c.cache.Read(key, 0); entry != nil {
			return json.Unmarshal(entry.Body, out)
		}
		return fmt.Errorf("GET %s -> 304 with no cached body", path)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s -> %s: %s", path, resp.Status, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if key != "" {
		entry := &cache.Entry{
			ETag: resp.Header.Get("ETag"),
			Body: json.RawMessage(body),
		}
		_ = c.cache.Write(key, entry)
	}

	return json.Unmarshal(body, out)
}
