// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package catalog talks to the upstream music catalog API. The pipeline
// only ever sees the Client interface; the HTTP implementation layers a
// circuit breaker, a client-side rate limiter, and bounded retries over
// plain requests so one flaky upstream call never takes a turn down.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/metrics"
	"github.com/tomtom215/dualgravity/internal/models"
)

// maxErrorBodySize caps how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize = 8 * 1024

// ErrNotFound is returned when the catalog has no entity for an ID.
var ErrNotFound = errors.New("catalog: not found")

// Client is the catalog surface the pipeline consumes. The bearer token
// is passed per call because it belongs to the requesting player's
// session, not to the process.
type Client interface {
	GetArtist(ctx context.Context, token, artistID string) (*models.ArtistProfile, error)
	GetTrack(ctx context.Context, token, trackID string) (*models.TrackDetails, error)
	GetRelatedArtists(ctx context.Context, token, artistID string) ([]models.ArtistProfile, error)
	GetTopTracks(ctx context.Context, token, artistID string) ([]models.TrackDetails, error)
	SearchArtists(ctx context.Context, token, query string, limit int) ([]models.ArtistProfile, error)
}

// Config tunes the HTTP catalog client.
type Config struct {
	// BaseURL is the catalog API root, without a trailing slash.
	BaseURL string `koanf:"base_url"`
	// Timeout bounds a single HTTP request. Default: 10s.
	Timeout time.Duration `koanf:"timeout"`
	// MaxRetries bounds retry attempts for 429/5xx responses. Default: 3.
	MaxRetries int `koanf:"max_retries"`
	// RetryBaseDelay is the initial backoff delay. Default: 500ms.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	// RateLimit is the sustained request rate per second. Default: 10.
	RateLimit float64 `koanf:"rate_limit"`
	// RateBurst is the limiter burst size. Default: 20.
	RateBurst int `koanf:"rate_burst"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		RateLimit:      10,
		RateBurst:      20,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = d.RateBurst
	}
}

// HTTPClient implements Client against the catalog REST API.
//
// Thread safety: safe for concurrent use; the limiter and breaker are
// shared across all calls.
type HTTPClient struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPClient builds the production catalog client.
func NewHTTPClient(cfg Config) *HTTPClient {
	cfg.applyDefaults()

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log := logging.With().
				Str("component", "catalog").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()
			log.Warn().Msg("circuit breaker state change")
		},
	})

	return &HTTPClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker: cb,
	}
}

// BreakerState exposes the breaker state string for metrics.
func (c *HTTPClient) BreakerState() string {
	return c.breaker.State().String()
}

// httpStatusError marks a response that may be worth retrying.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("catalog: unexpected status %d: %s", e.status, e.body)
}

func retryableStatus(err error) bool {
	var se *httpStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.status == http.StatusTooManyRequests || se.status/100 == 5
}

// get performs one rate-limited, breaker-guarded, retried GET and
// returns the response body. op labels the request in metrics.
func (c *HTTPClient) get(ctx context.Context, token, op, path string, params url.Values) ([]byte, error) {
	reqURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			b, err := c.breaker.Execute(func() ([]byte, error) {
				return c.doOnce(ctx, token, reqURL)
			})
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryBaseDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableStatus),
	)
	metrics.CatalogRequests.WithLabelValues(op, outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	return body, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (c *HTTPClient) doOnce(ctx context.Context, token, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		limited, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &httpStatusError{status: resp.StatusCode, body: string(limited)}
	}
}

// GetArtist fetches one artist profile.
func (c *HTTPClient) GetArtist(ctx context.Context, token, artistID string) (*models.ArtistProfile, error) {
	body, err := c.get(ctx, token, "get_artist", "/v1/artists/"+url.PathEscape(artistID), nil)
	if err != nil {
		return nil, fmt.Errorf("get artist %s: %w", artistID, err)
	}
	var wire wireArtist
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("get artist %s: decode: %w", artistID, err)
	}
	p := wire.toProfile()
	return &p, nil
}

// GetTrack fetches one track's details.
func (c *HTTPClient) GetTrack(ctx context.Context, token, trackID string) (*models.TrackDetails, error) {
	body, err := c.get(ctx, token, "get_track", "/v1/tracks/"+url.PathEscape(trackID), nil)
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", trackID, err)
	}
	var wire wireTrack
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("get track %s: decode: %w", trackID, err)
	}
	t := wire.toTrack()
	return &t, nil
}

// GetRelatedArtists fetches the related-artist list for an artist.
func (c *HTTPClient) GetRelatedArtists(ctx context.Context, token, artistID string) ([]models.ArtistProfile, error) {
	body, err := c.get(ctx, token, "related_artists", "/v1/artists/"+url.PathEscape(artistID)+"/related-artists", nil)
	if err != nil {
		return nil, fmt.Errorf("get related artists %s: %w", artistID, err)
	}
	var wire struct {
		Artists []wireArtist `json:"artists"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("get related artists %s: decode: %w", artistID, err)
	}
	out := make([]models.ArtistProfile, 0, len(wire.Artists))
	for _, a := range wire.Artists {
		out = append(out, a.toProfile())
	}
	return out, nil
}

// GetTopTracks fetches an artist's representative top tracks.
func (c *HTTPClient) GetTopTracks(ctx context.Context, token, artistID string) ([]models.TrackDetails, error) {
	body, err := c.get(ctx, token, "top_tracks", "/v1/artists/"+url.PathEscape(artistID)+"/top-tracks", nil)
	if err != nil {
		return nil, fmt.Errorf("get top tracks %s: %w", artistID, err)
	}
	var wire struct {
		Tracks []wireTrack `json:"tracks"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("get top tracks %s: decode: %w", artistID, err)
	}
	out := make([]models.TrackDetails, 0, len(wire.Tracks))
	for _, t := range wire.Tracks {
		out = append(out, t.toTrack())
	}
	return out, nil
}

// SearchArtists searches the catalog by artist name.
func (c *HTTPClient) SearchArtists(ctx context.Context, token, query string, limit int) ([]models.ArtistProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, token, "search_artists", "/v1/search", params)
	if err != nil {
		return nil, fmt.Errorf("search artists %q: %w", query, err)
	}
	var wire struct {
		Artists struct {
			Items []wireArtist `json:"items"`
		} `json:"artists"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("search artists %q: decode: %w", query, err)
	}
	out := make([]models.ArtistProfile, 0, len(wire.Artists.Items))
	for _, a := range wire.Artists.Items {
		out = append(out, a.toProfile())
	}
	return out, nil
}
