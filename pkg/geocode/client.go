// Package geocode resolves free-form addresses to coordinates using Mapbox
// (primary) and Google (fallback).
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/sells-group/profile-cli/internal/model"
)

// MinQueryLength is the shortest query sent to a provider.
const MinQueryLength = 5

// Cache defaults. Misses expire sooner than matches so an address a provider
// learns about later is retried.
const (
	DefaultCacheSize = 4096
	DefaultHitTTL    = 24 * time.Hour
	DefaultMissTTL   = time.Hour
)

// Client geocodes addresses.
type Client interface {
	Geocode(ctx context.Context, query string) Outcome
}

// Outcome is the normalized result of one geocode call. Found=false with no
// failure means no provider matched the query.
type Outcome struct {
	Found            bool    `json:"found"`
	Lat              float64 `json:"lat,omitempty"`
	Lng              float64 `json:"lng,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Source           string  `json:"source,omitempty"` // "mapbox" or "google"
	model.Failure
}

// FormatAddress joins the non-empty parts of an address into a one-line query.
func FormatAddress(a model.Address) string {
	parts := []string{a.Street, a.City, a.State, a.PostalCode, a.Country}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithMapboxToken enables Mapbox as the primary provider.
func WithMapboxToken(token string) Option {
	return func(g *geocoder) { g.mapboxToken = token }
}

// WithGoogleAPIKey enables Google as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) { g.googleKey = key }
}

// WithHTTPClient sets the HTTP client for both providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) { g.httpClient = hc }
}

// WithRateLimit sets requests per second across both providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each provider request.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) { g.timeout = d }
}

// WithCache bounds the in-memory result cache. Matches live for hitTTL and
// misses for missTTL. Non-positive values keep the defaults.
func WithCache(size int, hitTTL, missTTL time.Duration) Option {
	return func(g *geocoder) {
		if size > 0 {
			g.cacheSize = size
		}
		if hitTTL > 0 {
			g.hitTTL = hitTTL
		}
		if missTTL > 0 {
			g.missTTL = missTTL
		}
	}
}

// WithBaseURLs overrides the provider endpoints.
func WithBaseURLs(mapbox, google string) Option {
	return func(g *geocoder) {
		if mapbox != "" {
			g.mapboxURL = mapbox
		}
		if google != "" {
			g.googleURL = google
		}
	}
}

type geocoder struct {
	httpClient  *http.Client
	mapboxToken string
	googleKey   string
	mapboxURL   string
	googleURL   string
	limiter     *rate.Limiter
	timeout     time.Duration

	cacheSize int
	hitTTL    time.Duration
	missTTL   time.Duration
	hits      *expirable.LRU[string, Outcome]
	misses    *expirable.LRU[string, Outcome]
}

// NewClient creates a geocoding Client.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{},
		mapboxURL:  mapboxGeocodeURL,
		googleURL:  googleGeocodeURL,
		limiter:    rate.NewLimiter(10, 10),
		timeout:    10 * time.Second,
		cacheSize:  DefaultCacheSize,
		hitTTL:     DefaultHitTTL,
		missTTL:    DefaultMissTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.hits = expirable.NewLRU[string, Outcome](g.cacheSize, nil, g.hitTTL)
	g.misses = expirable.NewLRU[string, Outcome](g.cacheSize, nil, g.missTTL)
	return g
}

// Geocode tries Mapbox, then Google when Mapbox is unconfigured, misses, or
// fails. The first provider failure is reported when neither matches.
func (g *geocoder) Geocode(ctx context.Context, query string) Outcome {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return Outcome{}
	}
	if g.mapboxToken == "" && g.googleKey == "" {
		return Outcome{Failure: model.Fail(model.ErrNoAPIKey, "no geocoding provider configured")}
	}

	key := cacheKey(query)
	if out, ok := g.cached(key); ok {
		return out
	}

	var firstFailure model.Failure
	for _, p := range g.providers() {
		out := g.call(ctx, p, query)
		if out.Found {
			g.store(key, out)
			return out
		}
		if out.Failed() && !firstFailure.Failed() {
			firstFailure = out.Failure
		}
	}

	if firstFailure.Failed() {
		return Outcome{Failure: firstFailure}
	}
	miss := Outcome{}
	g.store(key, miss)
	return miss
}

type provider func(ctx context.Context, query string) Outcome

func (g *geocoder) providers() []provider {
	var ps []provider
	if g.mapboxToken != "" {
		ps = append(ps, g.geocodeMapbox)
	}
	if g.googleKey != "" {
		ps = append(ps, g.geocodeGoogle)
	}
	return ps
}

func (g *geocoder) call(ctx context.Context, p provider, query string) Outcome {
	if err := g.limiter.Wait(ctx); err != nil {
		return Outcome{Failure: model.Fail(model.ErrNetwork, err.Error())}
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return p(ctx, query)
}

func cacheKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(query)))
	return fmt.Sprintf("%x", h)
}

func (g *geocoder) cached(key string) (Outcome, bool) {
	if out, ok := g.hits.Get(key); ok {
		return out, true
	}
	return g.misses.Get(key)
}

func (g *geocoder) store(key string, out Outcome) {
	if out.Found {
		g.hits.Add(key, out)
		g.misses.Remove(key)
		return
	}
	g.misses.Add(key, out)
}

func transportFailure(provider string, err error) Outcome {
	return Outcome{Failure: model.Fail(model.ErrNetwork, fmt.Sprintf("%s: %v", provider, err))}
}

func statusFailure(provider string, status int) Outcome {
	return Outcome{Failure: model.Fail(model.CodeForStatus(status),
		fmt.Sprintf("%s returned status %d", provider, status))}
}
