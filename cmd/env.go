package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/enrich"
	"github.com/sells-group/profile-cli/internal/extraction"
	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/store"
	"github.com/sells-group/profile-cli/internal/textextract"
	"github.com/sells-group/profile-cli/pkg/anthropic"
	"github.com/sells-group/profile-cli/pkg/brokers"
	"github.com/sells-group/profile-cli/pkg/companies"
	"github.com/sells-group/profile-cli/pkg/geocode"
	"github.com/sells-group/profile-cli/pkg/hibp"
	"github.com/sells-group/profile-cli/pkg/social"
)

func seconds(n int) time.Duration     { return time.Duration(n) * time.Second }
func milliseconds(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// initStore opens and migrates the configured profile store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(c.Store.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newTextService builds the document-to-text service.
func newTextService(c *config.Config) *textextract.Service {
	return textextract.New(
		textextract.WithPdfToText(c.Extraction.PdfToTextPath),
		textextract.WithExtensions(c.Extraction.Extensions),
	)
}

// newExtractor wires the text service and the Anthropic client. A missing
// key leaves the AI client nil so extraction fails with no_api_key.
func newExtractor(c *config.Config, text *textextract.Service) *extraction.DocumentExtractor {
	var ai anthropic.Client
	if c.Anthropic.Key != "" {
		ai = anthropic.NewClient(c.Anthropic.Key,
			anthropic.WithBaseURL(c.Anthropic.BaseURL),
			anthropic.WithMaxRetries(c.Anthropic.MaxRetries),
			anthropic.WithTimeout(seconds(c.Anthropic.TimeoutSecs)),
		)
	}
	return extraction.NewExtractor(text, ai, extraction.Config{
		Model:     c.Anthropic.Model,
		MaxTokens: int64(c.Anthropic.MaxTokens),
		MaxChars:  c.Extraction.MaxChars,
	})
}

// newManager builds the per-subject extraction job manager.
func newManager(c *config.Config, mx *metrics.Metrics) *extraction.Manager {
	text := newTextService(c)
	return extraction.NewManager(newExtractor(c, text),
		extraction.WithSupported(text.Supported),
		extraction.WithJobTimeout(seconds(c.Extraction.JobTimeoutSecs)),
		extraction.WithMetrics(mx),
	)
}

// newBreachClient returns nil when no HIBP key is configured.
func newBreachClient(c *config.Config) hibp.Client {
	if c.HIBP.Key == "" {
		return nil
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = max(c.HIBP.MaxAttempts, 1)
	if c.HIBP.InitialBackoffMs > 0 {
		retry.InitialBackoff = milliseconds(c.HIBP.InitialBackoffMs)
	}
	return hibp.NewClient(c.HIBP.Key,
		hibp.WithBaseURL(c.HIBP.BaseURL),
		hibp.WithGate(resilience.NewGate(milliseconds(c.HIBP.MinIntervalMs), nil)),
		hibp.WithTimeout(seconds(c.HIBP.TimeoutSecs)),
		hibp.WithRetry(retry),
	)
}

// newOrchestrator wires every configured enrichment provider. Providers
// without credentials are left nil and their task group is skipped.
func newOrchestrator(c *config.Config, mx *metrics.Metrics) (*enrich.Orchestrator, error) {
	catalog, err := brokers.Load(c.Brokers.CatalogPath)
	if err != nil {
		return nil, err
	}

	clients := enrich.Clients{
		Brokers: catalog,
		Social: social.NewClient(
			social.WithGitHubToken(c.Social.GitHubToken),
			social.WithBaseURLs(c.Social.GitHubBaseURL, c.Social.RedditBaseURL),
			social.WithTimeout(seconds(c.Social.TimeoutSecs)),
		),
	}

	if c.Geocode.MapboxToken != "" || c.Geocode.GoogleKey != "" {
		clients.Geocoder = geocode.NewClient(
			geocode.WithMapboxToken(c.Geocode.MapboxToken),
			geocode.WithGoogleAPIKey(c.Geocode.GoogleKey),
			geocode.WithBaseURLs(c.Geocode.MapboxBaseURL, c.Geocode.GoogleBaseURL),
			geocode.WithRateLimit(c.Geocode.RateLimit),
			geocode.WithTimeout(seconds(c.Geocode.TimeoutSecs)),
			geocode.WithCache(c.Geocode.CacheSize,
				time.Duration(c.Geocode.CacheTTLHours)*time.Hour,
				time.Duration(c.Geocode.MissTTLMins)*time.Minute),
		)
	} else {
		zap.L().Debug("PROFILE_GEOCODE_MAPBOX_TOKEN and PROFILE_GEOCODE_GOOGLE_KEY not set, geocoding disabled")
	}

	if breaches := newBreachClient(c); breaches != nil {
		clients.Breaches = breaches
	} else {
		zap.L().Debug("PROFILE_HIBP_KEY not set, breach checks disabled")
	}

	if c.Companies.Token != "" {
		clients.Companies = companies.NewClient(c.Companies.Token, companies.WithBaseURL(c.Companies.BaseURL))
	} else {
		zap.L().Debug("PROFILE_COMPANIES_TOKEN not set, company lookups disabled")
	}

	return enrich.New(clients, enrich.WithMetrics(mx)), nil
}
