// Package hibp checks email addresses against the Have I Been Pwned breach
// API. All calls made through one Client are spaced by a shared gate.
package hibp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://haveibeenpwned.com/api/v3"
	defaultUserAgent = "profile-cli"
	defaultTimeout   = 15 * time.Second

	// Source is stamped on every record this client produces.
	Source = "HIBP"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Outcome is the normalized result of one breach check.
type Outcome struct {
	Found    bool                 `json:"found"`
	Breaches []model.BreachRecord `json:"breaches"`
	Count    int                  `json:"count"`
	model.Failure
}

// ProgressFunc is called before each email of a batch and once at the end
// with (total, total, "").
type ProgressFunc func(done, total int, email string)

// Client checks emails for breach exposure.
type Client interface {
	CheckBreaches(ctx context.Context, email string) Outcome
	CheckMultiple(ctx context.Context, emails []string, onProgress ProgressFunc) map[string]Outcome
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithGate replaces the dispatch gate.
func WithGate(g *resilience.Gate) Option {
	return func(c *httpClient) { c.gate = g }
}

// WithTimeout bounds each provider call, not counting time spent in the gate.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.timeout = d }
}

// WithRetry retries server-side failures. Every attempt passes the gate.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	gate    *resilience.Gate
	timeout time.Duration
	retry   resilience.RetryConfig
}

// NewClient creates a breach-check client. An empty apiKey is allowed; every
// check then reports no_api_key without contacting the provider.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{},
		gate:    resilience.NewGate(resilience.DefaultMinInterval, nil),
		timeout: defaultTimeout,
		retry:   resilience.RetryConfig{MaxAttempts: 1},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

type apiBreach struct {
	Name        string   `json:"Name"`
	Title       string   `json:"Title"`
	Domain      string   `json:"Domain"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
}

// statusError carries a non-success HTTP status out of a retry attempt.
type statusError struct{ status int }

func (e *statusError) Error() string { return fmt.Sprintf("hibp: status %d", e.status) }

func (c *httpClient) CheckBreaches(ctx context.Context, email string) Outcome {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return Outcome{Breaches: []model.BreachRecord{}, Failure: model.Fail(model.ErrInvalidEmail, "invalid email address")}
	}
	if c.apiKey == "" {
		return Outcome{Breaches: []model.BreachRecord{}, Failure: model.Fail(model.ErrNoAPIKey, "breach lookup API key not configured")}
	}

	log := zap.L().With(zap.String("provider", "hibp"))

	cfg := c.retry
	cfg.ShouldRetry = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return resilience.IsTransientHTTPStatus(se.status)
		}
		return resilience.IsTransient(err)
	}
	cfg.OnRetry = resilience.RetryLogger("hibp", "breachedaccount")

	breaches, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]apiBreach, error) {
		return c.fetch(ctx, email)
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.status == http.StatusNotFound {
				return Outcome{Breaches: []model.BreachRecord{}}
			}
			log.Warn("hibp: lookup failed", zap.Int("status", se.status))
			return Outcome{Breaches: []model.BreachRecord{}, Failure: model.Fail(model.CodeForStatus(se.status), se.Error())}
		}
		log.Warn("hibp: lookup failed", zap.Error(err))
		return Outcome{Breaches: []model.BreachRecord{}, Failure: model.Fail(model.ErrNetwork, err.Error())}
	}

	records := make([]model.BreachRecord, 0, len(breaches))
	for _, b := range breaches {
		records = append(records, toRecord(email, b))
	}
	return Outcome{
		Found:    len(records) > 0,
		Breaches: records,
		Count:    len(records),
	}
}

func (c *httpClient) fetch(ctx context.Context, email string) ([]apiBreach, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "hibp: wait for dispatch slot")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/breachedaccount/" + url.PathEscape(email) + "?truncateResponse=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "hibp: build request")
	}
	req.Header.Set("hibp-api-key", c.apiKey)
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "hibp: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode}
	}

	var out []apiBreach
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "hibp: decode response")
	}
	return out, nil
}

func (c *httpClient) CheckMultiple(ctx context.Context, emails []string, onProgress ProgressFunc) map[string]Outcome {
	total := len(emails)
	results := make(map[string]Outcome, total)
	for i, email := range emails {
		if onProgress != nil {
			onProgress(i, total, email)
		}
		results[email] = c.CheckBreaches(ctx, email)
	}
	if onProgress != nil {
		onProgress(total, total, "")
	}
	return results
}

var printer = message.NewPrinter(language.English)

func toRecord(email string, b apiBreach) model.BreachRecord {
	title := b.Title
	if title == "" {
		title = b.Name
	}
	name := title
	if len(b.BreachDate) >= 4 {
		name = fmt.Sprintf("%s (%s)", title, b.BreachDate[:4])
	}

	dataTypes := b.DataClasses
	if dataTypes == nil {
		dataTypes = []string{}
	}

	var notes string
	if b.PwnCount > 0 {
		notes = printer.Sprintf("~%d accounts affected", b.PwnCount)
	}

	return model.BreachRecord{
		BreachName:   name,
		Date:         b.BreachDate,
		EmailExposed: email,
		DataTypes:    dataTypes,
		Severity:     Classify(dataTypes),
		Notes:        notes,
		Source:       Source,
		HIBPName:     b.Name,
	}
}
