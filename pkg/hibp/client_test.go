package hibp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func noWait() Option {
	return WithGate(resilience.NewGate(time.Nanosecond, nil))
}

var adobe = map[string]any{
	"Name":        "Adobe",
	"Title":       "Adobe",
	"Domain":      "adobe.com",
	"BreachDate":  "2013-10-04",
	"PwnCount":    152445165,
	"DataClasses": []string{"Email addresses", "Password hints", "Passwords", "Usernames"},
}

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckBreaches_Found(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("hibp-api-key"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "/breachedaccount/jane@acme.com", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("truncateResponse"))
		json.NewEncoder(w).Encode([]any{adobe}) //nolint:errcheck
	})

	c := NewClient("key-1", WithBaseURL(srv.URL), noWait())
	out := c.CheckBreaches(context.Background(), "jane@acme.com")

	require.False(t, out.Failed())
	assert.True(t, out.Found)
	assert.Equal(t, 1, out.Count)
	require.Len(t, out.Breaches, 1)

	rec := out.Breaches[0]
	assert.Equal(t, "Adobe (2013)", rec.BreachName)
	assert.Equal(t, "Adobe", rec.HIBPName)
	assert.Equal(t, "2013-10-04", rec.Date)
	assert.Equal(t, "jane@acme.com", rec.EmailExposed)
	assert.Equal(t, model.SeverityHigh, rec.Severity)
	assert.Equal(t, "HIBP", rec.Source)
	assert.Equal(t, "~152,445,165 accounts affected", rec.Notes)
}

func TestCheckBreaches_NotFound(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	out := NewClient("k", WithBaseURL(srv.URL), noWait()).CheckBreaches(context.Background(), "clean@acme.com")
	assert.False(t, out.Failed())
	assert.False(t, out.Found)
	assert.NotNil(t, out.Breaches)
	assert.Empty(t, out.Breaches)
}

func TestCheckBreaches_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   model.ErrorCode
	}{
		{http.StatusTooManyRequests, model.ErrRateLimited},
		{http.StatusUnauthorized, model.ErrNoAPIKey},
		{http.StatusForbidden, model.ErrNoAPIKey},
		{http.StatusInternalServerError, model.ErrNetwork},
		{http.StatusBadRequest, model.ErrNetwork},
	}
	for _, tt := range tests {
		srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})
		out := NewClient("k", WithBaseURL(srv.URL), noWait()).CheckBreaches(context.Background(), "a@b.co")
		assert.Equal(t, tt.want, out.Code, tt.status)
		assert.False(t, out.Found)
	}
}

func TestCheckBreaches_UndecodableBody(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>oops</html>`)) //nolint:errcheck
	})
	out := NewClient("k", WithBaseURL(srv.URL), noWait()).CheckBreaches(context.Background(), "a@b.co")
	assert.Equal(t, model.ErrNetwork, out.Code)
}

func TestCheckBreaches_PrecheckedFailuresSkipProvider(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	out := NewClient("k", WithBaseURL(srv.URL), noWait()).CheckBreaches(context.Background(), "not-an-email")
	assert.Equal(t, model.ErrInvalidEmail, out.Code)

	out = NewClient("", WithBaseURL(srv.URL), noWait()).CheckBreaches(context.Background(), "a@b.co")
	assert.Equal(t, model.ErrNoAPIKey, out.Code)

	assert.Equal(t, int32(0), calls.Load())
}

func TestCheckBreaches_TimeoutIsNetworkError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	c := NewClient("k", WithBaseURL(srv.URL), noWait(), WithTimeout(20*time.Millisecond))
	out := c.CheckBreaches(context.Background(), "a@b.co")
	assert.Equal(t, model.ErrNetwork, out.Code)
}

func TestCheckBreaches_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	c := NewClient("k", WithBaseURL(srv.URL), noWait(), WithRetry(resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}))
	out := c.CheckBreaches(context.Background(), "a@b.co")
	assert.False(t, out.Failed())
	assert.Equal(t, int32(2), calls.Load())
}

func TestCheckBreaches_RateLimitNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := NewClient("k", WithBaseURL(srv.URL), noWait(), WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}))
	out := c.CheckBreaches(context.Background(), "a@b.co")
	assert.Equal(t, model.ErrRateLimited, out.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckBreaches_DispatchesSpacedByGate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var mu sync.Mutex
	var dispatched []time.Time
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		dispatched = append(dispatched, clock.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	})

	c := NewClient("k", WithBaseURL(srv.URL), WithGate(resilience.NewGate(1500*time.Millisecond, clock)))
	for _, e := range []string{"a@b.co", "c@d.co", "e@f.co"} {
		c.CheckBreaches(context.Background(), e)
	}

	require.Len(t, dispatched, 3)
	for i := 1; i < 3; i++ {
		assert.GreaterOrEqual(t, dispatched[i].Sub(dispatched[i-1]), 1500*time.Millisecond)
	}
	assert.GreaterOrEqual(t, dispatched[2].Sub(dispatched[0]), 3*time.Second)
}

func TestCheckMultiple_ProgressAndPartialFailure(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad@") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]any{adobe}) //nolint:errcheck
	})

	type call struct {
		done, total int
		email       string
	}
	var calls []call
	c := NewClient("k", WithBaseURL(srv.URL), noWait())
	emails := []string{"jane@acme.com", "bad@acme.com", "nope"}

	results := c.CheckMultiple(context.Background(), emails, func(done, total int, email string) {
		calls = append(calls, call{done, total, email})
	})

	assert.Equal(t, []call{
		{0, 3, "jane@acme.com"},
		{1, 3, "bad@acme.com"},
		{2, 3, "nope"},
		{3, 3, ""},
	}, calls)
	require.Len(t, results, 3)
	assert.True(t, results["jane@acme.com"].Found)
	assert.Equal(t, model.ErrNetwork, results["bad@acme.com"].Code)
	assert.Equal(t, model.ErrInvalidEmail, results["nope"].Code)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail(" jane.doe+x@acme.co.uk "))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("jane@acme"))
	assert.False(t, ValidEmail("jane doe@acme.com"))
}
