package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEnrichItem(model.TaskGeocode, "")
		m.ObserveEnrichRun(time.Second)
		m.ExtractionStarted()
		m.ExtractionFinished(model.JobReview, "", time.Second)
		m.ExtractionRejected(model.ErrUnsupportedFileType)
		m.ObserveBreachCheck(true, "")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveEnrichItem(model.TaskGeocode, "")
	m.ObserveEnrichItem(model.TaskGeocode, model.ErrNetwork)
	m.ObserveEnrichItem(model.TaskGeocode, "")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrichItems.WithLabelValues("geocode", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichItems.WithLabelValues("geocode", "network_error")))

	m.ExtractionStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionActive))
	m.ExtractionFinished(model.JobReview, "", 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExtractionActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionJobs.WithLabelValues("review", "")))

	m.ObserveBreachCheck(true, "")
	m.ObserveBreachCheck(false, "")
	m.ObserveBreachCheck(false, model.ErrRateLimited)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreachChecks.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreachChecks.WithLabelValues("clean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreachChecks.WithLabelValues("rate_limited")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveEnrichRun(3 * time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "profile_enrichment_runs_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
