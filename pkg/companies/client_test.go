package companies

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func newTestServer(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("tok", WithBaseURL(srv.URL))
}

func TestSearch(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/search", r.URL.Path)
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("q"))
		assert.Equal(t, "tok", r.URL.Query().Get("api_token"))
		_, _ = io.WriteString(w, `{"results": {"companies": [
			{"company": {"name": "ACME CORP", "company_number": "123", "jurisdiction_code": "us_de"}},
			{"company": {"name": "ACME CORP LTD", "company_number": "456", "jurisdiction_code": "gb"}}
		]}}`)
	})

	out := c.Search(context.Background(), " Acme Corp ")
	require.False(t, out.Failed())
	require.Len(t, out.Matches, 2)
	assert.Equal(t, Match{Name: "ACME CORP", Jurisdiction: "us_de", CompanyNumber: "123"}, out.Matches[0])
}

func TestDetails(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/us_de/123", r.URL.Path)
		_, _ = io.WriteString(w, `{"results": {"company": {
			"name": "ACME CORP", "company_number": "123", "jurisdiction_code": "us_de",
			"current_status": "Active", "incorporation_date": "2001-02-03",
			"registered_address_in_full": "1 Main St, Dover, DE",
			"opencorporates_url": "https://opencorporates.com/companies/us_de/123"
		}}}`)
	})

	out := c.Details(context.Background(), "us_de", "123")
	require.False(t, out.Failed())
	assert.True(t, out.Found)
	assert.Equal(t, "ACME CORP", out.Filing.EntityName)
	assert.Equal(t, "Active", out.Filing.Status)
	assert.Equal(t, "2001-02-03", out.Filing.IncorporationDate)
	assert.Equal(t, Source, out.Filing.Source)
}

func TestDetails_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	out := c.Details(context.Background(), "us_de", "999")
	assert.False(t, out.Found)
	assert.False(t, out.Failed())
}

func TestSearch_Failures(t *testing.T) {
	out := NewClient("").Search(context.Background(), "Acme")
	assert.Equal(t, model.ErrNoAPIKey, out.Code)

	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.Equal(t, model.ErrNoAPIKey, c.Search(context.Background(), "Acme").Code)

	c = newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `garbage`)
	})
	assert.Equal(t, model.ErrNetwork, c.Search(context.Background(), "Acme").Code)
}
