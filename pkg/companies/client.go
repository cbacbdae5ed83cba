// Package companies looks up registered companies in the OpenCorporates
// registry.
package companies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

const (
	defaultBaseURL = "https://api.opencorporates.com/v0.4"

	// Source is stamped on filings this client produces.
	Source = "opencorporates"
)

// Match is one search hit.
type Match struct {
	Name          string `json:"name"`
	Jurisdiction  string `json:"jurisdiction"`
	CompanyNumber string `json:"company_number"`
}

// SearchOutcome is the normalized result of a company search.
type SearchOutcome struct {
	Matches []Match `json:"matches"`
	model.Failure
}

// DetailsOutcome is the normalized result of a company details lookup.
type DetailsOutcome struct {
	Found  bool                  `json:"found"`
	Filing model.CorporateFiling `json:"filing"`
	model.Failure
}

// Client searches the company registry.
type Client interface {
	Search(ctx context.Context, name string) SearchOutcome
	Details(ctx context.Context, jurisdiction, companyNumber string) DetailsOutcome
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

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates an OpenCorporates client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Results struct {
		Companies []struct {
			Company companyJSON `json:"company"`
		} `json:"companies"`
	} `json:"results"`
}

type detailsResponse struct {
	Results struct {
		Company companyJSON `json:"company"`
	} `json:"results"`
}

type companyJSON struct {
	Name              string `json:"name"`
	CompanyNumber     string `json:"company_number"`
	JurisdictionCode  string `json:"jurisdiction_code"`
	CurrentStatus     string `json:"current_status"`
	IncorporationDate string `json:"incorporation_date"`
	RegisteredAddress string `json:"registered_address_in_full"`
	OpenCorporatesURL string `json:"opencorporates_url"`
}

func (c *httpClient) Search(ctx context.Context, name string) SearchOutcome {
	name = strings.TrimSpace(name)
	if c.token == "" {
		return SearchOutcome{Failure: model.Fail(model.ErrNoAPIKey, "company registry token not configured")}
	}

	params := url.Values{
		"q":         {name},
		"per_page":  {"5"},
		"api_token": {c.token},
	}
	var body searchResponse
	f := c.get(ctx, "/companies/search?"+params.Encode(), &body)
	if f.Code == notFound {
		return SearchOutcome{Matches: []Match{}}
	}
	if f.Failed() {
		return SearchOutcome{Failure: f}
	}

	matches := make([]Match, 0, len(body.Results.Companies))
	for _, item := range body.Results.Companies {
		matches = append(matches, Match{
			Name:          item.Company.Name,
			Jurisdiction:  item.Company.JurisdictionCode,
			CompanyNumber: item.Company.CompanyNumber,
		})
	}
	return SearchOutcome{Matches: matches}
}

func (c *httpClient) Details(ctx context.Context, jurisdiction, companyNumber string) DetailsOutcome {
	if c.token == "" {
		return DetailsOutcome{Failure: model.Fail(model.ErrNoAPIKey, "company registry token not configured")}
	}

	path := fmt.Sprintf("/companies/%s/%s?%s",
		url.PathEscape(jurisdiction), url.PathEscape(companyNumber),
		url.Values{"api_token": {c.token}}.Encode())

	var body detailsResponse
	f := c.get(ctx, path, &body)
	if f.Code == notFound {
		return DetailsOutcome{}
	}
	if f.Failed() {
		return DetailsOutcome{Failure: f}
	}

	co := body.Results.Company
	if co.Name == "" {
		return DetailsOutcome{}
	}
	return DetailsOutcome{
		Found: true,
		Filing: model.CorporateFiling{
			EntityName:        co.Name,
			Jurisdiction:      co.JurisdictionCode,
			CompanyNumber:     co.CompanyNumber,
			Status:            co.CurrentStatus,
			IncorporationDate: co.IncorporationDate,
			RegisteredAddress: co.RegisteredAddress,
			URL:               co.OpenCorporatesURL,
			Source:            Source,
		},
	}
}

// notFound is internal to get; it never escapes the package.
const notFound model.ErrorCode = "not_found"

func (c *httpClient) get(ctx context.Context, path string, out any) model.Failure {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return model.Fail(model.ErrNetwork, eris.Wrap(err, "companies: build request").Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Fail(model.ErrNetwork, eris.Wrap(err, "companies: request").Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.Fail(notFound, "not found")
	case resp.StatusCode != http.StatusOK:
		return model.Fail(model.CodeForStatus(resp.StatusCode),
			fmt.Sprintf("companies: status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.Fail(model.ErrNetwork, eris.Wrap(err, "companies: decode response").Error())
	}
	return model.Failure{}
}
