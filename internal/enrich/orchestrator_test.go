package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/pkg/brokers"
	"github.com/sells-group/profile-cli/pkg/companies"
	"github.com/sells-group/profile-cli/pkg/geocode"
	"github.com/sells-group/profile-cli/pkg/hibp"
	"github.com/sells-group/profile-cli/pkg/social"
)

type mockGeocoder struct{ mock.Mock }

func (m *mockGeocoder) Geocode(ctx context.Context, query string) geocode.Outcome {
	args := m.Called(ctx, query)
	return args.Get(0).(geocode.Outcome)
}

type mockBreaches struct{ mock.Mock }

func (m *mockBreaches) CheckBreaches(ctx context.Context, email string) hibp.Outcome {
	args := m.Called(ctx, email)
	return args.Get(0).(hibp.Outcome)
}

func (m *mockBreaches) CheckMultiple(ctx context.Context, emails []string, onProgress hibp.ProgressFunc) map[string]hibp.Outcome {
	args := m.Called(ctx, emails, onProgress)
	return args.Get(0).(map[string]hibp.Outcome)
}

type mockSocial struct{ mock.Mock }

func (m *mockSocial) Automatable(platform string) bool {
	return platform == social.GitHub || platform == social.Reddit
}

func (m *mockSocial) Verify(ctx context.Context, platform, handle string) social.Verification {
	args := m.Called(ctx, platform, handle)
	return args.Get(0).(social.Verification)
}

type mockCompanies struct{ mock.Mock }

func (m *mockCompanies) Search(ctx context.Context, name string) companies.SearchOutcome {
	args := m.Called(ctx, name)
	return args.Get(0).(companies.SearchOutcome)
}

func (m *mockCompanies) Details(ctx context.Context, jurisdiction, number string) companies.DetailsOutcome {
	args := m.Called(ctx, jurisdiction, number)
	return args.Get(0).(companies.DetailsOutcome)
}

// holder commits updates the way a session does.
type holder struct {
	mu sync.Mutex
	p  model.Profile
}

func newHolder(p model.Profile) *holder { return &holder{p: p} }

func (h *holder) apply(fn func(model.Profile) model.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.p = fn(h.p)
}

func (h *holder) current() model.Profile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.p
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func found(lat, lng float64) geocode.Outcome {
	return geocode.Outcome{Found: true, Lat: lat, Lng: lng, Confidence: 0.9, FormattedAddress: "formatted", Source: "mapbox"}
}

func TestRunAll_SingleAddressGeocoded(t *testing.T) {
	p := profile.Default()
	p.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}
	h := newHolder(p)

	geo := new(mockGeocoder)
	geo.On("Geocode", mock.Anything, "1 Elm St, Springfield").Return(found(39.8, -89.6)).Once()

	o := New(Clients{Geocoder: geo}, WithClock(clock))
	res := o.RunAll(context.Background(), h.current(), h.apply)

	geo.AssertNumberOfCalls(t, "Geocode", 1)
	assert.Equal(t, 1, res.Geocoded)
	assert.Equal(t, 0, res.Errors)
	assert.Contains(t, res.Summary, "1 address geocoded")

	addr := h.current().Locations.Addresses[0]
	require.NotNil(t, addr.Coordinates)
	assert.Equal(t, model.Coordinates{Lat: 39.8, Lng: -89.6}, *addr.Coordinates)
	require.NotNil(t, addr.GeocodeConfidence)
	assert.InDelta(t, 0.9, *addr.GeocodeConfidence, 1e-9)
	assert.Equal(t, "formatted", addr.FormattedAddress)
	assert.Nil(t, p.Locations.Addresses[0].Coordinates, "snapshot not mutated")
}

func TestRunAll_PartialFailure(t *testing.T) {
	p := profile.Default()
	p.Identity.FullName = "Jane Q Doe"
	p.Professional.CurrentOrganization = "Acme Corp"
	p.Locations.Addresses = []model.Address{
		{Street: "1 Elm St", City: "Springfield", State: "IL"},
		{Street: "2 Oak Ave", City: "Shelbyville"},
		{Street: "3 Pine Rd", City: "Capital City"},
		{City: "Nowhere"},
	}
	p.Contact.Emails = []model.Email{{Address: "jane@acme.com"}}
	p.Digital.SocialAccounts = []model.SocialAccount{
		{Platform: "GitHub", URL: "https://github.com/janedoe"},
		{Platform: "instagram", Handle: "jane"},
	}
	h := newHolder(p)

	geo := new(mockGeocoder)
	geo.On("Geocode", mock.Anything, "1 Elm St, Springfield, IL").Return(found(1, 1))
	geo.On("Geocode", mock.Anything, "2 Oak Ave, Shelbyville").Panic("provider exploded")
	geo.On("Geocode", mock.Anything, "3 Pine Rd, Capital City").Return(found(3, 3))

	br := new(mockBreaches)
	br.On("CheckBreaches", mock.Anything, "jane@acme.com").Return(hibp.Outcome{})

	soc := new(mockSocial)
	followers := 42
	soc.On("Verify", mock.Anything, social.GitHub, "janedoe").Return(social.Verification{
		Exists: true, Visibility: "public", Followers: &followers,
	})

	co := new(mockCompanies)
	co.On("Search", mock.Anything, "Acme Corp").Return(companies.SearchOutcome{
		Matches: []companies.Match{{Name: "ACME CORP", Jurisdiction: "us_de", CompanyNumber: "123"}},
	})
	co.On("Details", mock.Anything, "us_de", "123").Return(companies.DetailsOutcome{
		Found:  true,
		Filing: model.CorporateFiling{EntityName: "ACME CORP", Jurisdiction: "us_de", CompanyNumber: "123"},
	})

	mx := metrics.New()
	o := New(Clients{
		Geocoder:  geo,
		Breaches:  br,
		Social:    soc,
		Companies: co,
		Brokers:   brokers.Default(),
	}, WithClock(clock), WithMetrics(mx))
	res := o.RunAll(context.Background(), h.current(), h.apply)

	assert.Equal(t, 2, res.Geocoded)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, model.TaskGeocode, res.Failures[0].Task)
	assert.Equal(t, model.ErrProvider, res.Failures[0].Code)

	assert.Equal(t, 1, res.Breaches)
	assert.Equal(t, 1, res.Socials)
	assert.True(t, res.Company)
	assert.Equal(t, len(brokers.Default().Brokers), res.Brokers)
	assert.Contains(t, res.Summary, "2 addresses geocoded")
	assert.Contains(t, res.Summary, "1 failed")

	cur := h.current()
	assert.NotNil(t, cur.Locations.Addresses[0].Coordinates)
	assert.Nil(t, cur.Locations.Addresses[1].Coordinates)
	assert.NotNil(t, cur.Locations.Addresses[2].Coordinates)

	gh := cur.Digital.SocialAccounts[0]
	assert.True(t, gh.Verified)
	assert.Equal(t, "2026-03-14", gh.VerifiedDate)
	assert.Equal(t, "public", gh.Visibility)
	require.NotNil(t, gh.Followers)
	assert.Equal(t, 42, *gh.Followers)
	assert.False(t, cur.Digital.SocialAccounts[1].Verified)

	require.Len(t, cur.PublicRecords.CorporateFilings, 1)
	assert.Equal(t, companies.Source, cur.PublicRecords.CorporateFilings[0].Source)

	for _, l := range cur.Digital.BrokerListings {
		assert.Equal(t, model.BrokerPendingCheck, l.Status)
		assert.Equal(t, brokers.Source, l.Source)
	}
}

func TestRunAll_SkipsCheckedEmails(t *testing.T) {
	p := profile.Default()
	p.Contact.Emails = []model.Email{
		{Address: "a@co.com"},
		{Address: "b@co.com", Enrichment: &model.EmailEnrichment{Status: model.EmailStatusChecked}},
	}
	p.Breaches.Records = []model.BreachRecord{{BreachName: "Adobe", EmailExposed: "a@co.com"}}
	h := newHolder(p)

	br := new(mockBreaches)
	br.On("CheckBreaches", mock.Anything, "a@co.com").Return(hibp.Outcome{
		Found: true,
		Count: 2,
		Breaches: []model.BreachRecord{
			{BreachName: "Adobe (2013)", EmailExposed: "a@co.com", Source: hibp.Source},
			{BreachName: "LinkedIn (2012)", EmailExposed: "a@co.com", Source: hibp.Source},
		},
	}).Once()

	o := New(Clients{Breaches: br}, WithClock(clock))
	res := o.RunAll(context.Background(), h.current(), h.apply)

	br.AssertNumberOfCalls(t, "CheckBreaches", 1)
	br.AssertNotCalled(t, "CheckBreaches", mock.Anything, "b@co.com")
	assert.Equal(t, 1, res.Breaches)
	assert.Equal(t, "1 email checked", res.Summary)

	cur := h.current()
	require.NotNil(t, cur.Contact.Emails[0].Enrichment)
	assert.Equal(t, model.EmailEnrichment{
		LastChecked:   "2026-03-14T09:30:00Z",
		BreachesFound: 2,
		Status:        model.EmailStatusChecked,
	}, *cur.Contact.Emails[0].Enrichment)

	require.Len(t, cur.Breaches.Records, 2, "duplicate Adobe record skipped")
	assert.Equal(t, "LinkedIn (2012)", cur.Breaches.Records[1].BreachName)
}

func TestRunAll_NoAPIKeyStopsGroup(t *testing.T) {
	p := profile.Default()
	p.Contact.Emails = []model.Email{{Address: "a@co.com"}, {Address: "b@co.com"}}
	p.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}
	h := newHolder(p)

	br := new(mockBreaches)
	br.On("CheckBreaches", mock.Anything, "a@co.com").Return(hibp.Outcome{
		Failure: model.Fail(model.ErrNoAPIKey, "missing key"),
	})
	geo := new(mockGeocoder)
	geo.On("Geocode", mock.Anything, mock.Anything).Return(found(1, 2))

	o := New(Clients{Geocoder: geo, Breaches: br})
	res := o.RunAll(context.Background(), h.current(), h.apply)

	br.AssertNumberOfCalls(t, "CheckBreaches", 1)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Geocoded)
	assert.Equal(t, "1 address geocoded · 1 failed", res.Summary)
	assert.Nil(t, h.current().Contact.Emails[0].Enrichment)
}

func TestRunAll_RateLimitedSocialDoesNotStopGroup(t *testing.T) {
	p := profile.Default()
	p.Digital.SocialAccounts = []model.SocialAccount{
		{Platform: "github", Handle: "octocat"},
		{Platform: "reddit", Handle: "spez"},
	}
	h := newHolder(p)

	soc := new(mockSocial)
	soc.On("Verify", mock.Anything, social.GitHub, "octocat").
		Return(social.Verification{Failure: model.Fail(model.ErrRateLimited, "github rate limit exhausted")}).Once()
	soc.On("Verify", mock.Anything, social.Reddit, "spez").
		Return(social.Verification{Exists: true, Visibility: "public"}).Once()

	res := New(Clients{Social: soc}, WithClock(clock)).RunAll(context.Background(), h.current(), h.apply)

	soc.AssertExpectations(t)
	assert.Equal(t, 1, res.Socials)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, model.ErrRateLimited, res.Failures[0].Code)
	assert.True(t, h.current().Digital.SocialAccounts[1].Verified)
}

func TestRunAll_NothingToDo(t *testing.T) {
	h := newHolder(profile.Default())
	res := New(Clients{}).RunAll(context.Background(), h.current(), h.apply)
	assert.Equal(t, NothingAvailable, res.Summary)
	assert.Zero(t, res.Errors)
}

func TestRunAll_ProviderMissIsNotAnError(t *testing.T) {
	p := profile.Default()
	p.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}
	p.Digital.SocialAccounts = []model.SocialAccount{{Platform: "reddit", Handle: "ghost"}}
	h := newHolder(p)

	geo := new(mockGeocoder)
	geo.On("Geocode", mock.Anything, mock.Anything).Return(geocode.Outcome{})
	soc := new(mockSocial)
	soc.On("Verify", mock.Anything, social.Reddit, "ghost").Return(social.Verification{Exists: false})

	res := New(Clients{Geocoder: geo, Social: soc}).RunAll(context.Background(), h.current(), h.apply)
	assert.Zero(t, res.Geocoded)
	assert.Zero(t, res.Socials)
	assert.Zero(t, res.Errors)
	assert.Equal(t, NothingAvailable, res.Summary)
}

func TestRunAll_CompanyGuards(t *testing.T) {
	t.Run("short organization", func(t *testing.T) {
		p := profile.Default()
		p.Professional.CurrentOrganization = "AB"
		co := new(mockCompanies)
		h := newHolder(p)
		res := New(Clients{Companies: co}).RunAll(context.Background(), h.current(), h.apply)
		co.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		assert.False(t, res.Company)
	})

	t.Run("prior enrichment filing", func(t *testing.T) {
		p := profile.Default()
		p.Professional.CurrentOrganization = "Acme Corp"
		p.PublicRecords.CorporateFilings = []model.CorporateFiling{{EntityName: "Other", Source: companies.Source}}
		co := new(mockCompanies)
		h := newHolder(p)
		New(Clients{Companies: co}).RunAll(context.Background(), h.current(), h.apply)
		co.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("duplicate entity name", func(t *testing.T) {
		p := profile.Default()
		p.Professional.CurrentOrganization = "Acme Corp"
		p.PublicRecords.CorporateFilings = []model.CorporateFiling{{EntityName: "acme corp"}}
		co := new(mockCompanies)
		co.On("Search", mock.Anything, "Acme Corp").Return(companies.SearchOutcome{
			Matches: []companies.Match{{Name: "ACME CORP", Jurisdiction: "us_de", CompanyNumber: "1"}},
		})
		co.On("Details", mock.Anything, "us_de", "1").Return(companies.DetailsOutcome{
			Found: true, Filing: model.CorporateFiling{EntityName: "ACME CORP"},
		})
		h := newHolder(p)
		res := New(Clients{Companies: co}).RunAll(context.Background(), h.current(), h.apply)
		assert.False(t, res.Company)
		assert.Len(t, h.current().PublicRecords.CorporateFilings, 1)
	})

	t.Run("search failure", func(t *testing.T) {
		p := profile.Default()
		p.Professional.CurrentOrganization = "Acme Corp"
		co := new(mockCompanies)
		co.On("Search", mock.Anything, "Acme Corp").Return(companies.SearchOutcome{
			Failure: model.Fail(model.ErrRateLimited, "slow down"),
		})
		h := newHolder(p)
		res := New(Clients{Companies: co}).RunAll(context.Background(), h.current(), h.apply)
		assert.Equal(t, 1, res.Errors)
		co.AssertNotCalled(t, "Details", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunAll_BrokersOnlyOnce(t *testing.T) {
	p := profile.Default()
	p.Identity.FullName = "Jane Doe"
	p.Locations.Addresses = []model.Address{{City: "Austin", State: "TX"}}
	h := newHolder(p)
	o := New(Clients{Brokers: brokers.Default()})

	first := o.RunAll(context.Background(), h.current(), h.apply)
	assert.Positive(t, first.Brokers)
	n := len(h.current().Digital.BrokerListings)

	second := o.RunAll(context.Background(), h.current(), h.apply)
	assert.Zero(t, second.Brokers)
	assert.Len(t, h.current().Digital.BrokerListings, n)
}

func TestRunAll_BrokersNeedState(t *testing.T) {
	p := profile.Default()
	p.Identity.FullName = "Jane Doe"
	p.Locations.Addresses = []model.Address{{City: "Austin"}}
	h := newHolder(p)
	res := New(Clients{Brokers: brokers.Default()}).RunAll(context.Background(), h.current(), h.apply)
	assert.Zero(t, res.Brokers)
	assert.Empty(t, h.current().Digital.BrokerListings)
}

func TestRunAll_ComposesWithConcurrentEdits(t *testing.T) {
	p := profile.Default()
	p.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}
	h := newHolder(p)

	geo := new(mockGeocoder)
	geo.On("Geocode", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		// A user edit lands while the lookup is in flight.
		h.apply(func(p model.Profile) model.Profile {
			p.Notes.General = "edited meanwhile"
			p.Locations.Addresses = append(p.Locations.Addresses, model.Address{Street: "9 New St", City: "Ogdenville"})
			return p
		})
	}).Return(found(5, 6))

	res := New(Clients{Geocoder: geo}).RunAll(context.Background(), h.current(), h.apply)
	assert.Equal(t, 1, res.Geocoded)

	cur := h.current()
	assert.Equal(t, "edited meanwhile", cur.Notes.General)
	require.Len(t, cur.Locations.Addresses, 2)
	assert.NotNil(t, cur.Locations.Addresses[0].Coordinates)
	assert.Nil(t, cur.Locations.Addresses[1].Coordinates)
}

func TestRunAll_CancelledContext(t *testing.T) {
	p := profile.Default()
	p.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}
	h := newHolder(p)
	geo := new(mockGeocoder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(Clients{Geocoder: geo}).RunAll(ctx, h.current(), h.apply)
	geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	assert.Equal(t, NothingAvailable, res.Summary)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		res  model.EnrichmentRunResult
		want string
	}{
		{"empty", model.EnrichmentRunResult{}, NothingAvailable},
		{"mixed", model.EnrichmentRunResult{Geocoded: 2, Breaches: 1, Errors: 3}, "2 addresses geocoded · 1 email checked · 3 failed"},
		{"all", model.EnrichmentRunResult{Geocoded: 1, Breaches: 2, Socials: 1, Company: true, Brokers: 10},
			"1 address geocoded · 2 emails checked · 1 social account verified · company record found · 10 broker URLs generated"},
		{"errors only", model.EnrichmentRunResult{Errors: 1}, "1 failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.res))
		})
	}
}
