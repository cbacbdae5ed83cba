package enrich

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/pkg/brokers"
	"github.com/sells-group/profile-cli/pkg/companies"
	"github.com/sells-group/profile-cli/pkg/geocode"
	"github.com/sells-group/profile-cli/pkg/social"
)

// minOrganizationLength is the shortest organization name worth searching.
const minOrganizationLength = 3

func (o *Orchestrator) geocodeAddresses(r *run, snapshot model.Profile) {
	for _, addr := range snapshot.Locations.Addresses {
		if addr.Coordinates != nil || strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" {
			continue
		}
		query := geocode.FormatAddress(addr)
		stop := r.item(model.TaskGeocode, query, func() model.Failure {
			out := o.clients.Geocoder.Geocode(r.ctx, query)
			if out.Failed() || !out.Found {
				return out.Failure
			}
			r.apply(func(p model.Profile) model.Profile {
				return patchAddress(p, addr.Street, addr.City, out)
			})
			r.result.Geocoded++
			return model.Failure{}
		})
		if stop {
			return
		}
	}
}

// patchAddress sets geocode data on the addresses that still match street
// and city and have no coordinates yet.
func patchAddress(p model.Profile, street, city string, out geocode.Outcome) model.Profile {
	addrs := slices.Clone(p.Locations.Addresses)
	for i := range addrs {
		if addrs[i].Street != street || addrs[i].City != city || addrs[i].Coordinates != nil {
			continue
		}
		confidence := out.Confidence
		addrs[i].Coordinates = &model.Coordinates{Lat: out.Lat, Lng: out.Lng}
		addrs[i].GeocodeConfidence = &confidence
		addrs[i].FormattedAddress = out.FormattedAddress
	}
	p.Locations.Addresses = addrs
	return p
}

func (o *Orchestrator) checkBreaches(r *run, snapshot model.Profile) {
	for _, email := range snapshot.Contact.Emails {
		if email.Checked() || strings.TrimSpace(email.Address) == "" {
			continue
		}
		address := email.Address
		stop := r.item(model.TaskBreach, address, func() model.Failure {
			out := o.clients.Breaches.CheckBreaches(r.ctx, address)
			r.metrics.ObserveBreachCheck(out.Found, out.Code)
			if out.Failed() {
				return out.Failure
			}
			stamp := model.EmailEnrichment{
				LastChecked:   r.now.UTC().Format(time.RFC3339),
				BreachesFound: out.Count,
				Status:        model.EmailStatusChecked,
			}
			r.apply(func(p model.Profile) model.Profile {
				return stampEmail(p, address, stamp, out.Breaches)
			})
			r.result.Breaches++
			return model.Failure{}
		})
		if stop {
			return
		}
	}
}

func stampEmail(p model.Profile, address string, stamp model.EmailEnrichment, found []model.BreachRecord) model.Profile {
	emails := slices.Clone(p.Contact.Emails)
	for i := range emails {
		if emails[i].Address == address {
			s := stamp
			emails[i].Enrichment = &s
		}
	}
	p.Contact.Emails = emails

	records, added := profile.AppendUniqueBreaches(p.Breaches.Records, found)
	if added > 0 {
		p.Breaches.Records = records
	}
	return p
}

func (o *Orchestrator) verifySocials(r *run, snapshot model.Profile) {
	for _, acct := range snapshot.Digital.SocialAccounts {
		if acct.Verified {
			continue
		}
		platform := social.NormalizePlatform(acct.Platform)
		if !o.clients.Social.Automatable(platform) {
			continue
		}
		handle := strings.TrimPrefix(strings.TrimSpace(acct.Handle), "@")
		if handle == "" {
			handle = social.HandleFromURL(acct.URL)
		}
		if handle == "" {
			continue
		}

		key := acct
		stop := r.item(model.TaskSocial, platform+":"+handle, func() model.Failure {
			v := o.clients.Social.Verify(r.ctx, platform, handle)
			if v.Failed() || !v.Exists {
				return v.Failure
			}
			date := r.now.UTC().Format(dateLayout)
			r.apply(func(p model.Profile) model.Profile {
				return stampSocial(p, key, v, date)
			})
			r.result.Socials++
			return model.Failure{}
		})
		if stop {
			return
		}
	}
}

func sameAccount(a, b model.SocialAccount) bool {
	return strings.EqualFold(a.Platform, b.Platform) && a.Handle == b.Handle && a.URL == b.URL
}

func stampSocial(p model.Profile, key model.SocialAccount, v social.Verification, date string) model.Profile {
	accts := slices.Clone(p.Digital.SocialAccounts)
	for i := range accts {
		if !sameAccount(accts[i], key) {
			continue
		}
		accts[i].Verified = true
		accts[i].VerifiedDate = date
		if v.Visibility != "" {
			accts[i].Visibility = v.Visibility
		}
		if v.Followers != nil {
			n := *v.Followers
			accts[i].Followers = &n
		}
		if accts[i].URL == "" {
			accts[i].URL = v.ProfileURL
		}
	}
	p.Digital.SocialAccounts = accts
	return p
}

func hasFilingFrom(filings []model.CorporateFiling, source string) bool {
	return slices.ContainsFunc(filings, func(f model.CorporateFiling) bool { return f.Source == source })
}

func (o *Orchestrator) lookupCompany(r *run, snapshot model.Profile) {
	org := strings.TrimSpace(snapshot.Professional.CurrentOrganization)
	if utf8.RuneCountInString(org) < minOrganizationLength {
		return
	}
	if hasFilingFrom(snapshot.PublicRecords.CorporateFilings, companies.Source) {
		return
	}

	r.item(model.TaskCompany, org, func() model.Failure {
		search := o.clients.Companies.Search(r.ctx, org)
		if search.Failed() {
			return search.Failure
		}
		if len(search.Matches) == 0 {
			r.log.Debug("enrich: no company match", zap.String("organization", org))
			return model.Failure{}
		}

		top := search.Matches[0]
		details := o.clients.Companies.Details(r.ctx, top.Jurisdiction, top.CompanyNumber)
		if details.Failed() || !details.Found {
			return details.Failure
		}

		filing := details.Filing
		if filing.Source == "" {
			filing.Source = companies.Source
		}
		var added bool
		r.apply(func(p model.Profile) model.Profile {
			if hasFilingFrom(p.PublicRecords.CorporateFilings, companies.Source) ||
				slices.ContainsFunc(p.PublicRecords.CorporateFilings, func(f model.CorporateFiling) bool {
					return strings.EqualFold(strings.TrimSpace(f.EntityName), strings.TrimSpace(filing.EntityName))
				}) {
				return p
			}
			p.PublicRecords.CorporateFilings = append(slices.Clone(p.PublicRecords.CorporateFilings), filing)
			added = true
			return p
		})
		if added {
			r.result.Company = true
		}
		return model.Failure{}
	})
}

func hasListingFrom(listings []model.BrokerListing, source string) bool {
	return slices.ContainsFunc(listings, func(l model.BrokerListing) bool { return l.Source == source })
}

func (o *Orchestrator) generateBrokers(r *run, snapshot model.Profile) {
	name := strings.TrimSpace(snapshot.Identity.FullName)
	if name == "" || hasListingFrom(snapshot.Digital.BrokerListings, brokers.Source) {
		return
	}
	idx := slices.IndexFunc(snapshot.Locations.Addresses, func(a model.Address) bool {
		return strings.TrimSpace(a.State) != ""
	})
	if idx < 0 {
		return
	}
	addr := snapshot.Locations.Addresses[idx]

	r.item(model.TaskBrokers, name, func() model.Failure {
		listings := o.clients.Brokers.Generate(brokers.Query{FullName: name, City: addr.City, State: addr.State})
		if len(listings) == 0 {
			return model.Failure{}
		}
		var added int
		r.apply(func(p model.Profile) model.Profile {
			if hasListingFrom(p.Digital.BrokerListings, brokers.Source) {
				return p
			}
			p.Digital.BrokerListings = append(slices.Clone(p.Digital.BrokerListings), listings...)
			added = len(listings)
			return p
		})
		r.result.Brokers = added
		return model.Failure{}
	})
}
