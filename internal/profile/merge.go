package profile

import (
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

// MergeResult is the output of MergeExtraction.
type MergeResult struct {
	Merged           model.Profile `json:"merged"`
	TaggedFieldPaths []string      `json:"tagged_field_paths"`
}

// scalarField addresses a single string field by dotted path.
type scalarField struct {
	path string
	ref  func(*model.Profile) *string
}

// scalarFields are written only when the existing value is empty.
var scalarFields = []scalarField{
	{"identity.full_name", func(p *model.Profile) *string { return &p.Identity.FullName }},
	{"identity.date_of_birth", func(p *model.Profile) *string { return &p.Identity.DateOfBirth }},
	{"identity.age", func(p *model.Profile) *string { return &p.Identity.Age }},
	{"identity.gender", func(p *model.Profile) *string { return &p.Identity.Gender }},
	{"identity.nationality", func(p *model.Profile) *string { return &p.Identity.Nationality }},
	{"professional.current_title", func(p *model.Profile) *string { return &p.Professional.CurrentTitle }},
	{"professional.current_organization", func(p *model.Profile) *string { return &p.Professional.CurrentOrganization }},
	{"professional.industry", func(p *model.Profile) *string { return &p.Professional.Industry }},
}

// listField appends extracted items of one list onto the destination profile
// and reports how many were appended.
type listField struct {
	path   string
	append func(dst *model.Profile, src model.Profile) int
}

var listFields = []listField{
	{"identity.aliases", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Identity.Aliases, s.Identity.Aliases)
	}},
	{"professional.education", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Professional.Education, s.Professional.Education)
	}},
	{"professional.employment_history", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Professional.EmploymentHistory, s.Professional.EmploymentHistory)
	}},
	{"locations.addresses", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Locations.Addresses, s.Locations.Addresses)
	}},
	{"contact.phone_numbers", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Contact.PhoneNumbers, s.Contact.PhoneNumbers)
	}},
	{"contact.emails", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Contact.Emails, s.Contact.Emails)
	}},
	{"digital.social_accounts", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Digital.SocialAccounts, s.Digital.SocialAccounts)
	}},
	{"digital.broker_listings", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Digital.BrokerListings, s.Digital.BrokerListings)
	}},
	{"breaches.records", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Breaches.Records, s.Breaches.Records)
	}},
	{"network.family_members", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Network.FamilyMembers, s.Network.FamilyMembers)
	}},
	{"network.associates", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Network.Associates, s.Network.Associates)
	}},
	{"public_records.corporate_filings", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.PublicRecords.CorporateFilings, s.PublicRecords.CorporateFilings)
	}},
	{"public_records.court_records", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.PublicRecords.CourtRecords, s.PublicRecords.CourtRecords)
	}},
	{"public_records.property_records", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.PublicRecords.PropertyRecords, s.PublicRecords.PropertyRecords)
	}},
	{"behavioral.routines", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Behavioral.Routines, s.Behavioral.Routines)
	}},
	{"behavioral.travel_patterns", func(d *model.Profile, s model.Profile) int {
		return appendTagged(&d.Behavioral.TravelPatterns, s.Behavioral.TravelPatterns)
	}},
}

// taggable is a sub-record that can carry the extraction provenance tag.
type taggable[T any] interface {
	*T
	MarkAIExtracted()
}

func appendTagged[T any, PT taggable[T]](dst *[]T, src []T) int {
	for _, item := range src {
		PT(&item).MarkAIExtracted()
		*dst = append(*dst, item)
	}
	return len(src)
}

// MergeExtraction folds an extraction result into an existing profile.
// Scalar identity and professional fields are filled only where the profile
// is empty, so manual edits always win. List fields are appended, never
// replaced or deduplicated, and every appended item is tagged as
// AI-extracted. Neither input is modified.
func MergeExtraction(existing, extracted model.Profile) MergeResult {
	merged := Clone(existing)
	src := Clone(extracted)
	var paths []string

	for _, f := range scalarFields {
		incoming := strings.TrimSpace(*f.ref(&src))
		if incoming == "" {
			continue
		}
		current := f.ref(&merged)
		if strings.TrimSpace(*current) != "" {
			continue
		}
		*current = incoming
		paths = append(paths, f.path)
	}

	for _, f := range listFields {
		if n := f.append(&merged, src); n > 0 {
			paths = append(paths, f.path)
		}
	}

	if paths == nil {
		paths = []string{}
	}
	return MergeResult{Merged: merged, TaggedFieldPaths: paths}
}
