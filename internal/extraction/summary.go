package extraction

import (
	"fmt"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

// NoDataSummary is reported when an extraction found nothing.
const NoDataSummary = "No structured data found"

type countLabel struct {
	n        int
	singular string
	plural   string
}

// Summarize lists the populated scalar fields and list counts of an
// extraction, e.g. "Extracted name, title, 2 addresses, 3 emails".
func Summarize(p model.Profile) string {
	var parts []string

	scalars := []struct {
		value string
		label string
	}{
		{p.Identity.FullName, "name"},
		{p.Identity.DateOfBirth, "date of birth"},
		{p.Identity.Age, "age"},
		{p.Identity.Gender, "gender"},
		{p.Identity.Nationality, "nationality"},
		{p.Professional.CurrentTitle, "title"},
		{p.Professional.CurrentOrganization, "organization"},
		{p.Professional.Industry, "industry"},
	}
	for _, s := range scalars {
		if strings.TrimSpace(s.value) != "" {
			parts = append(parts, s.label)
		}
	}

	lists := []countLabel{
		{len(p.Identity.Aliases), "alias", "aliases"},
		{len(p.Professional.Education), "education entry", "education entries"},
		{len(p.Professional.EmploymentHistory), "past position", "past positions"},
		{len(p.Locations.Addresses), "address", "addresses"},
		{len(p.Contact.PhoneNumbers), "phone number", "phone numbers"},
		{len(p.Contact.Emails), "email", "emails"},
		{len(p.Digital.SocialAccounts), "social account", "social accounts"},
		{len(p.Digital.BrokerListings), "broker listing", "broker listings"},
		{len(p.Breaches.Records), "breach", "breaches"},
		{len(p.Network.FamilyMembers), "family member", "family members"},
		{len(p.Network.Associates), "associate", "associates"},
		{len(p.PublicRecords.CorporateFilings), "corporate filing", "corporate filings"},
		{len(p.PublicRecords.CourtRecords), "court record", "court records"},
		{len(p.PublicRecords.PropertyRecords), "property record", "property records"},
		{len(p.Behavioral.Routines), "routine", "routines"},
		{len(p.Behavioral.TravelPatterns), "travel pattern", "travel patterns"},
	}
	for _, l := range lists {
		switch {
		case l.n == 1:
			parts = append(parts, "1 "+l.singular)
		case l.n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", l.n, l.plural))
		}
	}

	if len(parts) == 0 {
		return NoDataSummary
	}
	return "Extracted " + strings.Join(parts, ", ")
}
