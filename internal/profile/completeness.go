package profile

import "github.com/sells-group/profile-cli/internal/model"

// Completeness returns the share (0..1) of profile sections that hold any data.
func Completeness(p model.Profile) float64 {
	filled := []bool{
		p.Identity.FullName != "" || p.Identity.DateOfBirth != "" || len(p.Identity.Aliases) > 0,
		p.Professional.CurrentTitle != "" || p.Professional.CurrentOrganization != "" ||
			len(p.Professional.Education) > 0 || len(p.Professional.EmploymentHistory) > 0,
		len(p.Locations.Addresses) > 0,
		len(p.Contact.PhoneNumbers) > 0 || len(p.Contact.Emails) > 0,
		len(p.Digital.SocialAccounts) > 0 || len(p.Digital.BrokerListings) > 0,
		len(p.Breaches.Records) > 0,
		len(p.Network.FamilyMembers) > 0 || len(p.Network.Associates) > 0,
		len(p.PublicRecords.CorporateFilings) > 0 || len(p.PublicRecords.CourtRecords) > 0 ||
			len(p.PublicRecords.PropertyRecords) > 0,
		len(p.Behavioral.Routines) > 0 || len(p.Behavioral.TravelPatterns) > 0,
		p.Notes.General != "",
	}
	n := 0
	for _, f := range filled {
		if f {
			n++
		}
	}
	return float64(n) / float64(len(filled))
}
