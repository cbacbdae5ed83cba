// Package profile implements the merge engine for subject profiles: schema
// defaults, structural deep-merge, extraction merge, breach dedup, and
// sessions that apply functional updates and persist them.
package profile

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

// Default returns an empty profile with every section and slice initialized.
func Default() model.Profile {
	var p model.Profile
	Normalize(&p)
	return p
}

// Normalize replaces nil slices with empty ones so consumers can index
// without guarding beyond a length check.
func Normalize(p *model.Profile) {
	ensure(&p.Identity.Aliases)
	ensure(&p.Professional.Education)
	ensure(&p.Professional.EmploymentHistory)
	ensure(&p.Locations.Addresses)
	ensure(&p.Contact.PhoneNumbers)
	ensure(&p.Contact.Emails)
	ensure(&p.Digital.SocialAccounts)
	ensure(&p.Digital.BrokerListings)
	ensure(&p.Breaches.Records)
	for i := range p.Breaches.Records {
		ensure(&p.Breaches.Records[i].DataTypes)
	}
	ensure(&p.Network.FamilyMembers)
	ensure(&p.Network.Associates)
	ensure(&p.PublicRecords.CorporateFilings)
	ensure(&p.PublicRecords.CourtRecords)
	ensure(&p.PublicRecords.PropertyRecords)
	ensure(&p.Behavioral.Routines)
	ensure(&p.Behavioral.TravelPatterns)
}

func ensure[T any](s *[]T) {
	if *s == nil {
		*s = []T{}
	}
}

// Load builds a profile from persisted JSON by deep-merging it over the
// schema default. Empty input yields the default.
func Load(raw []byte) (model.Profile, error) {
	if len(raw) == 0 {
		return Default(), nil
	}

	base, err := ToMap(Default())
	if err != nil {
		return model.Profile{}, err
	}

	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		return model.Profile{}, eris.Wrap(err, "profile: decode stored profile")
	}

	merged := DeepMerge(base, stored)
	p, err := FromMap(merged)
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// ToMap converts a profile to its generic JSON-shaped map form.
func ToMap(p model.Profile) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "profile: marshal")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "profile: unmarshal to map")
	}
	return m, nil
}

// FromMap decodes a JSON-shaped map into a normalized profile.
func FromMap(m map[string]any) (model.Profile, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return model.Profile{}, eris.Wrap(err, "profile: marshal map")
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Profile{}, eris.Wrap(err, "profile: decode map")
	}
	Normalize(&p)
	return p, nil
}

// Clone returns a deep copy of p. Updates work on clones so that no
// previously handed-out profile value is mutated.
func Clone(p model.Profile) model.Profile {
	data, err := json.Marshal(p)
	if err != nil {
		// Profile holds only plain data; marshal cannot fail.
		panic(eris.Wrap(err, "profile: clone marshal"))
	}
	var out model.Profile
	if err := json.Unmarshal(data, &out); err != nil {
		panic(eris.Wrap(err, "profile: clone unmarshal"))
	}
	Normalize(&out)
	return out
}
