package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestMergeExtraction_ScalarsNeverOverwritePopulatedFields(t *testing.T) {
	existing := Default()
	existing.Identity.FullName = "Jane Q. Doe"
	existing.Professional.CurrentTitle = "CFO"

	extracted := Default()
	extracted.Identity.FullName = "J. Doe"
	extracted.Professional.CurrentTitle = "Chief Financial Officer"
	extracted.Professional.CurrentOrganization = "Acme Holdings"

	res := MergeExtraction(existing, extracted)

	assert.Equal(t, "Jane Q. Doe", res.Merged.Identity.FullName)
	assert.Equal(t, "CFO", res.Merged.Professional.CurrentTitle)
	assert.Equal(t, "Acme Holdings", res.Merged.Professional.CurrentOrganization)
	assert.Equal(t, []string{"professional.current_organization"}, res.TaggedFieldPaths)
}

func TestMergeExtraction_WhitespaceExistingCountsAsEmpty(t *testing.T) {
	existing := Default()
	existing.Identity.DateOfBirth = "   "

	extracted := Default()
	extracted.Identity.DateOfBirth = "1980-04-02"

	res := MergeExtraction(existing, extracted)
	assert.Equal(t, "1980-04-02", res.Merged.Identity.DateOfBirth)
	assert.Contains(t, res.TaggedFieldPaths, "identity.date_of_birth")
}

func TestMergeExtraction_ListsAppendAndTag(t *testing.T) {
	existing := Default()
	existing.Contact.Emails = []model.Email{{Address: "jane@acme.com"}}
	existing.Locations.Addresses = []model.Address{{Street: "1 Elm St", City: "Springfield"}}

	extracted := Default()
	extracted.Contact.Emails = []model.Email{
		{Address: "jane@acme.com"},
		{Address: "jdoe@gmail.com"},
	}
	extracted.Locations.Addresses = []model.Address{{Street: "9 Oak Ave", City: "Shelbyville"}}
	extracted.Network.Associates = []model.Relation{{Name: "Bob Roe"}}

	res := MergeExtraction(existing, extracted)

	require.Len(t, res.Merged.Contact.Emails, 3)
	assert.False(t, res.Merged.Contact.Emails[0].AIExtracted, "manual entry keeps no tag")
	assert.True(t, res.Merged.Contact.Emails[1].AIExtracted)
	assert.True(t, res.Merged.Contact.Emails[2].AIExtracted)
	assert.Equal(t, "jane@acme.com", res.Merged.Contact.Emails[1].Address, "no dedup at merge time")

	require.Len(t, res.Merged.Locations.Addresses, 2)
	assert.True(t, res.Merged.Locations.Addresses[1].AIExtracted)

	require.Len(t, res.Merged.Network.Associates, 1)
	assert.True(t, res.Merged.Network.Associates[0].AIExtracted)

	assert.ElementsMatch(t, []string{
		"contact.emails",
		"locations.addresses",
		"network.associates",
	}, res.TaggedFieldPaths)
}

func TestMergeExtraction_Additivity(t *testing.T) {
	existing := Default()
	existing.Identity.Aliases = []model.Alias{{Name: "JD"}}
	existing.Behavioral.Routines = []model.Routine{{Description: "gym 6am"}}

	extracted := Default()
	extracted.Identity.Aliases = []model.Alias{{Name: "Janie"}, {Name: "J. Doe"}}
	extracted.Behavioral.Routines = []model.Routine{{Description: "coffee shop"}}
	extracted.Behavioral.TravelPatterns = []model.TravelPattern{{Destination: "Miami"}}
	extracted.Breaches.Records = []model.BreachRecord{{BreachName: "Adobe (2013)", EmailExposed: "a@b.c"}}

	res := MergeExtraction(existing, extracted)

	cases := []struct {
		name     string
		got      int
		existing int
		incoming int
	}{
		{"aliases", len(res.Merged.Identity.Aliases), 1, 2},
		{"routines", len(res.Merged.Behavioral.Routines), 1, 1},
		{"travel", len(res.Merged.Behavioral.TravelPatterns), 0, 1},
		{"breaches", len(res.Merged.Breaches.Records), 0, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.existing+tc.incoming, tc.got, tc.name)
	}
	for _, a := range res.Merged.Identity.Aliases[1:] {
		assert.True(t, a.AIExtracted)
	}
	assert.True(t, res.Merged.Breaches.Records[0].AIExtracted)
}

func TestMergeExtraction_DoesNotMutateInputs(t *testing.T) {
	existing := Default()
	existing.Contact.Emails = []model.Email{{Address: "a@co.com"}}
	extracted := Default()
	extracted.Contact.Emails = []model.Email{{Address: "b@co.com"}}
	extracted.Identity.FullName = "Someone"

	_ = MergeExtraction(existing, extracted)

	assert.Len(t, existing.Contact.Emails, 1)
	assert.Empty(t, existing.Identity.FullName)
	assert.False(t, extracted.Contact.Emails[0].AIExtracted)
}

func TestMergeExtraction_EmptyExtractionIsNoop(t *testing.T) {
	existing := Default()
	existing.Identity.FullName = "Jane"

	res := MergeExtraction(existing, Default())
	assert.Equal(t, existing, res.Merged)
	assert.Empty(t, res.TaggedFieldPaths)
	assert.NotNil(t, res.TaggedFieldPaths)
}

func TestMergeExtraction_TagSurvivesLaterMerge(t *testing.T) {
	first := Default()
	first.Contact.PhoneNumbers = []model.Phone{{Number: "555-0100"}}
	merged := MergeExtraction(Default(), first).Merged

	second := Default()
	second.Contact.PhoneNumbers = []model.Phone{{Number: "555-0199"}}
	merged = MergeExtraction(merged, second).Merged

	require.Len(t, merged.Contact.PhoneNumbers, 2)
	assert.True(t, merged.Contact.PhoneNumbers[0].AIExtracted)
	assert.True(t, merged.Contact.PhoneNumbers[1].AIExtracted)
}
