package profile

import (
	"regexp"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

var yearSuffixRe = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// NormalizeBreachName lower-cases a breach name and strips a trailing
// "(YYYY)" year token.
func NormalizeBreachName(name string) string {
	name = strings.TrimSpace(name)
	name = yearSuffixRe.ReplaceAllString(name, "")
	return strings.ToLower(strings.TrimSpace(name))
}

// breachKey is the dedup identity of a record: the provider name when known,
// otherwise the display name.
func breachKey(r model.BreachRecord) string {
	if r.HIBPName != "" {
		return NormalizeBreachName(r.HIBPName)
	}
	return NormalizeBreachName(r.BreachName)
}

// IsDuplicate reports whether candidate already exists in existing. Two
// records match when their normalized names are equal and their exposed
// email strings are identical.
func IsDuplicate(existing []model.BreachRecord, candidate model.BreachRecord) bool {
	key := breachKey(candidate)
	for _, r := range existing {
		if r.EmailExposed == candidate.EmailExposed && breachKey(r) == key {
			return true
		}
	}
	return false
}

// AppendUniqueBreaches appends candidates that are not already present,
// including duplicates within candidates themselves.
func AppendUniqueBreaches(existing, candidates []model.BreachRecord) ([]model.BreachRecord, int) {
	out := append([]model.BreachRecord(nil), existing...)
	added := 0
	for _, c := range candidates {
		if IsDuplicate(out, c) {
			continue
		}
		out = append(out, c)
		added++
	}
	if out == nil {
		out = []model.BreachRecord{}
	}
	return out, added
}
