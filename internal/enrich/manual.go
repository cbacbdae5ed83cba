package enrich

import (
	"slices"
	"strings"
	"time"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/pkg/social"
)

// Manual-check visibility verdicts.
const (
	VisibilityUnknown  = "unknown"
	VisibilityNotFound = "not_found"
)

// ConfirmManualCheck returns an update recording a human's verdict for an
// account on a platform that cannot be verified automatically. A positive
// verdict marks the account verified; a negative one clears verification and
// notes the account was not found. An unknown account is appended when the
// verdict is positive.
func ConfirmManualCheck(platform, handle string, found bool, at time.Time) func(model.Profile) model.Profile {
	platform = social.NormalizePlatform(platform)
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	date := at.UTC().Format(dateLayout)

	return func(p model.Profile) model.Profile {
		accts := slices.Clone(p.Digital.SocialAccounts)
		matched := false
		for i := range accts {
			if social.NormalizePlatform(accts[i].Platform) != platform || !sameHandle(accts[i], handle) {
				continue
			}
			matched = true
			if found {
				accts[i].Verified = true
				accts[i].VerifiedDate = date
				if accts[i].Visibility == "" {
					accts[i].Visibility = VisibilityUnknown
				}
				if accts[i].URL == "" {
					accts[i].URL = social.ManualCheckURL(platform, handle)
				}
			} else {
				accts[i].Verified = false
				accts[i].VerifiedDate = date
				accts[i].Visibility = VisibilityNotFound
			}
		}
		if !matched && found {
			accts = append(accts, model.SocialAccount{
				Platform:     platform,
				Handle:       handle,
				URL:          social.ManualCheckURL(platform, handle),
				Visibility:   VisibilityUnknown,
				Verified:     true,
				VerifiedDate: date,
			})
		}
		p.Digital.SocialAccounts = accts
		return p
	}
}

func sameHandle(a model.SocialAccount, handle string) bool {
	h := strings.TrimPrefix(strings.TrimSpace(a.Handle), "@")
	if h == "" {
		h = social.HandleFromURL(a.URL)
	}
	return strings.EqualFold(h, handle)
}
