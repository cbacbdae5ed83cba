package enrich

import (
	"fmt"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

// NothingAvailable is the summary of a run where every counter is zero.
const NothingAvailable = "No enrichment data available for this profile"

const dateLayout = "2006-01-02"

// Summarize joins the non-zero counters of res into one sentence.
func Summarize(res model.EnrichmentRunResult) string {
	var parts []string
	if res.Geocoded > 0 {
		parts = append(parts, count(res.Geocoded, "address", "addresses")+" geocoded")
	}
	if res.Breaches > 0 {
		parts = append(parts, count(res.Breaches, "email", "emails")+" checked")
	}
	if res.Socials > 0 {
		parts = append(parts, count(res.Socials, "social account", "social accounts")+" verified")
	}
	if res.Company {
		parts = append(parts, "company record found")
	}
	if res.Brokers > 0 {
		parts = append(parts, count(res.Brokers, "broker URL", "broker URLs")+" generated")
	}
	if res.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", res.Errors))
	}
	if len(parts) == 0 {
		return NothingAvailable
	}
	return strings.Join(parts, " · ")
}

func count(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
