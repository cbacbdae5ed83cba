package hibp

import (
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
)

var highRiskMarkers = []string{
	"password",
	"credit card",
	"bank",
	"financial",
	"social security",
	"ssn",
	"government issued id",
	"passport",
	"phone",
	"physical address",
}

// Classify rates the severity of a breach from its exposed data classes.
func Classify(dataTypes []string) model.Severity {
	hasEmail := false
	for _, dt := range dataTypes {
		lower := strings.ToLower(dt)
		for _, m := range highRiskMarkers {
			if strings.Contains(lower, m) {
				return model.SeverityHigh
			}
		}
		if strings.Contains(lower, "email") {
			hasEmail = true
		}
	}
	if hasEmail {
		return model.SeverityMedium
	}
	return model.SeverityLow
}
