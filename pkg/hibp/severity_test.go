package hibp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want model.Severity
	}{
		{"passwords", []string{"Email addresses", "Passwords"}, model.SeverityHigh},
		{"credit cards", []string{"Credit cards"}, model.SeverityHigh},
		{"bank", []string{"Bank account numbers"}, model.SeverityHigh},
		{"ssn", []string{"Social security numbers"}, model.SeverityHigh},
		{"government id", []string{"Government issued IDs"}, model.SeverityHigh},
		{"phone", []string{"Phone numbers"}, model.SeverityHigh},
		{"address", []string{"Physical addresses"}, model.SeverityHigh},
		{"email only", []string{"Email addresses", "Usernames"}, model.SeverityMedium},
		{"other", []string{"Usernames", "IP addresses"}, model.SeverityLow},
		{"empty", nil, model.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}
