package model

// Severity classifies how damaging a breach exposure is.
type Severity string

// Breach severities.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// BreachRecord is a single breach exposure tied to one email address.
type BreachRecord struct {
	BreachName   string   `json:"breach_name"`
	Date         string   `json:"date"`
	EmailExposed string   `json:"email_exposed"`
	DataTypes    []string `json:"data_types"`
	Severity     Severity `json:"severity"`
	Notes        string   `json:"notes"`
	Source       string   `json:"source"`
	HIBPName     string   `json:"hibp_name,omitempty"`
	AIExtracted  bool     `json:"_aiExtracted,omitempty"`
}
