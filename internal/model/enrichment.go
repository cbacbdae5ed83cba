package model

// EnrichmentTask names an orchestrator task group.
type EnrichmentTask string

// Task groups, in execution order.
const (
	TaskGeocode EnrichmentTask = "geocode"
	TaskBreach  EnrichmentTask = "breach"
	TaskSocial  EnrichmentTask = "social"
	TaskCompany EnrichmentTask = "company"
	TaskBrokers EnrichmentTask = "brokers"
)

// TaskFailure records one failed item within a task group.
type TaskFailure struct {
	Task    EnrichmentTask `json:"task"`
	Item    string         `json:"item"`
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
}

// EnrichmentRunResult aggregates the counters of one orchestrator run.
type EnrichmentRunResult struct {
	Geocoded int           `json:"geocoded"`
	Breaches int           `json:"breaches"`
	Socials  int           `json:"socials"`
	Company  bool          `json:"company"`
	Brokers  int           `json:"brokers"`
	Errors   int           `json:"errors"`
	Summary  string        `json:"summary"`
	Failures []TaskFailure `json:"failures,omitempty"`
}
