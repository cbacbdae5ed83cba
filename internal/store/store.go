package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/profile-cli/internal/model"
)

// ProfileRecord is a stored profile with its derived metadata.
type ProfileRecord struct {
	SubjectID    string          `json:"subject_id"`
	Data         json.RawMessage `json:"data"`
	Completeness float64         `json:"completeness"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProfileFilter specifies criteria for listing profiles.
type ProfileFilter struct {
	MinCompleteness float64 `json:"min_completeness,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	Offset          int     `json:"offset,omitempty"`
}

// RunRecord is the audit entry of one enrichment run.
type RunRecord struct {
	ID        string                    `json:"id"`
	SubjectID string                    `json:"subject_id"`
	Result    model.EnrichmentRunResult `json:"result"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Store is the persistence collaborator for subject profiles. LoadProfile
// returns nil bytes and a nil error for a subject that was never saved.
type Store interface {
	// Profiles
	LoadProfile(ctx context.Context, subjectID string) ([]byte, error)
	SaveProfile(ctx context.Context, subjectID string, p model.Profile, completeness float64) error
	SaveProfiles(ctx context.Context, records []ProfileRecord) (int64, error)
	GetProfile(ctx context.Context, subjectID string) (*ProfileRecord, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]ProfileRecord, error)

	// Enrichment audit
	RecordRun(ctx context.Context, subjectID string, result model.EnrichmentRunResult) (*RunRecord, error)
	ListRuns(ctx context.Context, subjectID string, limit int) ([]RunRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
