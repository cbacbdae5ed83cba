package model

import "time"

// JobState is the lifecycle state of an extraction job.
type JobState string

// Extraction job states: idle -> extracting -> {review | error}.
const (
	JobIdle       JobState = "idle"
	JobExtracting JobState = "extracting"
	JobReview     JobState = "review"
	JobError      JobState = "error"
)

// Terminal reports whether the state is a settled outcome.
func (s JobState) Terminal() bool {
	return s == JobReview || s == JobError
}

// ExtractionResult is the structured output of a document extraction.
type ExtractionResult struct {
	Extracted Profile `json:"extracted"`
	Summary   string  `json:"summary"`
	FileName  string  `json:"file_name"`
}

// JobFailure describes why an extraction job failed.
type JobFailure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// JobSnapshot is a point-in-time view of a subject's extraction job.
type JobSnapshot struct {
	SubjectID  string            `json:"subject_id"`
	JobID      string            `json:"job_id,omitempty"`
	State      JobState          `json:"state"`
	FileName   string            `json:"file_name,omitempty"`
	Result     *ExtractionResult `json:"result,omitempty"`
	Error      *JobFailure       `json:"error,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}
