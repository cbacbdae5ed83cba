package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
)

// DefaultJobTimeout bounds a single extraction job.
const DefaultJobTimeout = 5 * time.Minute

// MergeInstruction is an approved extraction ready to fold into a profile.
type MergeInstruction struct {
	SubjectID string
	FileName  string
	Summary   string
	Extracted model.Profile
}

// Merge applies the extraction to p through the merge engine.
func (mi MergeInstruction) Merge(p model.Profile) profile.MergeResult {
	return profile.MergeExtraction(p, mi.Extracted)
}

type job struct {
	snap model.JobSnapshot // guarded by Manager.mu
	done chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithJobTimeout bounds each job's provider work.
func WithJobTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithMetrics instruments the manager.
func WithMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mx }
}

// WithSupported sets the file-type check used at submission.
func WithSupported(fn func(name string) bool) ManagerOption {
	return func(m *Manager) { m.supported = fn }
}

// Manager owns at most one extraction job per subject. Jobs run on their own
// goroutines, detached from whoever submitted them, so an observer may leave
// and come back without the work being repeated.
type Manager struct {
	extractor Extractor
	supported func(name string) bool
	timeout   time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewManager creates a job manager around extractor.
func NewManager(extractor Extractor, opts ...ManagerOption) *Manager {
	m := &Manager{
		extractor: extractor,
		supported: func(string) bool { return true },
		timeout:   DefaultJobTimeout,
		now:       time.Now,
		jobs:      make(map[string]*job),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Submit starts extracting file for subjectID. An unsupported file type is
// recorded as a failed job without running anything. Submitting while the
// subject's job is still extracting returns ErrJobInFlight; a settled job is
// replaced.
func (m *Manager) Submit(subjectID string, file File) (model.JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.jobs[subjectID]; ok && existing.snap.State == model.JobExtracting {
		return existing.snap, ErrJobInFlight
	}

	started := m.now()
	j := &job{
		snap: model.JobSnapshot{
			SubjectID: subjectID,
			JobID:     uuid.NewString(),
			FileName:  file.Name,
			StartedAt: &started,
		},
		done: make(chan struct{}),
	}
	m.jobs[subjectID] = j

	if !m.supported(file.Name) {
		j.snap.State = model.JobError
		j.snap.Error = &model.JobFailure{
			Code:    model.ErrUnsupportedFileType,
			Message: "unsupported file type: " + file.Name,
		}
		j.snap.FinishedAt = &started
		close(j.done)
		m.metrics.ExtractionRejected(model.ErrUnsupportedFileType)
		return j.snap, nil
	}

	j.snap.State = model.JobExtracting
	m.metrics.ExtractionStarted()
	m.wg.Add(1)
	go m.run(j, file)
	return j.snap, nil
}

func (m *Manager) run(j *job, file File) {
	defer m.wg.Done()
	defer close(j.done)

	log := zap.L().With(
		zap.String("subject", j.snap.SubjectID),
		zap.String("job", j.snap.JobID),
		zap.String("file", file.Name),
	)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	result, err := m.safeExtract(ctx, file)

	m.mu.Lock()
	defer m.mu.Unlock()

	finished := m.now()
	j.snap.FinishedAt = &finished
	if err != nil {
		j.snap.State = model.JobError
		j.snap.Error = &model.JobFailure{Code: CodeOf(err), Message: err.Error()}
		log.Warn("extraction: job failed", zap.String("code", string(j.snap.Error.Code)), zap.Error(err))
	} else {
		j.snap.State = model.JobReview
		j.snap.Result = &result
		log.Info("extraction: job ready for review", zap.String("summary", result.Summary))
	}

	var code model.ErrorCode
	if j.snap.Error != nil {
		code = j.snap.Error.Code
	}
	m.metrics.ExtractionFinished(j.snap.State, code, finished.Sub(*j.snap.StartedAt))

	if m.jobs[j.snap.SubjectID] != j {
		log.Info("extraction: job settled after discard")
	}
}

func (m *Manager) safeExtract(ctx context.Context, file File) (res model.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = coded(model.ErrProvider, eris.Errorf("extraction: panic: %v", r))
		}
	}()
	return m.extractor.Extract(ctx, file)
}

// Reconnect returns the subject's current job snapshot, or an idle snapshot
// when there is none. It never starts work.
func (m *Manager) Reconnect(subjectID string) model.JobSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if j, ok := m.jobs[subjectID]; ok {
		return j.snap
	}
	return model.JobSnapshot{SubjectID: subjectID, State: model.JobIdle}
}

// Wait re-attaches to the subject's stored job and blocks until it settles
// or ctx ends.
func (m *Manager) Wait(ctx context.Context, subjectID string) (model.JobSnapshot, error) {
	m.mu.Lock()
	j, ok := m.jobs[subjectID]
	m.mu.Unlock()
	if !ok {
		return model.JobSnapshot{SubjectID: subjectID, State: model.JobIdle}, nil
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return m.Reconnect(subjectID), ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return j.snap, nil
}

// Apply consumes the subject's reviewed result and clears the entry.
func (m *Manager) Apply(subjectID string) (MergeInstruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[subjectID]
	if !ok || j.snap.State != model.JobReview || j.snap.Result == nil {
		return MergeInstruction{}, ErrNoReviewResult
	}
	delete(m.jobs, subjectID)

	return MergeInstruction{
		SubjectID: subjectID,
		FileName:  j.snap.Result.FileName,
		Summary:   j.snap.Result.Summary,
		Extracted: j.snap.Result.Extracted,
	}, nil
}

// Discard clears the subject's entry. A running job keeps going but its
// outcome is no longer observable.
func (m *Manager) Discard(subjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, subjectID)
}

// Shutdown waits for running jobs to settle or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "extraction: shutdown")
	}
}
