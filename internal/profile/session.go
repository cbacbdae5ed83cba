package profile

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
)

// Saver persists the latest profile value for a subject.
type Saver interface {
	SaveProfile(ctx context.Context, subjectID string, p model.Profile, completeness float64) error
}

// Loader reads the persisted profile JSON for a subject. A nil slice with a
// nil error means nothing has been stored yet.
type Loader interface {
	LoadProfile(ctx context.Context, subjectID string) ([]byte, error)
}

// Store is the persistence collaborator used by Sessions.
type Store interface {
	Loader
	Saver
}

// Session holds the live profile of one subject. All writers go through
// Apply, which hands each update the current value, so interleaved updates
// compose instead of racing on stale snapshots. Changes are persisted after
// a debounce delay and synchronously on Flush.
//
// A session closed through its Sessions registry never persists on its own
// again. Apply on it re-registers it when the subject has no live session,
// or forwards the update to the live one.
type Session struct {
	subjectID string
	saver     Saver
	debounce  time.Duration
	owner     *Sessions

	mu      sync.Mutex
	closed  bool
	current model.Profile
	version uint64
	saved   uint64
	timer   *time.Timer

	saveMu sync.Mutex
}

// NewSession creates a session around an initial profile.
func NewSession(subjectID string, initial model.Profile, saver Saver, debounce time.Duration) *Session {
	Normalize(&initial)
	return &Session{
		subjectID: subjectID,
		saver:     saver,
		debounce:  debounce,
		current:   initial,
	}
}

// SubjectID returns the subject this session edits.
func (s *Session) SubjectID() string { return s.subjectID }

// Current returns a copy of the current profile.
func (s *Session) Current() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.current)
}

// Apply runs update against the current profile and commits its result.
// It returns a copy of the committed value.
func (s *Session) Apply(update func(model.Profile) model.Profile) model.Profile {
	for {
		s.mu.Lock()
		if !s.closed {
			break
		}
		s.mu.Unlock()
		if live := s.owner.revive(s); live != s {
			return live.Apply(update)
		}
	}
	defer s.mu.Unlock()

	next := update(Clone(s.current))
	Normalize(&next)
	s.current = next
	s.version++
	s.scheduleLocked()
	return Clone(next)
}

// Dirty reports whether there are changes not yet persisted.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.saved
}

func (s *Session) scheduleLocked() {
	if s.saver == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.persist(context.Background()); err != nil {
			zap.L().Warn("profile: debounced save failed",
				zap.String("subject", s.subjectID),
				zap.Error(err),
			)
		}
	})
}

// Flush cancels any pending debounced save and persists synchronously.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.version == s.saved {
		s.mu.Unlock()
		return nil
	}
	snapshot := Clone(s.current)
	version := s.version
	s.mu.Unlock()

	if err := s.saver.SaveProfile(ctx, s.subjectID, snapshot, Completeness(snapshot)); err != nil {
		return eris.Wrapf(err, "profile: save subject %s", s.subjectID)
	}

	s.mu.Lock()
	if version > s.saved {
		s.saved = version
	}
	s.mu.Unlock()
	return nil
}

// Sessions keeps one live Session per open subject.
type Sessions struct {
	store    Store
	debounce time.Duration

	mu   sync.Mutex
	open map[string]*Session
}

// NewSessions creates a session registry backed by store.
func NewSessions(store Store, debounce time.Duration) *Sessions {
	return &Sessions{
		store:    store,
		debounce: debounce,
		open:     make(map[string]*Session),
	}
}

// Open returns the live session for subjectID, loading it from the store
// over the schema default on first use.
func (m *Sessions) Open(ctx context.Context, subjectID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.open[subjectID]; ok {
		return s, nil
	}

	raw, err := m.store.LoadProfile(ctx, subjectID)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: load subject %s", subjectID)
	}
	p, err := Load(raw)
	if err != nil {
		return nil, err
	}

	s := NewSession(subjectID, p, m.store, m.debounce)
	s.owner = m
	m.open[subjectID] = s
	return s, nil
}

// revive returns the live session for s's subject, re-registering s when
// there is none. Callers must not hold s.mu.
func (m *Sessions) revive(s *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if live, ok := m.open[s.subjectID]; ok {
		return live
	}
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	m.open[s.subjectID] = s
	return s
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Close flushes and forgets the session for subjectID.
func (m *Sessions) Close(ctx context.Context, subjectID string) error {
	m.mu.Lock()
	s, ok := m.open[subjectID]
	if ok {
		delete(m.open, subjectID)
		s.markClosed()
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Flush(ctx)
}

// CloseAll flushes every open session. It keeps going after a failure and
// returns the first error.
func (m *Sessions) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.open))
	for _, s := range m.open {
		s.markClosed()
		sessions = append(sessions, s)
	}
	m.open = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
