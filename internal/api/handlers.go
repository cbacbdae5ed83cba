package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/enrich"
	"github.com/sells-group/profile-cli/internal/extraction"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/pkg/hibp"
)

// API-level error codes, alongside the provider taxonomy.
const (
	codeBadRequest  model.ErrorCode = "bad_request"
	codeConflict    model.ErrorCode = "conflict"
	codeInternal    model.ErrorCode = "internal_error"
	codeUnavailable model.ErrorCode = "unavailable"
)

type profileResponse struct {
	SubjectID    string        `json:"subject_id"`
	Profile      model.Profile `json:"profile"`
	Completeness float64       `json:"completeness"`
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*profile.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := s.deps.Sessions.Open(r.Context(), id)
	if err != nil {
		zap.L().Error("api: open session", zap.String("subject", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "could not load profile")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	p := sess.Current()
	writeJSON(w, http.StatusOK, profileResponse{SubjectID: sess.SubjectID(), Profile: p, Completeness: profile.Completeness(p)})
}

// handlePatchProfile deep-merges a partial profile document over the live
// value. Arrays in the patch replace the stored arrays.
func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}

	var mergeErr error
	p := sess.Apply(func(cur model.Profile) model.Profile {
		base, err := profile.ToMap(cur)
		if err != nil {
			mergeErr = err
			return cur
		}
		next, err := profile.FromMap(profile.DeepMerge(base, patch))
		if err != nil {
			mergeErr = err
			return cur
		}
		return next
	})
	if mergeErr != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "patch does not match the profile schema")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{SubjectID: sess.SubjectID(), Profile: p, Completeness: profile.Completeness(p)})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Sessions.Close(r.Context(), id); err != nil {
		zap.L().Error("api: flush session", zap.String("subject", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "could not save profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUpload accepts either a multipart form with a "file" part or a raw
// body named by the filename query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (extraction.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return extraction.File{}, eris.Wrap(err, "api: read multipart file")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return extraction.File{}, eris.Wrap(err, "api: read upload")
		}
		return extraction.File{Name: hdr.Filename, Data: data}, nil
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		return extraction.File{}, eris.New("api: filename query parameter is required")
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return extraction.File{}, eris.Wrap(err, "api: read upload")
	}
	return extraction.File{Name: name, Data: data}, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	snap, err := s.deps.Jobs.Submit(id, file)
	if eris.Is(err, extraction.ErrJobInFlight) {
		writeJSON(w, http.StatusConflict, snap)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Jobs.Reconnect(chi.URLParam(r, "id")))
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	timeout := defaultWaitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "timeout must be a positive duration")
			return
		}
		timeout = min(d, maxWaitTimeout)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	// A wait that times out reports the still-running snapshot.
	snap, _ := s.deps.Jobs.Wait(ctx, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.deps.Jobs.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type applyResponse struct {
	profileResponse
	FileName         string   `json:"file_name"`
	Summary          string   `json:"summary"`
	TaggedFieldPaths []string `json:"tagged_field_paths"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}

	mi, err := s.deps.Jobs.Apply(id)
	if eris.Is(err, extraction.ErrNoReviewResult) {
		writeError(w, http.StatusConflict, codeConflict, "no extraction result awaiting review")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	var tagged []string
	p := sess.Apply(func(cur model.Profile) model.Profile {
		res := mi.Merge(cur)
		tagged = res.TaggedFieldPaths
		return res.Merged
	})
	if tagged == nil {
		tagged = []string{}
	}

	zap.L().Info("api: extraction applied",
		zap.String("subject", id),
		zap.String("file", mi.FileName),
		zap.Strings("paths", tagged),
	)
	writeJSON(w, http.StatusOK, applyResponse{
		profileResponse:  profileResponse{SubjectID: id, Profile: p, Completeness: profile.Completeness(p)},
		FileName:         mi.FileName,
		Summary:          mi.Summary,
		TaggedFieldPaths: tagged,
	})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.deps.Enricher == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "enrichment is not configured")
		return
	}
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if s.enrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.enrichTimeout)
		defer cancel()
	}

	result := s.deps.Enricher.RunAll(ctx, sess.Current(), func(update func(model.Profile) model.Profile) {
		sess.Apply(update)
	})

	if s.deps.Runs != nil {
		if _, err := s.deps.Runs.RecordRun(ctx, sess.SubjectID(), result); err != nil {
			zap.L().Warn("api: record enrichment run", zap.String("subject", sess.SubjectID()), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	runs, err := s.deps.Runs.ListRuns(r.Context(), chi.URLParam(r, "id"), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "could not list runs")
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

type confirmRequest struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Found    bool   `json:"found"`
}

func (s *Server) handleConfirmSocial(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Platform) == "" || strings.TrimSpace(req.Handle) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "platform and handle are required")
		return
	}
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	p := sess.Apply(enrich.ConfirmManualCheck(req.Platform, req.Handle, req.Found, s.now()))
	writeJSON(w, http.StatusOK, profileResponse{SubjectID: sess.SubjectID(), Profile: p, Completeness: profile.Completeness(p)})
}

type breachCheckRequest struct {
	Emails []string `json:"emails"`
}

type breachCheckResponse struct {
	Results map[string]hibp.Outcome `json:"results"`
	Found   int                     `json:"found"`
	Total   int                     `json:"total"`
}

func (s *Server) handleBreachCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Breaches == nil {
		writeError(w, http.StatusServiceUnavailable, model.ErrNoAPIKey, "breach lookups are not configured")
		return
	}
	var req breachCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Emails) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "emails are required")
		return
	}

	results := s.deps.Breaches.CheckMultiple(r.Context(), req.Emails, nil)
	resp := breachCheckResponse{Results: results, Total: len(results)}
	for _, out := range results {
		s.deps.Metrics.ObserveBreachCheck(out.Found, out.Code)
		if out.Found {
			resp.Found++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
