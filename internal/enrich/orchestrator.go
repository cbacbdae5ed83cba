package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/pkg/brokers"
	"github.com/sells-group/profile-cli/pkg/companies"
	"github.com/sells-group/profile-cli/pkg/geocode"
	"github.com/sells-group/profile-cli/pkg/hibp"
	"github.com/sells-group/profile-cli/pkg/social"
)

// UpdateFunc commits a functional update against the current profile value.
// The orchestrator never persists anything itself.
type UpdateFunc func(update func(model.Profile) model.Profile)

// Clients are the providers the orchestrator calls. A nil client skips its
// task group.
type Clients struct {
	Geocoder  geocode.Client
	Breaches  hibp.Client
	Social    social.Client
	Companies companies.Client
	Brokers   *brokers.Catalog
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics instruments the orchestrator.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the time source used for verification stamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs the enrichment task groups over a profile.
type Orchestrator struct {
	clients Clients
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates an Orchestrator.
func New(clients Clients, opts ...Option) *Orchestrator {
	o := &Orchestrator{clients: clients, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the counters and failures of one RunAll call.
type run struct {
	ctx     context.Context
	apply   UpdateFunc
	now     time.Time
	metrics *metrics.Metrics
	log     *zap.Logger
	result  model.EnrichmentRunResult
	errs    *multierror.Error
}

// RunAll executes the task groups strictly in sequence over snapshot,
// committing each item's result through apply. It always returns a result;
// item failures and panics are counted, never propagated.
func (o *Orchestrator) RunAll(ctx context.Context, snapshot model.Profile, apply UpdateFunc) model.EnrichmentRunResult {
	start := o.now()
	r := &run{
		ctx:     ctx,
		apply:   apply,
		now:     start,
		metrics: o.metrics,
		log:     zap.L().With(zap.String("subject", snapshot.Identity.FullName)),
	}
	r.log.Info("enrich: starting run")

	groups := []struct {
		task    model.EnrichmentTask
		enabled bool
		fn      func(*run, model.Profile)
	}{
		{model.TaskGeocode, o.clients.Geocoder != nil, o.geocodeAddresses},
		{model.TaskBreach, o.clients.Breaches != nil, o.checkBreaches},
		{model.TaskSocial, o.clients.Social != nil, o.verifySocials},
		{model.TaskCompany, o.clients.Companies != nil, o.lookupCompany},
		{model.TaskBrokers, o.clients.Brokers != nil, o.generateBrokers},
	}
	for _, g := range groups {
		if !g.enabled {
			r.log.Debug("enrich: no client configured, skipping", zap.String("task", string(g.task)))
			continue
		}
		if ctx.Err() != nil {
			r.log.Warn("enrich: context done, stopping run", zap.Error(ctx.Err()))
			break
		}
		g.fn(r, snapshot)
	}

	r.result.Summary = Summarize(r.result)
	o.metrics.ObserveEnrichRun(o.now().Sub(start))

	if err := r.errs.ErrorOrNil(); err != nil {
		r.log.Warn("enrich: run finished with failures",
			zap.Int("errors", r.result.Errors),
			zap.Error(err),
		)
	} else {
		r.log.Info("enrich: run finished", zap.String("summary", r.result.Summary))
	}
	return r.result
}

// item runs fn for one element of a task group. It reports whether the
// group should stop, which happens when the provider has no credentials.
func (r *run) item(task model.EnrichmentTask, name string, fn func() model.Failure) (stop bool) {
	if r.ctx.Err() != nil {
		return true
	}

	f := safely(fn)
	r.metrics.ObserveEnrichItem(task, f.Code)
	if !f.Failed() {
		return false
	}

	r.result.Errors++
	r.result.Failures = append(r.result.Failures, model.TaskFailure{
		Task:    task,
		Item:    name,
		Code:    f.Code,
		Message: f.Message,
	})
	r.errs = multierror.Append(r.errs, eris.Errorf("enrich: %s %q: %s: %s", task, name, f.Code, f.Message))
	r.log.Debug("enrich: item failed",
		zap.String("task", string(task)),
		zap.String("item", name),
		zap.String("code", string(f.Code)),
	)

	if f.Code == model.ErrNoAPIKey {
		r.log.Warn("enrich: provider not configured, skipping remaining items", zap.String("task", string(task)))
		return true
	}
	return false
}

func safely(fn func() model.Failure) (f model.Failure) {
	defer func() {
		if rec := recover(); rec != nil {
			f = model.Fail(model.ErrProvider, fmt.Sprintf("panic: %v", rec))
		}
	}()
	return fn()
}
