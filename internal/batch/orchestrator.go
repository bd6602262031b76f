package batch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devsha256/anypoint-automation-utils/internal/match"
	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// Executor performs inventory fetches and lifecycle commands against the
// remote platform. Any implementation satisfying this contract is
// interchangeable: the subprocess-backed executor, an HTTP client, or a mock.
type Executor interface {
	ListApplications(ctx context.Context) ([]api.Application, error)
	PerformLifecycleOp(ctx context.Context, kind api.OperationKind, id string) error
}

// Predicate is an optional caller-supplied filter applied to records that
// already passed pattern matching, e.g. a label filter.
type Predicate func(app api.Application) bool

// Orchestrator coordinates batch lifecycle runs: it fetches the inventory,
// matches records against a pattern, fans out one concurrent lifecycle
// command per candidate, and folds the outcomes into a summary. It holds no
// state between runs; every run starts from a fresh inventory fetch.
type Orchestrator struct {
	executor   Executor
	logger     *logrus.Logger
	predicates []Predicate
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(executor Executor, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Orchestrator{
		executor: executor,
		logger:   logger,
	}
}

// WithPredicate adds a record predicate evaluated after pattern matching
func (o *Orchestrator) WithPredicate(predicate Predicate) *Orchestrator {
	o.predicates = append(o.predicates, predicate)
	return o
}

// Run executes one batch lifecycle operation. It returns an error only when
// the run itself aborts: *FetchError when the inventory cannot be retrieved,
// *CompileError when the pattern is invalid. Individual command failures are
// captured as failure outcomes in the returned summary, never as an error.
func (o *Orchestrator) Run(ctx context.Context, kind api.OperationKind, pattern string) (*api.BatchSummary, error) {
	log := o.logger.WithFields(logrus.Fields{
		"operation": kind,
		"pattern":   pattern,
	})
	log.Info("Starting batch lifecycle run")

	inventory, err := o.executor.ListApplications(ctx)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	matcher, err := match.Compile(pattern)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	candidates := o.filterCandidates(inventory, matcher)
	log.WithFields(logrus.Fields{
		"total":   len(inventory),
		"matched": len(candidates),
	}).Info("Resolved candidates from inventory")

	outcomes := o.dispatch(ctx, kind, candidates)

	summary := &api.BatchSummary{
		TotalInInventory: len(inventory),
		MatchedCount:     len(candidates),
		Successes:        []api.OperationOutcome{},
		Failures:         []api.OperationOutcome{},
	}
	for _, outcome := range outcomes {
		if outcome.Status == api.OutcomeSuccess {
			summary.Successes = append(summary.Successes, outcome)
		} else {
			summary.Failures = append(summary.Failures, outcome)
		}
	}

	log.WithFields(logrus.Fields{
		"succeeded": len(summary.Successes),
		"failed":    len(summary.Failures),
	}).Info("Batch lifecycle run completed")

	return summary, nil
}

// filterCandidates selects the inventory records to dispatch, preserving
// inventory order. Records with neither an id nor a name are skipped
// silently; they count toward the inventory total only.
func (o *Orchestrator) filterCandidates(inventory []api.Application, matcher match.Matcher) []api.Application {
	var candidates []api.Application
	for _, app := range inventory {
		if !app.Usable() {
			o.logger.WithField("labels", app.Labels).Debug("Skipping record without id or name")
			continue
		}
		if !matcher(app) {
			continue
		}
		if !o.acceptedByPredicates(app) {
			continue
		}
		candidates = append(candidates, app)
	}
	return candidates
}

func (o *Orchestrator) acceptedByPredicates(app api.Application) bool {
	for _, predicate := range o.predicates {
		if !predicate(app) {
			return false
		}
	}
	return true
}

// dispatch issues one lifecycle command per candidate, all concurrently.
// Each goroutine writes into its own outcome slot, so outcomes retain
// dispatch order and no shared state is mutated. A failed command never
// cancels or delays the others; dispatch returns once every command settled.
func (o *Orchestrator) dispatch(ctx context.Context, kind api.OperationKind, candidates []api.Application) []api.OperationOutcome {
	outcomes := make([]api.OperationOutcome, len(candidates))

	var wg sync.WaitGroup
	for i, app := range candidates {
		wg.Add(1)
		go func(i int, app api.Application) {
			defer wg.Done()

			outcome := api.OperationOutcome{
				ID:     app.ID,
				Name:   app.DisplayName(),
				Status: api.OutcomeSuccess,
			}

			if err := o.executor.PerformLifecycleOp(ctx, kind, app.ID); err != nil {
				o.logger.WithFields(logrus.Fields{
					"app_id":    app.ID,
					"operation": kind,
				}).WithError(err).Error("Lifecycle command failed")

				outcome.Status = api.OutcomeFailure
				outcome.FailureDetail = err.Error()
			}

			outcomes[i] = outcome
		}(i, app)
	}
	wg.Wait()

	return outcomes
}
