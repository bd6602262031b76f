package batch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// stubExecutor is a scriptable Executor for orchestrator tests. It records
// every dispatched id so tests can assert on the dispatch set.
type stubExecutor struct {
	apps     []api.Application
	listErr  error
	failIDs  map[string]error
	mu       sync.Mutex
	dispatch []string
}

func (s *stubExecutor) ListApplications(ctx context.Context) ([]api.Application, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.apps, nil
}

func (s *stubExecutor) PerformLifecycleOp(ctx context.Context, kind api.OperationKind, id string) error {
	s.mu.Lock()
	s.dispatch = append(s.dispatch, id)
	s.mu.Unlock()

	if err, ok := s.failIDs[id]; ok {
		return err
	}
	return nil
}

func (s *stubExecutor) dispatched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), s.dispatch...)
	sort.Strings(ids)
	return ids
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestRunMatchesAllWithEmptyPattern(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{
			{ID: "1", Name: "demo-a"},
			{ID: "2", Name: "demo-b"},
			{Labels: []string{"degraded"}}, // no id, no name: skipped
			{ID: "4"},
		},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalInInventory)
	assert.Equal(t, 3, summary.MatchedCount)
	assert.Len(t, summary.Successes, 3)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, []string{"1", "2", "4"}, executor.dispatched())
}

func TestRunPartialFailure(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{
			{ID: "a", Name: "svc-a"},
			{ID: "b", Name: "svc-b"},
			{ID: "c", Name: "svc-c"},
			{ID: "d", Name: "svc-d"},
			{ID: "e", Name: "svc-e"},
		},
		failIDs: map[string]error{
			"b": &CommandError{ID: "b", Message: "remote rejected"},
			"d": errors.New("transport reset"),
		},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStop, "svc-*")
	require.NoError(t, err)

	assert.Equal(t, 5, summary.MatchedCount)
	require.Len(t, summary.Successes, 3)
	require.Len(t, summary.Failures, 2)

	// Each bucket preserves dispatch order.
	assert.Equal(t, "a", summary.Successes[0].ID)
	assert.Equal(t, "c", summary.Successes[1].ID)
	assert.Equal(t, "e", summary.Successes[2].ID)
	assert.Equal(t, "b", summary.Failures[0].ID)
	assert.Equal(t, "d", summary.Failures[1].ID)

	assert.NotEmpty(t, summary.Failures[0].FailureDetail)
	assert.Equal(t, api.OutcomeFailure, summary.Failures[1].Status)
}

func TestRunFetchFailureAborts(t *testing.T) {
	executor := &stubExecutor{listErr: errors.New("401 unauthorized")}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "*")
	assert.Nil(t, summary)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Empty(t, executor.dispatched())
}

func TestRunCompileFailureAbortsBeforeDispatch(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{{ID: "1", Name: "demo-a"}},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "(unclosed")
	assert.Nil(t, summary)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "(unclosed", compileErr.Pattern)
	assert.Empty(t, executor.dispatched())
}

func TestRunEndToEndScenario(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{
			{ID: "1", Name: "demo-a"},
			{ID: "2", Name: "demo-b"},
			{ID: "3", Name: "prod-a"},
		},
		failIDs: map[string]error{
			"2": errors.New("deployment still in progress"),
		},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "demo-*")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalInInventory)
	assert.Equal(t, 2, summary.MatchedCount)
	require.Len(t, summary.Successes, 1)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "1", summary.Successes[0].ID)
	assert.Equal(t, "2", summary.Failures[0].ID)
	assert.NotContains(t, executor.dispatched(), "3")
}

func TestRunIsIdempotentOverStableInventory(t *testing.T) {
	apps := []api.Application{
		{ID: "1", Name: "eapi-dev"},
		{ID: "2", Name: "eapi-prod"},
		{ID: "3", Name: "other"},
	}

	first := &stubExecutor{apps: apps}
	_, err := NewOrchestrator(first, testLogger()).Run(context.Background(), api.OperationStop, "eapi-*")
	require.NoError(t, err)

	second := &stubExecutor{apps: apps}
	_, err = NewOrchestrator(second, testLogger()).Run(context.Background(), api.OperationStop, "eapi-*")
	require.NoError(t, err)

	assert.Equal(t, first.dispatched(), second.dispatched())
}

func TestRunDoesNotDeduplicateIDs(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{
			{ID: "1", Name: "demo-a"},
			{ID: "1", Name: "demo-a"},
		},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.MatchedCount)
	assert.Equal(t, []string{"1", "1"}, executor.dispatched())
}

func TestRunAppliesPredicates(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{
			{ID: "1", Name: "demo-a", Labels: []string{"canary"}},
			{ID: "2", Name: "demo-b"},
		},
	}
	orchestrator := NewOrchestrator(executor, testLogger()).
		WithPredicate(func(app api.Application) bool {
			for _, label := range app.Labels {
				if label == "canary" {
					return true
				}
			}
			return false
		})

	summary, err := orchestrator.Run(context.Background(), api.OperationStart, "demo-*")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalInInventory)
	assert.Equal(t, 1, summary.MatchedCount)
	assert.Equal(t, []string{"1"}, executor.dispatched())
}

func TestRunZeroMatchesIsNotAnError(t *testing.T) {
	executor := &stubExecutor{
		apps: []api.Application{{ID: "1", Name: "prod-a"}},
	}
	orchestrator := NewOrchestrator(executor, testLogger())

	summary, err := orchestrator.Run(context.Background(), api.OperationStop, "demo-*")
	require.NoError(t, err)

	assert.Equal(t, 0, summary.MatchedCount)
	assert.Empty(t, summary.Successes)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, executor.dispatched())
}
