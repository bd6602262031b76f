package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, manager.Close())
	})

	return manager
}

func sampleSummary() *api.BatchSummary {
	return &api.BatchSummary{
		TotalInInventory: 3,
		MatchedCount:     2,
		Successes: []api.OperationOutcome{
			{ID: "1", Name: "demo-a", Status: api.OutcomeSuccess},
		},
		Failures: []api.OperationOutcome{
			{ID: "2", Name: "demo-b", Status: api.OutcomeFailure, FailureDetail: "rejected"},
		},
	}
}

func TestRecordRun(t *testing.T) {
	manager := newTestManager(t)

	record, err := manager.RecordRun(api.OperationStart, "demo-*", sampleSummary(), time.Now())
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, api.OperationStart, record.Operation)
	assert.Equal(t, "demo-*", record.Pattern)
	assert.Equal(t, 3, record.TotalCount)
	assert.Equal(t, 2, record.MatchedCount)
	assert.Equal(t, 1, record.SuccessCount)
	assert.Equal(t, 1, record.FailureCount)
	assert.Contains(t, record.Summary, `"demo-b"`)
}

func TestListRuns(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.RecordRun(api.OperationStart, "demo-*", sampleSummary(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	second, err := manager.RecordRun(api.OperationStop, "", sampleSummary(), time.Now())
	require.NoError(t, err)

	records, err := manager.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
	assert.Equal(t, api.OperationStop, records[0].Operation)
}

func TestListRunsLimit(t *testing.T) {
	manager := newTestManager(t)

	for i := 0; i < 5; i++ {
		_, err := manager.RecordRun(api.OperationStart, "*", sampleSummary(), time.Now())
		require.NoError(t, err)
	}

	records, err := manager.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestListRunsEmpty(t *testing.T) {
	manager := newTestManager(t)

	records, err := manager.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
