package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsha256/anypoint-automation-utils/internal/batch"
	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// MockPlatformExecutor is a scriptable in-memory executor for tests. It
// records every lifecycle call so tests can assert on the dispatch set.
type MockPlatformExecutor struct {
	logger   *logrus.Logger
	mu       sync.Mutex
	apps     []api.Application
	listErr  error
	failures map[string]string
	latency  time.Duration
	calls    []string
}

// NewMockPlatformExecutor creates a new mock executor
func NewMockPlatformExecutor(logger *logrus.Logger) *MockPlatformExecutor {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.ErrorLevel)
	}

	return &MockPlatformExecutor{
		logger:   logger,
		failures: make(map[string]string),
	}
}

// WithApplications sets the inventory returned by ListApplications
func (m *MockPlatformExecutor) WithApplications(apps ...api.Application) *MockPlatformExecutor {
	m.apps = apps
	return m
}

// WithListError makes ListApplications fail
func (m *MockPlatformExecutor) WithListError(err error) *MockPlatformExecutor {
	m.listErr = err
	return m
}

// WithFailure makes lifecycle commands against the given id fail
func (m *MockPlatformExecutor) WithFailure(id, message string) *MockPlatformExecutor {
	m.failures[id] = message
	return m
}

// WithLatency adds a fixed delay to every lifecycle command
func (m *MockPlatformExecutor) WithLatency(latency time.Duration) *MockPlatformExecutor {
	m.latency = latency
	return m
}

// ListApplications mocks the inventory fetch
func (m *MockPlatformExecutor) ListApplications(ctx context.Context) ([]api.Application, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	m.logger.WithField("count", len(m.apps)).Debug("Mock: Listed applications")
	return m.apps, nil
}

// PerformLifecycleOp mocks one lifecycle command
func (m *MockPlatformExecutor) PerformLifecycleOp(ctx context.Context, kind api.OperationKind, id string) error {
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.mu.Unlock()

	if message, ok := m.failures[id]; ok {
		return &batch.CommandError{ID: id, Message: message}
	}

	m.logger.WithFields(logrus.Fields{
		"app_id":    id,
		"operation": kind,
	}).Debug("Mock: Performed lifecycle operation")
	return nil
}

// Calls returns the ids of every dispatched lifecycle command
func (m *MockPlatformExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
