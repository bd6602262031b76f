package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// Manager persists one record per completed orchestration run. The
// orchestrator itself holds no state between runs; history is written by the
// caller after a run completes.
type Manager struct {
	db       *sql.DB
	logger   *logrus.Logger
	runMutex sync.Mutex
}

// NewManager creates a new run history manager backed by SQLite
func NewManager(dataDir string, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Open database
	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize database
	if err := initializeDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the history manager
func (m *Manager) Close() error {
	return m.db.Close()
}

// initializeDatabase initializes the database schema
func initializeDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			pattern TEXT NOT NULL,
			total_count INTEGER NOT NULL,
			matched_count INTEGER NOT NULL,
			success_count INTEGER NOT NULL,
			failure_count INTEGER NOT NULL,
			summary TEXT NOT NULL,
			started_at INTEGER NOT NULL
		)
	`)
	return err
}

// RecordRun saves one completed run and returns its record
func (m *Manager) RecordRun(kind api.OperationKind, pattern string, summary *api.BatchSummary, startedAt time.Time) (*api.RunRecord, error) {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()

	encoded, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	record := &api.RunRecord{
		ID:           uuid.New().String(),
		Operation:    kind,
		Pattern:      pattern,
		TotalCount:   summary.TotalInInventory,
		MatchedCount: summary.MatchedCount,
		SuccessCount: len(summary.Successes),
		FailureCount: len(summary.Failures),
		Summary:      string(encoded),
		StartedAt:    startedAt,
	}

	_, err = m.db.Exec(
		`INSERT INTO runs (
			id, operation, pattern, total_count, matched_count,
			success_count, failure_count, summary, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.Operation), record.Pattern,
		record.TotalCount, record.MatchedCount,
		record.SuccessCount, record.FailureCount,
		record.Summary, record.StartedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"run_id":    record.ID,
		"operation": kind,
		"matched":   record.MatchedCount,
	}).Debug("Recorded run")

	return record, nil
}

// ListRuns returns the most recent runs, newest first
func (m *Manager) ListRuns(limit int) ([]*api.RunRecord, error) {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := m.db.Query(`
		SELECT id, operation, pattern, total_count, matched_count,
			success_count, failure_count, summary, started_at
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*api.RunRecord
	for rows.Next() {
		var record api.RunRecord
		var operation string
		var startedAt int64
		err := rows.Scan(
			&record.ID, &operation, &record.Pattern,
			&record.TotalCount, &record.MatchedCount,
			&record.SuccessCount, &record.FailureCount,
			&record.Summary, &startedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		record.Operation = api.OperationKind(operation)
		record.StartedAt = time.Unix(startedAt, 0)
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return records, nil
}
