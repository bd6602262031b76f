package api

import (
	"encoding/json"
	"time"
)

// OperationKind represents a lifecycle operation issued against an application
type OperationKind string

const (
	// OperationStart starts a deployed application
	OperationStart OperationKind = "start"
	// OperationStop stops a deployed application
	OperationStop OperationKind = "stop"
)

// Valid reports whether the operation kind is one the platform understands
func (k OperationKind) Valid() bool {
	return k == OperationStart || k == OperationStop
}

// Application represents one deployed application as reported by the
// platform inventory. Listings from older platform versions name the
// display-name field inconsistently, so decoding accepts both "name" and
// "applicationName".
type Application struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// DisplayName returns the name used for pattern matching: the display name,
// falling back to the identifier, falling back to the empty string.
func (a Application) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Usable reports whether the record carries enough identity to be acted on.
// Degraded listings can produce records with neither an id nor a name; those
// are skipped, never dispatched.
func (a Application) Usable() bool {
	return a.ID != "" || a.Name != ""
}

// UnmarshalJSON decodes an application record, accepting the legacy
// "applicationName" field when "name" is absent.
func (a *Application) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              string   `json:"id"`
		Name            string   `json:"name"`
		ApplicationName string   `json:"applicationName"`
		Labels          []string `json:"labels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.ID = raw.ID
	a.Name = raw.Name
	if a.Name == "" {
		a.Name = raw.ApplicationName
	}
	a.Labels = raw.Labels

	return nil
}

// OutcomeStatus represents the terminal status of one lifecycle command
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the lifecycle command was accepted
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailure indicates the lifecycle command failed
	OutcomeFailure OutcomeStatus = "failure"
)

// OperationOutcome represents the result of one attempted lifecycle command
type OperationOutcome struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Status        OutcomeStatus `json:"status"`
	FailureDetail string        `json:"failure_detail,omitempty"`
}

// BatchSummary represents the aggregate result of one orchestration run
type BatchSummary struct {
	TotalInInventory int                `json:"total_in_inventory"`
	MatchedCount     int                `json:"matched_count"`
	Successes        []OperationOutcome `json:"successes"`
	Failures         []OperationOutcome `json:"failures"`
}

// RunRecord represents one completed orchestration run in the history store
type RunRecord struct {
	ID           string        `json:"id"`
	Operation    OperationKind `json:"operation"`
	Pattern      string        `json:"pattern"`
	TotalCount   int           `json:"total_count"`
	MatchedCount int           `json:"matched_count"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Summary      string        `json:"summary"`
	StartedAt    time.Time     `json:"started_at"`
}

// Error represents an API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
