package batch

import "fmt"

// CompileError indicates the supplied pattern could not be compiled. The run
// aborts before any inventory record is dispatched.
type CompileError struct {
	Pattern string
	Err     error
}

// Error returns the error message
func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying compilation error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// FetchError indicates the application inventory could not be retrieved.
// The run aborts with no partial summary.
type FetchError struct {
	Err error
}

// Error returns the error message
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch application inventory: %v", e.Err)
}

// Unwrap returns the underlying fetch error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// CommandError indicates one candidate's lifecycle command failed. It is
// recorded as a failure outcome in the summary and never aborts the run.
type CommandError struct {
	ID      string
	Message string
}

// Error returns the error message
func (e *CommandError) Error() string {
	return fmt.Sprintf("lifecycle command failed for %s: %s", e.ID, e.Message)
}
