package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/sieve/internal/term"
)

// RunError represents a failure detected while executing a Run.
//
// Run errors include:
//   - Invalid mask: nil, or with no columns
//   - Missing column: the loader did not return a requested column
//   - Insufficient history: the loader holds fewer rows than the run needs
//   - Column mismatch: a loaded column has the wrong shape or dtype
//   - Compute failed: a term's ComputeFromArrays returned an error
//   - Bad output: a term returned an array of the wrong shape or dtype
//   - Cache failed: the ResultCache returned an error
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// Term describes the affected term, if any.
	Term string

	// Column names the affected loader column, if any.
	Column string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	ErrCodeInvalidMask         RunErrorCode = "INVALID_MASK"
	ErrCodeMissingColumn       RunErrorCode = "MISSING_COLUMN"
	ErrCodeInsufficientHistory RunErrorCode = "INSUFFICIENT_HISTORY"
	ErrCodeColumnMismatch      RunErrorCode = "COLUMN_MISMATCH"
	ErrCodeComputeFailed       RunErrorCode = "COMPUTE_FAILED"
	ErrCodeBadOutput           RunErrorCode = "BAD_OUTPUT"
	ErrCodeCacheFailed         RunErrorCode = "CACHE_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Term != "":
		msg += fmt.Sprintf(" (term=%s)", e.Term)
	case e.Column != "":
		msg += fmt.Sprintf(" (column=%s)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// Code returns the RunErrorCode of err, or "" if err is not a RunError.
func Code(err error) RunErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsMissingColumn reports whether err is a missing column error.
func IsMissingColumn(err error) bool { return Code(err) == ErrCodeMissingColumn }

// IsInsufficientHistory reports whether err is an insufficient history error.
func IsInsufficientHistory(err error) bool { return Code(err) == ErrCodeInsufficientHistory }

// IsComputeFailed reports whether err is a term compute failure. The term's
// own error is available through errors.As / errors.Is.
func IsComputeFailed(err error) bool { return Code(err) == ErrCodeComputeFailed }

func newMissingColumnError(column string) *RunError {
	return &RunError{
		Code:    ErrCodeMissingColumn,
		Message: "loader returned no data for column",
		Column:  column,
	}
}

// NewInsufficientHistoryError reports a loader column holding fewer rows
// than a run requested. Loader implementations return it.
func NewInsufficientHistoryError(column string, have, want int) *RunError {
	return &RunError{
		Code:    ErrCodeInsufficientHistory,
		Message: fmt.Sprintf("column has %d rows, run needs %d", have, want),
		Column:  column,
		Details: map[string]string{
			"have": fmt.Sprintf("%d", have),
			"want": fmt.Sprintf("%d", want),
		},
	}
}

func newColumnMismatchError(column, message string) *RunError {
	return &RunError{
		Code:    ErrCodeColumnMismatch,
		Message: message,
		Column:  column,
	}
}

func newComputeError(t term.Term, err error) *RunError {
	return &RunError{
		Code:    ErrCodeComputeFailed,
		Message: "term computation failed",
		Term:    term.Describe(t),
		Err:     err,
	}
}

func newBadOutputError(t term.Term, message string) *RunError {
	return &RunError{
		Code:    ErrCodeBadOutput,
		Message: message,
		Term:    term.Describe(t),
	}
}

func newCacheError(t term.Term, op string, err error) *RunError {
	return &RunError{
		Code:    ErrCodeCacheFailed,
		Message: "result cache " + op + " failed",
		Term:    term.Describe(t),
		Err:     err,
	}
}
