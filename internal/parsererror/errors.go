// Package parsererror defines the error taxonomy of the ingestion pipeline.
// Row-local problems never surface as Go errors; they are attached to the
// affected candidate. The types here cover field parsing, preconditions,
// malformed uploads and per-row commit failures.
package parsererror

import (
	"errors"
	"fmt"
)

// Precondition sentinels. They are wrapped by ValidationError.
var (
	ErrMissingMapping      = errors.New("required column mapping missing")
	ErrInvalidMapping      = errors.New("column mapping is inconsistent")
	ErrNoTargetAccount     = errors.New("no target account selected")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountTypeMismatch = errors.New("account type does not match")
	ErrEmptyUpload         = errors.New("upload contains no rows")
)

// ParseError represents a field that could not be normalized.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is a precondition failure: the whole batch is refused before
// any row is processed.
type ValidationError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s refused: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s refused: %v: %s", e.Operation, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidFormatError means the upload itself is unusable (undecodable bytes,
// broken quoting, not a PDF). No partial parse is attempted.
type InvalidFormatError struct {
	FilePath             string
	ExpectedFormat       string
	ActualContentSnippet string
	Msg                  string
	Err                  error
}

func (e *InvalidFormatError) Error() string {
	file := e.FilePath
	if file == "" {
		file = "<upload>"
	}
	msg := fmt.Sprintf("invalid format in file '%s': %s. Expected: %s", file, e.Msg, e.ExpectedFormat)
	if e.ActualContentSnippet != "" {
		msg += fmt.Sprintf(". Content snippet: '%s'", e.ActualContentSnippet)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *InvalidFormatError) Unwrap() error {
	return e.Err
}

// CommitError records a persistence failure for one row of a batch.
type CommitError struct {
	AccountID string
	Index     int
	Stage     string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("row %d of account %s: %s failed: %v", e.Index, e.AccountID, e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is a precondition failure.
func IsPrecondition(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvalidFormat reports whether err means the upload is unusable.
func IsInvalidFormat(err error) bool {
	var f *InvalidFormatError
	return errors.As(err, &f)
}
