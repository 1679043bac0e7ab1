// Package vkerrors implements the core's error taxonomy: Configuration,
// I/O, Parse, Internal, QualityGate, and Cancelled. Each kind carries a
// human-readable message and wraps its underlying cause for
// errors.Is/As.
package vkerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the machine-readable error tag.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindIO            Kind = "io"
	KindParse         Kind = "parse"
	KindInternal      Kind = "internal"
	KindQualityGate   Kind = "quality_gate"
	KindCancelled     Kind = "cancelled"
)

// Error is the single concrete error type the core returns. Every
// constructor below produces one of these with its Kind set
// appropriately; one type covers all six kinds since they share the
// same fields (message, optional path, optional underlying cause).
type Error struct {
	Kind       Kind
	Operation  string
	Path       string // file path or config field, when applicable
	Underlying error
	Timestamp  time.Time
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Underlying)
}

// Unwrap supports errors.Is/As against the underlying cause.
func (e *Error) Unwrap() error { return e.Underlying }

func newErr(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Operation: op, Path: path, Underlying: err, Timestamp: time.Now()}
}

// Configuration wraps a missing or invalid configuration setting.
// Never retried; surfaced directly to the caller.
func Configuration(field string, err error) *Error {
	return newErr(KindConfiguration, "configuration", field, err)
}

// IO wraps a file read/write or cache-persistence failure. Recoverable
// when the underlying cause is a missing cache path — callers should
// inspect Underlying with errors.Is(err, os.ErrNotExist) to decide.
func IO(op, path string, err error) *Error {
	return newErr(KindIO, op, path, err)
}

// Parse wraps a single file's parse failure. A parse failure never
// aborts the run — the caller logs it and continues, reporting the
// file in AnalysisResults.Warnings.
func Parse(path string, err error) *Error {
	return newErr(KindParse, "parse", path, err)
}

// Internal wraps an invariant violation (e.g. an empty partitioning
// result when nodes exist). Always fatal.
func Internal(op string, err error) *Error {
	return newErr(KindInternal, op, "", err)
}

// QualityGate wraps a non-fatal quality-gate evaluation failure. The
// gate result itself (violations) is not an error; this kind is only
// used if evaluating the gate itself fails (e.g. malformed thresholds).
func QualityGate(op string, err error) *Error {
	return newErr(KindQualityGate, op, "", err)
}

// Cancelled marks a cooperative-cancellation short circuit.
func Cancelled(stage string) *Error {
	return newErr(KindCancelled, stage, "", fmt.Errorf("cancelled"))
}

// IsCancelled reports whether err is (or wraps) a Cancelled error.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindCancelled
}

// Multi aggregates independent errors from parallel work (e.g. per-file
// parse failures collected across a directory walk) into one error
// value without losing any of them.
type Multi struct {
	Errors []error
}

// NewMulti filters out nils and wraps the rest.
func NewMulti(errs []error) *Multi {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &Multi{Errors: filtered}
}

func (m *Multi) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(m.Errors), m.Errors)
	}
}

func (m *Multi) Unwrap() []error { return m.Errors }

// HasErrors reports whether m contains any error after filtering nils.
func (m *Multi) HasErrors() bool { return len(m.Errors) > 0 }
