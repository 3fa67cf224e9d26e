package domain

import (
	"context"
	"errors"
)

// ErrorKind classifies a stage failure for retry decisions.
type ErrorKind string

const (
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindRateLimited ErrorKind = "rate-limited"
	ErrorKindServer      ErrorKind = "server"
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind are eligible for automatic
// re-attempt. Unknown is deliberately non-retryable so bugs are not masked as
// transient failures.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindNetwork, ErrorKindTimeout, ErrorKindRateLimited, ErrorKindServer:
		return true
	default:
		return false
	}
}

// StageError carries an error classification alongside the underlying cause.
type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func NewStageError(kind ErrorKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

func NetworkError(err error) *StageError     { return NewStageError(ErrorKindNetwork, err) }
func TimeoutError(err error) *StageError     { return NewStageError(ErrorKindTimeout, err) }
func RateLimitedError(err error) *StageError { return NewStageError(ErrorKindRateLimited, err) }
func ServerError(err error) *StageError      { return NewStageError(ErrorKindServer, err) }
func ValidationError(err error) *StageError  { return NewStageError(ErrorKindValidation, err) }

// Classify maps an arbitrary stage error to its kind. Unclassified errors
// fall back to unknown.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindUnknown
}
