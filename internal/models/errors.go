package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSourcesValidated is returned when every configured source failed validation
	ErrNoSourcesValidated = errors.New("no sources passed validation")

	// ErrCycleInProgress is returned when a source is already collecting
	ErrCycleInProgress = errors.New("collection cycle already in progress")

	// ErrUnknownSource is returned for a source that was not validated or registered
	ErrUnknownSource = errors.New("unknown source")
)

// SourceError carries the source type and operation a failure happened in
type SourceError struct {
	SourceType SourceType
	Op         string // "validate", "collect", "read", ...
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.SourceType, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err with source context
func NewSourceError(sourceType SourceType, op string, err error) error {
	return &SourceError{SourceType: sourceType, Op: op, Err: err}
}

// PushError is a non-2xx answer from the ingestion endpoint
type PushError struct {
	StatusCode int
	Body       string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("ingest returned %d: %s", e.StatusCode, e.Body)
}
