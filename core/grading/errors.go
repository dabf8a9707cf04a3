package grading

import (
	"fmt"

	"github.com/pkg/errors"
)

// collaborators of the grading service
const (
	SourceCatalog = "catalog"
	SourceGrades  = "grades"
	SourceRoster  = "roster"
)

var ErrNothingToSave = errors.New("nothing to save")

// UpstreamError reports a failed fetch from a collaborator.
// It is logged at the service boundary and degraded to "no data"; it never reaches callers.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func IsUpstreamUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*UpstreamError)
	return ok
}

// EmptyBatchError is returned when no record of an ingestion batch passed validation.
// Nothing was committed.
type EmptyBatchError struct {
	Rejections []Rejection
}

func (e *EmptyBatchError) Error() string {
	return fmt.Sprintf("%s: %d record(s) rejected", ErrNothingToSave, len(e.Rejections))
}

func (e *EmptyBatchError) Unwrap() error {
	return ErrNothingToSave
}

func IsEmptyBatch(err error) bool {
	_, ok := errors.Cause(err).(*EmptyBatchError)
	return ok
}
