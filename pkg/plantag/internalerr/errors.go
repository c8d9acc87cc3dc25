package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrHardInput aborts processing of a single item (empty tag, absent
	// mandatory dependency). Sibling items are unaffected.
	ErrHardInput = errors.New("hard input error")

	// ErrConfiguration marks a broken registry set. It is fatal for a run.
	ErrConfiguration = errors.New("configuration error")

	// ErrConsistency marks a disposition bucket that contradicts its own
	// eligibility flags.
	ErrConsistency = errors.New("consistency error")

	// ErrStructural marks a recoverable structural finding on a tag.
	ErrStructural = errors.New("structural warning")
)

// StageError ties a failure to the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Recovered converts a recovered panic value into a StageError.
func Recovered(stage string, v any) *StageError {
	if err, ok := v.(error); ok {
		return &StageError{Stage: stage, Err: err}
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", v)}
}
