package annotate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a malformed colour, annotation record, prompt
	// answer or option value.
	ErrInvalidInput = errors.New("annotate: invalid input")

	// ErrPageOutOfRange is returned when a page number lies outside
	// [1, total pages].
	ErrPageOutOfRange = errors.New("annotate: page out of range")
)

// CommitError identifies the annotation that aborted a commit.
type CommitError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit annotation %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
