package reconciler

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned when the observed object lacks a field required
// to address the status patch. Retrying the same object cannot fix it.
var ErrMissingField = errors.New("missing required field")

// WriteFailedError wraps a failed status write. It is always retryable.
type WriteFailedError struct {
	Namespace string
	Name      string
	Err       error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("patching status of %s/%s: %v", e.Namespace, e.Name, e.Err)
}

func (e *WriteFailedError) Unwrap() error {
	return e.Err
}
