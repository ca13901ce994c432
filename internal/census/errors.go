package census

import (
	"errors"
	"fmt"
)

// ErrMissingColumns reports a header without one of the required columns.
var ErrMissingColumns = errors.New("census: required columns missing")

// LoadError reports a census source that could not be read or lacks the
// required columns. Callers decide whether to stop or continue with an
// empty table.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("census: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is, or wraps, a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
