package cli

import (
	"errors"
	"fmt"
)

// ExitError carries a process exit code out of a cobra RunE function.
// Commands return one instead of calling os.Exit, so [RunWithConfig] can
// surface the code in an [ExecuteResult] and tests can assert on it.
type ExitError struct {
	Code int
}

// Error formats as "exit status N", matching os/exec.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError returns an [ExitError] for the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError extracts the code from an [ExitError]. It reports
// (0, false) for nil or any other error type.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
