package scripting

import (
	"errors"
	"fmt"
)

// Sentinel errors for the execution core. Errors raised by snippet code are
// reported as console lines and never returned from RunCode; these sentinels
// classify how an Execution ended, and ErrRuntimeStopped is the one host
// failure RunCode returns.
var (
	ErrExecution      = errors.New("execution error")
	ErrTransform      = errors.New("transform error")
	ErrAsyncRejection = errors.New("async rejection")
	ErrTimeout        = errors.New("execution timed out")
	ErrCanceled       = errors.New("execution canceled")
	ErrRuntimeStopped = errors.New("runtime stopped")
	ErrEntryNotFound  = errors.New("inspector entry not found")
)

// ExecutionError is a failure of snippet code, recovered at the execution
// boundary. Kind is one of the sentinels above.
type ExecutionError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's Kind.
func (e *ExecutionError) Is(target error) bool {
	return target == e.Kind
}
