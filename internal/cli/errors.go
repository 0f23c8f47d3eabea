package cli

import (
	"errors"
	"fmt"

	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/task"
)

// Process exit codes.
const (
	ExitGeneric    = 1
	ExitValidation = 2
	ExitFailedTask = 3
)

// ExitError carries a specific exit code to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// failedTasksError reports that at least one task did not succeed.
func failedTasksError(failed, total int) error {
	return &ExitError{Code: ExitFailedTask, Err: fmt.Errorf("%d of %d task(s) did not succeed", failed, total)}
}

var validationErrors = []error{
	task.ErrEmptyTask,
	task.ErrEmptyBatch,
	task.ErrNoModel,
	task.ErrStepBudget,
	provider.ErrUnknownProvider,
	reporter.ErrUnknownLocale,
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return ExitValidation
		}
	}
	return ExitGeneric
}
