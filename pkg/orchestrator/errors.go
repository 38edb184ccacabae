package orchestrator

import "fmt"

// ExecutionError reports a failed run. StepIndex is -1 outside a workflow
// step.
type ExecutionError struct {
	Component string
	StepIndex int
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.StepIndex >= 0 {
		return fmt.Sprintf("run of %q failed at step %d: %v", e.Component, e.StepIndex, e.Err)
	}
	return fmt.Sprintf("run of %q failed: %v", e.Component, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
