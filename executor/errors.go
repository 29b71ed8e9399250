package executor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/notargets/ltsched/taskgraph"
)

var (
	ErrMissingKernel   = errors.New("no kernel registered for task kind")
	ErrUnmetDependency = errors.New("task dependency has not completed")
)

// KernelError reports a failed kernel together with the position of the task
// in the list. No task is retried, the remainder of the step is abandoned.
type KernelError struct {
	Index            int
	Kind             taskgraph.Kind
	Level            int
	IntegrationPoint int
	Err              error
}

func (e *KernelError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("task %d %s at time level %d", e.Index, e.Kind, e.Level)
	if e.IntegrationPoint >= 0 {
		msg += fmt.Sprintf(", integration point %d", e.IntegrationPoint)
	}
	return msg + ": " + e.Err.Error()
}

func (e *KernelError) Unwrap() error { return e.Err }

func newKernelError(index int, task taskgraph.Task, err error) *KernelError {
	return &KernelError{
		Index:            index,
		Kind:             task.Kind,
		Level:            task.TimeLevel,
		IntegrationPoint: task.IntegrationPoint,
		Err:              err,
	}
}
