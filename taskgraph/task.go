package taskgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	// NoTask marks an unused dependency slot and an index table entry
	// without a task
	NoTask          = -1
	MaxDependencies = 5
)

var ErrInvalidTaskList = errors.New("invalid task list")

// Task is one phase of the schedule, applied to one time level.
// IntegrationPoint is -1 for tasks that are not tied to a time
// integration point.
type Task struct {
	Kind               Kind
	TimeLevel          int
	Dependencies       [MaxDependencies]int
	IntegrationPoint   int
	SecondHalfInterval bool
	SubStep            int
}

// NewTask pads the dependency slots with NoTask. More than MaxDependencies
// predecessors is a programming error.
func NewTask(kind Kind, level int, deps ...int) (t Task) {
	if len(deps) > MaxDependencies {
		panic(fmt.Errorf("task %s has %d dependencies, at most %d are allowed",
			kind, len(deps), MaxDependencies))
	}
	t = Task{Kind: kind, TimeLevel: level, IntegrationPoint: -1}
	for i := range t.Dependencies {
		t.Dependencies[i] = NoTask
	}
	copy(t.Dependencies[:], deps)
	return
}

// Deps returns the non sentinel dependencies in slot order
func (t Task) Deps() (deps []int) {
	for _, d := range t.Dependencies {
		if d != NoTask {
			deps = append(deps, d)
		}
	}
	return
}

func (t Task) DependsOn(index int) bool {
	for _, d := range t.Dependencies {
		if d == index && d != NoTask {
			return true
		}
	}
	return false
}

func (t Task) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(level %d", t.Kind, t.TimeLevel)
	if t.IntegrationPoint >= 0 {
		fmt.Fprintf(&b, ", point %d", t.IntegrationPoint)
		if t.SecondHalfInterval {
			b.WriteString(", second half")
		}
	}
	b.WriteString(")")
	return b.String()
}

// TaskList is topologically sorted by construction: every dependency of the
// task at position i points before i.
type TaskList []Task

// Validate checks the backward dependency property and that every kind is
// known. A list coming out of Build always passes.
func (tl TaskList) Validate() error {
	for i, t := range tl {
		if t.Kind == Unspecified || t.Kind >= NumKinds {
			return errors.Wrapf(ErrInvalidTaskList, "task %d has unknown kind %d", i, t.Kind)
		}
		for slot, d := range t.Dependencies {
			if d == NoTask {
				continue
			}
			if d < 0 || d >= i {
				return errors.Wrapf(ErrInvalidTaskList,
					"task %d (%s) slot %d depends on %d, not an earlier task", i, t, slot, d)
			}
		}
	}
	return nil
}

// Count returns the number of tasks of kind in level, a negative level
// counts every level.
func (tl TaskList) Count(kind Kind, level int) (n int) {
	for _, t := range tl {
		if t.Kind == kind && (level < 0 || t.TimeLevel == level) {
			n++
		}
	}
	return
}

// Find returns the indices of all tasks of kind in level, in list order
func (tl TaskList) Find(kind Kind, level int) (indices []int) {
	for i, t := range tl {
		if t.Kind == kind && (level < 0 || t.TimeLevel == level) {
			indices = append(indices, i)
		}
	}
	return
}

func (tl TaskList) Kinds() (kinds []Kind) {
	kinds = make([]Kind, len(tl))
	for i, t := range tl {
		kinds[i] = t.Kind
	}
	return
}

// Histogram counts tasks per kind
func (tl TaskList) Histogram() (histo map[Kind]int) {
	histo = make(map[Kind]int)
	for _, t := range tl {
		histo[t.Kind]++
	}
	return
}

// Format writes one line per task with its metadata and dependencies
func (tl TaskList) Format(w io.Writer) (err error) {
	if _, err = fmt.Fprintf(w, "Number of tasks: %d\n", len(tl)); err != nil {
		return
	}
	for i, t := range tl {
		var deps []string
		for _, d := range t.Deps() {
			deps = append(deps, fmt.Sprint(d))
		}
		_, err = fmt.Fprintf(w, "Task %4d: %-34s level %d  sub-step %d  point %2d  second half %-5v  deps [%s]\n",
			i, t.Kind, t.TimeLevel, t.SubStep, t.IntegrationPoint, t.SecondHalfInterval,
			strings.Join(deps, " "))
		if err != nil {
			return
		}
	}
	return
}
