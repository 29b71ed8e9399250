package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/ltsched/taskgraph"
	"github.com/notargets/ltsched/topology"
)

// TaskContext is what a kernel gets to see of the task it executes. The
// element and face ranges are resolved from the topology for the kind and
// level of the task, Worker identifies the executing worker so kernels can
// pick per worker scratch storage.
type TaskContext struct {
	Index    int
	Task     taskgraph.Task
	Topology *topology.Topology
	Elements topology.Range
	Faces    topology.Range
	Worker   int
}

type Kernel func(ctx context.Context, tc *TaskContext) error

// KernelTable dispatches task kinds to kernels
type KernelTable map[taskgraph.Kind]Kernel

// Executor replays a task list, once per call
type Executor interface {
	Run(ctx context.Context, tl taskgraph.TaskList) error
}

type rangeFunc func(topo *topology.Topology, level int) (elements, faces topology.Range)

func owned(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.OwnedRange(l), topology.Range{}
}

func halo(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.HaloRange(l), topology.Range{}
}

func ownedComm(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.OwnedCommRange(l), topology.Range{}
}

func ownedInternal(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.OwnedInternalRange(l), topology.Range{}
}

func localFaces(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.OwnedRange(l), topo.LocalFaceRange(l)
}

func haloFaces(topo *topology.Topology, l int) (topology.Range, topology.Range) {
	return topo.HaloRange(l), topo.HaloFaceRange(l)
}

// Forward communication fills the halo, reverse communication returns
// contributions to the owned communication elements. Boundary kernels walk
// the markers of the topology themselves.
var kindRanges = [taskgraph.NumKinds]rangeFunc{
	taskgraph.PredictorStepCommElements:        ownedComm,
	taskgraph.PredictorStepInternalElements:    ownedInternal,
	taskgraph.InitiateCommunication:            halo,
	taskgraph.CompleteCommunication:            halo,
	taskgraph.InitiateReverseCommunication:     ownedComm,
	taskgraph.CompleteReverseCommunication:     ownedComm,
	taskgraph.TimeInterpolateOwnedElements:     owned,
	taskgraph.TimeInterpolateHaloElements:      halo,
	taskgraph.ShockCapturingOwnedElements:      owned,
	taskgraph.ShockCapturingHaloElements:       halo,
	taskgraph.VolumeResidual:                   owned,
	taskgraph.SurfaceResidualOwnedElements:     localFaces,
	taskgraph.SurfaceResidualHaloElements:      haloFaces,
	taskgraph.BoundaryConditionsOwned:          owned,
	taskgraph.BoundaryConditionsHalo:           owned,
	taskgraph.SumResidualOwnedElements:         owned,
	taskgraph.SumResidualHaloElements:          halo,
	taskgraph.AccumulateSpaceTimeResidualOwned: owned,
	taskgraph.AccumulateSpaceTimeResidualHalo:  halo,
	taskgraph.MultiplyInverseMassMatrix:        owned,
	taskgraph.UpdateSolution:                   owned,
}

// NewTaskContext resolves the ranges of task
func NewTaskContext(topo *topology.Topology, index int, task taskgraph.Task, worker int) (tc *TaskContext) {
	tc = &TaskContext{
		Index:    index,
		Task:     task,
		Topology: topo,
		Worker:   worker,
	}
	if topo != nil && task.Kind < taskgraph.NumKinds && kindRanges[task.Kind] != nil &&
		task.TimeLevel >= 0 && task.TimeLevel < topo.NumTimeLevels {
		tc.Elements, tc.Faces = kindRanges[task.Kind](topo, task.TimeLevel)
	}
	return
}

type Option func(*base)

func WithMetrics(m *Metrics) Option {
	return func(b *base) { b.metrics = m }
}

func WithLogger(entry *logrus.Entry) Option {
	return func(b *base) { b.log = entry }
}

type base struct {
	topo    *topology.Topology
	kernels KernelTable
	metrics *Metrics
	log     *logrus.Entry
}

func newBase(topo *topology.Topology, kernels KernelTable, opts []Option) (b base) {
	b = base{
		topo:    topo,
		kernels: kernels,
		log:     logrus.WithField("pkg", "executor"),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return
}

// prepare rejects lists that could deadlock or dispatch to nothing
func (b *base) prepare(tl taskgraph.TaskList) (err error) {
	if err = tl.Validate(); err != nil {
		return
	}
	for kind := range tl.Histogram() {
		if b.kernels[kind] == nil {
			return errors.Wrapf(ErrMissingKernel, "%s", kind)
		}
	}
	return
}

func (b *base) runTask(ctx context.Context, tl taskgraph.TaskList, index, worker int) (err error) {
	var (
		task  = tl[index]
		tc    = NewTaskContext(b.topo, index, task, worker)
		start = time.Now()
	)
	err = b.kernels[task.Kind](ctx, tc)
	b.metrics.observe(task, time.Since(start), err)
	if err != nil {
		kerr := newKernelError(index, task, err)
		b.log.WithFields(logrus.Fields{
			"task":      index,
			"kind":      task.Kind.String(),
			"timeLevel": task.TimeLevel,
			"point":     task.IntegrationPoint,
			"worker":    worker,
		}).WithError(err).Error("kernel failed")
		return kerr
	}
	b.log.WithFields(logrus.Fields{
		"task":      index,
		"kind":      task.Kind.String(),
		"timeLevel": task.TimeLevel,
		"worker":    worker,
	}).Trace("task done")
	return
}

// Sequential walks the list in order, one task at a time
type Sequential struct {
	base
}

func NewSequential(topo *topology.Topology, kernels KernelTable, opts ...Option) *Sequential {
	return &Sequential{base: newBase(topo, kernels, opts)}
}

func (s *Sequential) Run(ctx context.Context, tl taskgraph.TaskList) (err error) {
	if err = s.prepare(tl); err != nil {
		return
	}
	done := make([]bool, len(tl))
	for i, task := range tl {
		if err = ctx.Err(); err != nil {
			return
		}
		for _, d := range task.Deps() {
			if !done[d] {
				return errors.Wrapf(ErrUnmetDependency, "task %d (%s) needs task %d", i, task, d)
			}
		}
		if err = s.runTask(ctx, tl, i, 0); err != nil {
			return
		}
		done[i] = true
	}
	s.metrics.stepDone()
	return
}

// Concurrent runs mutually independent tasks in parallel on a fixed pool of
// workers. A task becomes ready once its last dependency completed. After
// the first kernel error no further task is started, running tasks finish
// and the error is returned.
type Concurrent struct {
	base
	Workers int
}

func NewConcurrent(topo *topology.Topology, kernels KernelTable, workers int, opts ...Option) *Concurrent {
	if workers < 1 {
		workers = 1
	}
	return &Concurrent{base: newBase(topo, kernels, opts), Workers: workers}
}

func (c *Concurrent) Run(ctx context.Context, tl taskgraph.TaskList) (err error) {
	if err = c.prepare(tl); err != nil {
		return
	}
	var (
		n          = len(tl)
		pending    = make([]int32, n)
		dependents = make([][]int, n)
		ready      = make(chan int, n)
		remaining  = int32(n)
	)
	if n == 0 {
		c.metrics.stepDone()
		return
	}
	for i, task := range tl {
		seen := make(map[int]bool, taskgraph.MaxDependencies)
		for _, d := range task.Deps() {
			if seen[d] {
				continue
			}
			seen[d] = true
			pending[i]++
			dependents[d] = append(dependents[d], i)
		}
		if pending[i] == 0 {
			ready <- i
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < c.Workers; w++ {
		w := w
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case i, ok := <-ready:
					if !ok {
						return nil
					}
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := c.runTask(gctx, tl, i, w); err != nil {
						return err
					}
					for _, j := range dependents[i] {
						if atomic.AddInt32(&pending[j], -1) == 0 {
							ready <- j
						}
					}
					if atomic.AddInt32(&remaining, -1) == 0 {
						close(ready)
					}
				}
			}
		})
	}
	if err = g.Wait(); err != nil {
		return
	}
	c.metrics.stepDone()
	return
}
