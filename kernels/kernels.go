package kernels

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/ltsched/executor"
	"github.com/notargets/ltsched/taskgraph"
	"github.com/notargets/ltsched/topology"
	"github.com/notargets/ltsched/utils"
)

type counters struct {
	visits        [taskgraph.NumKinds]atomic.Int64
	surfaceFaces  atomic.Int64
	boundaryFaces [2]atomic.Int64 // owned side, halo side
}

// Visits is the number of kernel invocations of kind
func (s *State) Visits(kind taskgraph.Kind) int64 { return s.visits[kind].Load() }

// Faces is the number of surface and boundary faces processed so far
func (s *State) Faces() (surface, boundaryOwned, boundaryHalo int64) {
	return s.surfaceFaces.Load(), s.boundaryFaces[0].Load(), s.boundaryFaces[1].Load()
}

// Kernels binds every task kind to the reference kernel operating on s
func (s *State) Kernels() (kt executor.KernelTable) {
	kt = executor.KernelTable{
		taskgraph.PredictorStepCommElements:        s.predict,
		taskgraph.PredictorStepInternalElements:    s.predict,
		taskgraph.InitiateCommunication:            s.initiateCommunication,
		taskgraph.CompleteCommunication:            s.completeCommunication,
		taskgraph.InitiateReverseCommunication:     s.initiateReverseCommunication,
		taskgraph.CompleteReverseCommunication:     s.completeReverseCommunication,
		taskgraph.TimeInterpolateOwnedElements:     s.timeInterpolate,
		taskgraph.TimeInterpolateHaloElements:      s.timeInterpolate,
		taskgraph.ShockCapturingOwnedElements:      s.shockCapturing,
		taskgraph.ShockCapturingHaloElements:       s.shockCapturing,
		taskgraph.VolumeResidual:                   s.volumeResidual,
		taskgraph.SurfaceResidualOwnedElements:     s.surfaceResidualOwned,
		taskgraph.SurfaceResidualHaloElements:      s.surfaceResidualHalo,
		taskgraph.BoundaryConditionsOwned:          s.boundaryConditions(false),
		taskgraph.BoundaryConditionsHalo:           s.boundaryConditions(true),
		taskgraph.SumResidualOwnedElements:         s.sumResidualOwned,
		taskgraph.SumResidualHaloElements:          s.sumResidualHalo,
		taskgraph.AccumulateSpaceTimeResidualOwned: s.accumulateOwned,
		taskgraph.AccumulateSpaceTimeResidualHalo:  s.accumulateHalo,
		taskgraph.MultiplyInverseMassMatrix:        s.multiplyInverseMass,
		taskgraph.UpdateSolution:                   s.updateSolution,
	}
	for kind, k := range kt {
		kt[kind] = s.counted(kind, k)
	}
	return
}

func (s *State) counted(kind taskgraph.Kind, k executor.Kernel) executor.Kernel {
	return func(ctx context.Context, tc *executor.TaskContext) error {
		s.visits[kind].Add(1)
		return k(ctx, tc)
	}
}

func (s *State) forElements(r topology.Range, fn func(k int) error) error {
	return utils.ParallelFor(r.Begin, r.End, s.Parallel, func(_, kMin, kMax int) (err error) {
		for k := kMin; k < kMax; k++ {
			if err = fn(k); err != nil {
				return
			}
		}
		return
	})
}

func (s *State) point(tc *executor.TaskContext) (p int, err error) {
	p = tc.Task.IntegrationPoint
	if p < 0 || p >= len(s.w) {
		err = errors.Wrapf(ErrInconsistentState, "integration point %d out of range [0,%d)", p, len(s.w))
	}
	return
}

// predict freezes the solution at the start of the step of the level. The
// model is linear in time, so the predictor is the current state and its
// time.
func (s *State) predict(_ context.Context, tc *executor.TaskContext) error {
	return s.forElements(tc.Elements, func(k int) error {
		s.predU[k], s.predT[k] = s.U[k], s.T[k]
		return nil
	})
}

// haloMessage is what the owner of halo slot h sends for the current
// exchange of level.
func (s *State) haloMessage(h, level int) (msg message) {
	msg.slot = h
	if src := s.source[h-len(s.U)]; src >= 0 {
		if s.simple() {
			msg.u, msg.t = s.U[src], s.T[src]
		} else {
			msg.u, msg.t = s.predU[src], s.predT[src]
		}
		return
	}
	msg.u, msg.t = s.u0[h], float64(s.Exchanges[level])*s.StepSize(level)
	return
}

func (s *State) initiateCommunication(_ context.Context, tc *executor.TaskContext) error {
	level := tc.Task.TimeLevel
	if !s.Topo.HasCommunication(level) {
		return nil
	}
	mb := s.fwd[level]
	for h := tc.Elements.Begin; h < tc.Elements.End; h++ {
		mb.PostMessage(0, 0, s.haloMessage(h, level))
	}
	mb.DeliverMyMessages(0)
	return nil
}

func (s *State) completeCommunication(_ context.Context, tc *executor.TaskContext) error {
	level := tc.Task.TimeLevel
	if s.Topo.HasCommunication(level) {
		mb := s.fwd[level]
		msgs := mb.ReceiveMyMessages(0)
		if len(msgs) != tc.Elements.Len() {
			return errors.Wrapf(ErrInconsistentState, "level %d received %d halo states, expected %d",
				level, len(msgs), tc.Elements.Len())
		}
		for _, msg := range msgs {
			s.predU[msg.slot], s.predT[msg.slot] = msg.u, msg.t
		}
		mb.ClearMyMessages(0)
	} else {
		for h := tc.Elements.Begin; h < tc.Elements.End; h++ {
			msg := s.haloMessage(h, level)
			s.predU[h], s.predT[h] = msg.u, msg.t
		}
	}
	s.Exchanges[level]++
	return nil
}

func (s *State) initiateReverseCommunication(_ context.Context, tc *executor.TaskContext) error {
	var (
		level = tc.Task.TimeLevel
		halo  = s.Topo.HaloRange(level)
		mb    = s.rev[level]
	)
	for h := halo.Begin; h < halo.End; h++ {
		mb.PostMessage(0, 0, message{slot: h, u: s.haloWeight[h]})
		s.haloWeight[h] = 0
	}
	mb.DeliverMyMessages(0)
	return nil
}

// completeReverseCommunication receives the integrated halo contributions.
// Every halo slot that has faces must have been integrated over the full
// step of its level.
func (s *State) completeReverseCommunication(_ context.Context, tc *executor.TaskContext) error {
	var (
		level = tc.Task.TimeLevel
		mb    = s.rev[level]
		want  = 1.
	)
	if !s.simple() {
		want = s.StepSize(level)
		if s.Topo.HaloFaceRange(level).Empty() {
			want = 0
		}
	}
	for _, msg := range mb.ReceiveMyMessages(0) {
		if !nearlyEqual(msg.u, want) {
			mb.ClearMyMessages(0)
			return errors.Wrapf(ErrInconsistentState, "halo slot %d returned weight %g, expected %g",
				msg.slot, msg.u, want)
		}
	}
	mb.ClearMyMessages(0)
	s.ReverseExchanges[level]++
	return nil
}

func (s *State) timeInterpolate(_ context.Context, tc *executor.TaskContext) error {
	p, err := s.point(tc)
	if err != nil {
		return err
	}
	h := s.StepSize(tc.Task.TimeLevel)
	return s.forElements(tc.Elements, func(k int) error {
		t := s.predT[k] + s.x[p]*h
		s.interpU[k] = s.predU[k] + (t-s.predT[k])*s.rate[k]
		s.interpT[k] = t
		return nil
	})
}

// state is the solution a residual kernel sees for element k
func (s *State) state(k int) (u, t float64) {
	switch {
	case !s.simple():
		return s.interpU[k], s.interpT[k]
	case s.isHalo(k):
		return s.predU[k], s.predT[k]
	default:
		return s.U[k], s.T[k]
	}
}

// shockCapturing has nothing to stabilise in the model and only rejects
// states that are not finite.
func (s *State) shockCapturing(_ context.Context, tc *executor.TaskContext) error {
	return s.forElements(tc.Elements, func(k int) error {
		u, t := s.state(k)
		if math.IsNaN(u) || math.IsInf(u, 0) {
			return errors.Wrapf(ErrInconsistentState, "element %d has state %g at t=%g", k, u, t)
		}
		s.sensor[k] = 0
		return nil
	})
}

func (s *State) volumeResidual(_ context.Context, tc *executor.TaskContext) error {
	return s.forElements(tc.Elements, func(k int) error {
		if u, t := s.state(k); !nearlyEqual(u, s.Exact(k, t)) {
			return errors.Wrapf(ErrInconsistentState, "element %d has u=%g at t=%g, exact %g",
				k, u, t, s.Exact(k, t))
		}
		s.resVol[k] = s.mass[k] * s.rate[k]
		return nil
	})
}

// The elements of the model are not coupled, the surface and boundary
// kernels contribute nothing and only account for the faces they visit.
func (s *State) surfaceResidualOwned(_ context.Context, tc *executor.TaskContext) error {
	s.surfaceFaces.Add(int64(tc.Faces.Len()))
	return nil
}

// surfaceResidualHalo checks that the halo states of the level are taken at
// the same time as the owned states they are coupled with.
func (s *State) surfaceResidualHalo(_ context.Context, tc *executor.TaskContext) error {
	var (
		level = tc.Task.TimeLevel
		owned = s.Topo.OwnedRange(level)
		halo  = s.Topo.HaloRange(level)
	)
	s.surfaceFaces.Add(int64(tc.Faces.Len()))
	if s.simple() || owned.Empty() ||
		!(s.Topo.HasCommunication(level) || s.Topo.HasSelfCommunication(level)) {
		return nil
	}
	tOwned := s.interpT[owned.Begin]
	for h := halo.Begin; h < halo.End; h++ {
		if !nearlyEqual(s.interpT[h], tOwned) {
			return errors.Wrapf(ErrInconsistentState, "halo element %d is at t=%g, owned elements at t=%g",
				h, s.interpT[h], tOwned)
		}
		if exact := s.Exact(h, s.interpT[h]); !nearlyEqual(s.interpU[h], exact) {
			return errors.Wrapf(ErrInconsistentState, "halo element %d has u=%g, exact %g",
				h, s.interpU[h], exact)
		}
	}
	return nil
}

func (s *State) boundaryConditions(haloSide bool) executor.Kernel {
	side := 0
	if haloSide {
		side = 1
	}
	return func(_ context.Context, tc *executor.TaskContext) error {
		var nFaces int
		for m, marker := range s.Topo.Markers {
			if (marker.NeedsHalo || marker.Kind.NeedsHalo()) != haloSide {
				continue
			}
			nFaces += s.Topo.BoundaryFaceRange(m, tc.Task.TimeLevel).Len()
		}
		s.boundaryFaces[side].Add(int64(nFaces))
		return nil
	}
}

func (s *State) sumResidualOwned(_ context.Context, tc *executor.TaskContext) error {
	return s.forElements(tc.Elements, func(k int) error {
		s.sum[k] = s.resVol[k]
		return nil
	})
}

func (s *State) sumResidualHalo(_ context.Context, tc *executor.TaskContext) error {
	return s.forElements(tc.Elements, func(h int) error {
		s.haloWeight[h] = 1
		return nil
	})
}

func (s *State) accumulateOwned(_ context.Context, tc *executor.TaskContext) error {
	p, err := s.point(tc)
	if err != nil {
		return err
	}
	wh := s.w[p] * s.StepSize(tc.Task.TimeLevel)
	return s.forElements(tc.Elements, func(k int) error {
		s.acc[k] += wh * s.resVol[k]
		return nil
	})
}

func (s *State) accumulateHalo(_ context.Context, tc *executor.TaskContext) error {
	p, err := s.point(tc)
	if err != nil {
		return err
	}
	wh := s.w[p] * s.StepSize(tc.Task.TimeLevel)
	return s.forElements(tc.Elements, func(h int) error {
		s.haloWeight[h] += wh
		return nil
	})
}

// multiplyInverseMass moves the residual of the level into the worker
// scratch, releasing the accumulator for the next step, and applies the
// inverse mass matrix.
func (s *State) multiplyInverseMass(_ context.Context, tc *executor.TaskContext) error {
	var (
		r = tc.Elements
		n = r.Len()
	)
	if n == 0 {
		return nil
	}
	if tc.Worker < 0 || tc.Worker >= len(s.scratch) {
		return errors.Wrapf(ErrInconsistentState, "no scratch for worker %d", tc.Worker)
	}
	src := s.acc
	if s.simple() {
		src = s.sum
	}
	scratch := s.scratch[tc.Worker][:n]
	copy(scratch, src[r.Begin:r.End])
	if !s.simple() {
		for k := r.Begin; k < r.End; k++ {
			s.acc[k] = 0
		}
	}
	dst := mat.NewVecDense(n, s.du[r.Begin:r.End])
	dst.MulVec(s.invMass[tc.Task.TimeLevel], mat.NewVecDense(n, scratch))
	return nil
}

// updateSolution verifies that the level was integrated over its full step
// before it advances the solution.
func (s *State) updateSolution(_ context.Context, tc *executor.TaskContext) error {
	h := s.StepSize(tc.Task.TimeLevel)
	return s.forElements(tc.Elements, func(k int) error {
		if want := h * s.rate[k]; !nearlyEqual(s.du[k], want) {
			return errors.Wrapf(ErrInconsistentState, "element %d integrated %g over the step, expected %g",
				k, s.du[k], want)
		}
		s.U[k] += s.du[k]
		s.T[k] += h
		s.Updates[k]++
		return nil
	})
}
