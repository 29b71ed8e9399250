package taskgraph

import (
	"github.com/pkg/errors"
)

// cond is evaluated against the builder state for the level a rule is
// applied to.
type cond func(b *builder, level int) bool

func and(cs ...cond) cond {
	return func(b *builder, level int) bool {
		for _, c := range cs {
			if !c(b, level) {
				return false
			}
		}
		return true
	}
}

func or(cs ...cond) cond {
	return func(b *builder, level int) bool {
		for _, c := range cs {
			if c(b, level) {
				return true
			}
		}
		return false
	}
}

func not(c cond) cond {
	return func(b *builder, level int) bool { return !c(b, level) }
}

// pred names the task a rule depends on: the latest task of kind at
// level+shift, taken into account only when the condition holds.
type pred struct {
	kind  Kind
	shift int
	when  cond
}

type rule struct {
	kind    Kind
	applies cond
	preds   []pred
	// the task is dropped when none of its predecessors exist
	needsDependency bool
	annotate        func(b *builder, level int, t *Task)
}

// Topology predicates
func (b *builder) hasOwned(l int) bool { return !b.topo.OwnedRange(l).Empty() }
func (b *builder) hasCommElements(l int) bool { return !b.topo.OwnedCommRange(l).Empty() }
func (b *builder) hasInternal(l int) bool { return !b.topo.OwnedInternalRange(l).Empty() }
func (b *builder) hasHalo(l int) bool { return !b.topo.HaloRange(l).Empty() }
func (b *builder) hasLocalFaces(l int) bool { return !b.topo.LocalFaceRange(l).Empty() }
func (b *builder) hasHaloFaces(l int) bool { return !b.topo.HaloFaceRange(l).Empty() }
func (b *builder) commRequested(l int) bool { return b.topo.HasCommunication(l) }
func (b *builder) selfComm(l int) bool { return b.topo.HasSelfCommunication(l) }
func (b *builder) hasBC(l int) bool { return b.topo.HasBoundaryCondition(l) }
func (b *builder) bcNeedsHalo(l int) bool { return b.topo.BoundaryConditionNeedsHalo(l) }
func (b *builder) interpolOwned(l int) bool { return b.topo.NeedsOwnedInterpolation(l) }
func (b *builder) interpolHalo(l int) bool { return b.topo.NeedsHaloInterpolation(l) }
func (b *builder) adjOwned(l int) bool { return b.topo.AdjacentOwned(l) > 0 }
func (b *builder) adjHalo(l int) bool { return b.topo.AdjacentHalo(l) > 0 }
func (b *builder) adjOwnedBelow(l int) bool { return l > 0 && b.topo.AdjacentOwned(l-1) > 0 }
func (b *builder) adjHaloBelow(l int) bool { return l > 0 && b.topo.AdjacentHalo(l-1) > 0 }
func (b *builder) anyComm(l int) bool { return b.commRequested(l) || b.selfComm(l) }
func (b *builder) firstPoint(int) bool { return b.point == 0 }
func (b *builder) laterPoint(int) bool { return b.point > 0 }
func (b *builder) lastPoint(int) bool { return b.point == b.cfg.NumIntegrationPoints-1 }

func interpolationPoint(b *builder, level int, t *Task) {
	t.IntegrationPoint = b.point
	t.SecondHalfInterval = level < b.active
}

func accumulationPoint(b *builder, _ int, t *Task) {
	t.IntegrationPoint = b.point
}

// The rule groups below are applied in the listed order. Within a group the
// order matters: a rule may only reference kinds emitted by an earlier rule
// or an earlier group.
var (
	// Predictor of the communication elements and the start of the halo
	// exchange, for every predicted level before any internal work.
	sendRules = []rule{
		{
			kind:    PredictorStepCommElements,
			applies: (*builder).hasCommElements,
			preds:   []pred{{kind: UpdateSolution}},
		},
		{
			kind:    InitiateCommunication,
			applies: (*builder).commRequested,
			preds: []pred{
				{kind: PredictorStepCommElements, when: (*builder).hasCommElements},
				{kind: TimeInterpolateHaloElements, when: not((*builder).hasCommElements)},
				{kind: CompleteReverseCommunication},
			},
		},
	}
	receiveRules = []rule{
		{
			kind:    PredictorStepInternalElements,
			applies: (*builder).hasInternal,
			preds:   []pred{{kind: UpdateSolution}},
		},
		{
			kind: CompleteCommunication,
			preds: []pred{
				{kind: InitiateCommunication, when: (*builder).commRequested},
				{kind: PredictorStepCommElements, when: (*builder).selfComm},
				{kind: PredictorStepInternalElements, when: (*builder).selfComm},
			},
			needsDependency: true,
		},
	}
	// One corrector integration point of one level
	correctorRules = []rule{
		{
			kind:    TimeInterpolateOwnedElements,
			applies: (*builder).interpolOwned,
			preds: []pred{
				{kind: PredictorStepCommElements, when: and((*builder).firstPoint, (*builder).hasOwned)},
				{kind: PredictorStepInternalElements, when: and((*builder).firstPoint, (*builder).hasOwned)},
				{kind: PredictorStepCommElements, shift: 1, when: and((*builder).firstPoint, (*builder).adjOwned)},
				{kind: PredictorStepInternalElements, shift: 1, when: and((*builder).firstPoint, (*builder).adjOwned)},
				// scratch of the previous point is overwritten
				{kind: VolumeResidual, when: (*builder).laterPoint},
				{kind: BoundaryConditionsOwned, when: (*builder).laterPoint},
				{kind: BoundaryConditionsHalo, when: (*builder).laterPoint},
				{kind: SurfaceResidualHaloElements, when: (*builder).laterPoint},
				{kind: SurfaceResidualOwnedElements, when: (*builder).laterPoint},
			},
			annotate: interpolationPoint,
		},
		{
			kind:    ShockCapturingOwnedElements,
			applies: (*builder).interpolOwned,
			preds:   []pred{{kind: TimeInterpolateOwnedElements}},
		},
		{
			kind:    TimeInterpolateHaloElements,
			applies: (*builder).interpolHalo,
			preds: []pred{
				{kind: CompleteCommunication, when: and((*builder).firstPoint, (*builder).hasHalo)},
				{kind: CompleteCommunication, shift: 1, when: and((*builder).firstPoint, (*builder).adjHalo)},
				{kind: SurfaceResidualHaloElements, when: (*builder).laterPoint},
				{kind: BoundaryConditionsHalo, when: (*builder).laterPoint},
			},
			annotate: interpolationPoint,
		},
		{
			kind:    ShockCapturingHaloElements,
			applies: (*builder).interpolHalo,
			preds:   []pred{{kind: TimeInterpolateHaloElements}},
		},
		{
			kind:    BoundaryConditionsHalo,
			applies: (*builder).bcNeedsHalo,
			preds:   []pred{{kind: ShockCapturingOwnedElements}, {kind: ShockCapturingHaloElements}},
		},
		{
			kind:    SurfaceResidualHaloElements,
			applies: (*builder).hasHaloFaces,
			preds: []pred{
				{kind: ShockCapturingOwnedElements},
				{kind: ShockCapturingHaloElements},
				{kind: AccumulateSpaceTimeResidualHalo, when: (*builder).laterPoint},
			},
		},
		{
			kind:     AccumulateSpaceTimeResidualHalo,
			applies:  (*builder).hasHaloFaces,
			preds:    []pred{{kind: SurfaceResidualHaloElements}},
			annotate: accumulationPoint,
		},
		{
			kind:    InitiateReverseCommunication,
			applies: and((*builder).lastPoint, (*builder).anyComm),
			preds: []pred{
				{kind: AccumulateSpaceTimeResidualHalo},
				{kind: AccumulateSpaceTimeResidualHalo, shift: -1, when: (*builder).adjHaloBelow},
				{kind: CompleteCommunication},
			},
		},
		{
			kind:    VolumeResidual,
			applies: (*builder).hasOwned,
			preds: []pred{
				{kind: ShockCapturingOwnedElements},
				{kind: AccumulateSpaceTimeResidualOwned, when: (*builder).laterPoint},
			},
		},
		{
			kind:    BoundaryConditionsOwned,
			applies: and((*builder).hasOwned, (*builder).hasBC),
			preds: []pred{
				{kind: ShockCapturingOwnedElements},
				{kind: AccumulateSpaceTimeResidualOwned, when: (*builder).laterPoint},
			},
		},
		{
			kind:    SurfaceResidualOwnedElements,
			applies: and((*builder).hasOwned, (*builder).hasLocalFaces),
			preds: []pred{
				{kind: ShockCapturingOwnedElements},
				{kind: AccumulateSpaceTimeResidualOwned, when: (*builder).laterPoint},
			},
		},
		{
			kind:    AccumulateSpaceTimeResidualOwned,
			applies: or((*builder).hasOwned, (*builder).adjOwned),
			preds: []pred{
				{kind: VolumeResidual},
				{kind: BoundaryConditionsOwned},
				{kind: BoundaryConditionsHalo},
				{kind: SurfaceResidualOwnedElements},
				{kind: SurfaceResidualHaloElements},
			},
			annotate: accumulationPoint,
		},
		{
			kind:    CompleteReverseCommunication,
			applies: and((*builder).lastPoint, (*builder).anyComm),
			preds: []pred{
				{kind: InitiateReverseCommunication},
				{kind: AccumulateSpaceTimeResidualOwned},
				{kind: AccumulateSpaceTimeResidualOwned, shift: -1, when: (*builder).adjOwnedBelow},
			},
		},
	}
	updateRules = []rule{
		{
			kind:    MultiplyInverseMassMatrix,
			applies: (*builder).hasOwned,
			preds: []pred{
				{kind: CompleteReverseCommunication},
				{kind: AccumulateSpaceTimeResidualOwned},
				{kind: AccumulateSpaceTimeResidualOwned, shift: -1, when: (*builder).adjOwnedBelow},
			},
		},
		{
			kind:    UpdateSolution,
			applies: (*builder).hasOwned,
			preds:   []pred{{kind: MultiplyInverseMassMatrix}},
		},
	}
)

// appendIfApplicable interprets one rule for one level. The dependency slots
// are filled in the order of the predecessor list, predecessors that were
// pruned resolve to NoTask and take no slot.
func (b *builder) appendIfApplicable(r rule, level int) (err error) {
	if r.applies != nil && !r.applies(b, level) {
		return
	}
	var (
		t    = NewTask(r.kind, level)
		nDep int
		idx  int
	)
	t.SubStep = b.subStep
	for _, p := range r.preds {
		if p.when != nil && !p.when(b, level) {
			continue
		}
		if idx, err = b.index.lookup(p.kind, level+p.shift); err != nil {
			return errors.Wrapf(err, "resolving %s for %s", p.kind, t)
		}
		if idx == NoTask {
			continue
		}
		if nDep == MaxDependencies {
			return errors.Wrapf(ErrInternal, "%s resolves more than %d predecessors", t, MaxDependencies)
		}
		t.Dependencies[nDep] = idx
		nDep++
	}
	if r.needsDependency && nDep == 0 {
		return
	}
	if r.annotate != nil {
		r.annotate(b, level, &t)
	}
	b.list = append(b.list, t)
	return b.index.record(r.kind, level, len(b.list)-1)
}

func (b *builder) applyRules(rules []rule, levels ...int) (err error) {
	for _, level := range levels {
		for _, r := range rules {
			if err = b.appendIfApplicable(r, level); err != nil {
				return
			}
		}
	}
	return
}
