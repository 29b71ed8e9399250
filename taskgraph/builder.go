package taskgraph

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/notargets/ltsched/topology"
)

var ErrInternal = errors.New("task graph builder inconsistency")

var log = logrus.WithField("pkg", "taskgraph")

// simpleSchedule is the synchronous schedule. Communication is started
// first, owned work overlaps the forward exchange and the halo side
// contributions are sent back while the owned surface terms are computed.
var simpleSchedule = []struct {
	kind Kind
	deps []int
}{
	{InitiateCommunication, nil},                       // 0
	{ShockCapturingOwnedElements, nil},                 // 1
	{VolumeResidual, []int{1}},                         // 2
	{CompleteCommunication, []int{0}},                  // 3
	{ShockCapturingHaloElements, []int{3}},             // 4
	{SurfaceResidualHaloElements, []int{1, 4}},         // 5
	{BoundaryConditionsHalo, []int{1, 3}},              // 6
	{SumResidualHaloElements, []int{5}},                // 7
	{InitiateReverseCommunication, []int{7}},           // 8
	{SurfaceResidualOwnedElements, []int{1}},           // 9
	{BoundaryConditionsOwned, []int{1}},                // 10
	{CompleteReverseCommunication, []int{2, 8}},        // 11
	{SumResidualOwnedElements, []int{2, 6, 9, 10, 11}}, // 12
	{MultiplyInverseMassMatrix, []int{12}},             // 13
}

// indexTable holds, per kind and time level, the position of the latest
// task of that kind. It lives for one Build only.
type indexTable struct {
	last [NumKinds][]int
}

func newIndexTable(numTimeLevels int) (it *indexTable) {
	it = &indexTable{}
	for k := range it.last {
		it.last[k] = make([]int, numTimeLevels)
		for l := range it.last[k] {
			it.last[k][l] = NoTask
		}
	}
	return
}

func (it *indexTable) lookup(kind Kind, level int) (int, error) {
	if kind >= NumKinds || level < 0 || level >= len(it.last[kind]) {
		return NoTask, errors.Wrapf(ErrInternal, "lookup of %s at time level %d", kind, level)
	}
	return it.last[kind][level], nil
}

func (it *indexTable) record(kind Kind, level, index int) error {
	if kind >= NumKinds || level < 0 || level >= len(it.last[kind]) {
		return errors.Wrapf(ErrInternal, "recording %s at time level %d", kind, level)
	}
	it.last[kind][level] = index
	return nil
}

type builder struct {
	cfg     Config
	topo    *topology.Topology
	list    TaskList
	index   *indexTable
	subStep int
	active  int // highest time level updated in the current sub-step
	point   int // current time integration point, -1 outside the corrector
}

// Build constructs the task list for one global time step. The list only
// depends on the configuration and the topology and is meant to be built
// once and replayed every step. The simple schedule ignores the partition
// sizes, topo may be nil for it.
func Build(cfg Config, topo *topology.Topology) (tl TaskList, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if topo != nil {
		if err = topo.Validate(); err != nil {
			return nil, errors.Wrap(err, "partition topology")
		}
		if topo.NumTimeLevels != cfg.NumTimeLevels {
			return nil, errors.Wrapf(ErrInvalidConfig, "topology has %d time levels, configuration %d",
				topo.NumTimeLevels, cfg.NumTimeLevels)
		}
	}
	if cfg.UsesSimpleSchedule() {
		tl = buildSimple()
	} else {
		if topo == nil {
			return nil, errors.Wrap(ErrInvalidConfig, "the ADER schedule needs a partition topology")
		}
		b := &builder{
			cfg:   cfg,
			topo:  topo,
			index: newIndexTable(cfg.NumTimeLevels),
			point: -1,
		}
		if err = b.buildADER(); err != nil {
			return nil, err
		}
		tl = b.list
	}
	if err = tl.Validate(); err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}
	log.WithFields(logrus.Fields{
		"scheme":   cfg.Scheme.Print(),
		"levels":   cfg.NumTimeLevels,
		"points":   cfg.NumIntegrationPoints,
		"subSteps": cfg.NumSubSteps(),
		"tasks":    len(tl),
	}).Debug("task list built")
	return
}

func buildSimple() (tl TaskList) {
	tl = make(TaskList, len(simpleSchedule))
	for i, st := range simpleSchedule {
		tl[i] = NewTask(st.kind, 0, st.deps...)
	}
	return
}

func (b *builder) buildADER() (err error) {
	var (
		M = b.cfg.NumTimeLevels
		P = b.cfg.NumIntegrationPoints
	)
	for s := 0; s < b.cfg.NumSubSteps(); s++ {
		b.subStep, b.active, b.point = s, ActiveLevel(s), -1
		L := b.active
		// Level 0 is predicted every sub-step, the next coarser level is
		// predicted ahead because level L interpolates its adjacent elements.
		predicted := []int{0}
		if L < M-1 {
			predicted = append(predicted, L+1)
		}
		if err = b.applyRules(sendRules, predicted...); err != nil {
			return
		}
		if err = b.applyRules(receiveRules, predicted...); err != nil {
			return
		}
		for b.point = 0; b.point < P; b.point++ {
			for level := 0; level <= L; level++ {
				if err = b.applyRules(correctorRules, level); err != nil {
					return
				}
			}
		}
		b.point = -1
		for level := 0; level <= L; level++ {
			if err = b.applyRules(updateRules, level); err != nil {
				return
			}
		}
		log.WithFields(logrus.Fields{
			"subStep":     s,
			"activeLevel": L,
			"tasks":       len(b.list),
		}).Trace("sub-step scheduled")
	}
	return
}
