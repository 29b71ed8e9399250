package taskgraph

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/ltsched/topology"
	"github.com/notargets/ltsched/types"
)

func aderConfig(M, P int) Config {
	return Config{Scheme: SchemeADER, NumTimeLevels: M, NumIntegrationPoints: P}
}

func deps(ii ...int) (d [MaxDependencies]int) {
	for i := range d {
		d[i] = NoTask
	}
	copy(d[:], ii)
	return
}

func TestActiveLevel(t *testing.T) {
	assert.Equal(t, []int{0}, aderConfig(1, 1).ActiveLevels())
	assert.Equal(t, []int{0, 1}, aderConfig(2, 1).ActiveLevels())
	assert.Equal(t, []int{0, 1, 0, 2}, aderConfig(3, 1).ActiveLevels())
	assert.Equal(t, []int{0, 1, 0, 2, 0, 1, 0, 3}, aderConfig(4, 1).ActiveLevels())
	{ // Test level k is active every 2^k sub-steps
		cfg := aderConfig(6, 1)
		updates := make([]int, 6)
		for _, L := range cfg.ActiveLevels() {
			for l := 0; l <= L; l++ {
				updates[l]++
			}
		}
		assert.Equal(t, []int{32, 16, 8, 4, 2, 1}, updates)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{Scheme: SchemeADER, NumTimeLevels: 0, NumIntegrationPoints: 1},
		{Scheme: SchemeADER, NumTimeLevels: MaxTimeLevels + 1, NumIntegrationPoints: 1},
		{Scheme: SchemeADER, NumTimeLevels: 2, NumIntegrationPoints: 0},
		{Scheme: SchemeRungeKutta, NumTimeLevels: 2},
		{Scheme: SchemeADER, NumTimeLevels: 2, NumIntegrationPoints: 2, SpatialJacobianOnly: true},
		{Scheme: Scheme(7), NumTimeLevels: 1},
	}
	for _, cfg := range bad {
		err := cfg.Validate()
		if assert.Error(t, err, cfg.String()) {
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		}
		_, err = Build(cfg, nil)
		assert.Error(t, err)
	}
	assert.NoError(t, Config{Scheme: SchemeRungeKutta, NumTimeLevels: 1}.Validate())
	assert.NoError(t, aderConfig(3, 2).Validate())
	// The spatial Jacobian is built over a single level only
	sjo := Config{Scheme: SchemeADER, NumTimeLevels: 1, NumIntegrationPoints: 2, SpatialJacobianOnly: true}
	assert.NoError(t, sjo.Validate())
	tl, err := Build(sjo, nil)
	require.NoError(t, err)
	assert.Len(t, tl, 14)

	s, err := NewScheme("ADER_DG")
	require.NoError(t, err)
	assert.Equal(t, SchemeADER, s)
	_, err = NewScheme("leapfrog")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestBuildSimple(t *testing.T) {
	expected := []struct {
		kind Kind
		deps [MaxDependencies]int
	}{
		{InitiateCommunication, deps()},
		{ShockCapturingOwnedElements, deps()},
		{VolumeResidual, deps(1)},
		{CompleteCommunication, deps(0)},
		{ShockCapturingHaloElements, deps(3)},
		{SurfaceResidualHaloElements, deps(1, 4)},
		{BoundaryConditionsHalo, deps(1, 3)},
		{SumResidualHaloElements, deps(5)},
		{InitiateReverseCommunication, deps(7)},
		{SurfaceResidualOwnedElements, deps(1)},
		{BoundaryConditionsOwned, deps(1)},
		{CompleteReverseCommunication, deps(2, 8)},
		{SumResidualOwnedElements, deps(2, 6, 9, 10, 11)},
		{MultiplyInverseMassMatrix, deps(12)},
	}
	check := func(tl TaskList) {
		require.Len(t, tl, 14)
		for i, e := range expected {
			assert.Equal(t, e.kind, tl[i].Kind, "task %d", i)
			assert.Equal(t, e.deps, tl[i].Dependencies, "task %d", i)
			assert.Equal(t, 0, tl[i].TimeLevel)
			assert.Equal(t, -1, tl[i].IntegrationPoint)
		}
		assert.NoError(t, tl.Validate())
	}
	rk := Config{Scheme: SchemeRungeKutta, NumTimeLevels: 1}
	{ // Test the shape does not depend on the partition
		tl, err := Build(rk, nil)
		require.NoError(t, err)
		check(tl)
		tl, err = Build(rk, topology.NewTopology([]topology.LevelCounts{{}}))
		require.NoError(t, err)
		check(tl)
		tl, err = Build(rk, topology.NewTopology([]topology.LevelCounts{
			{Owned: 1000, Internal: 900, Halo: 50, LocalFaces: 2000, HaloFaces: 120, CommRequests: 3}}))
		require.NoError(t, err)
		check(tl)
	}
	{ // Test a spatial jacobian request uses the simple schedule for ADER too
		cfg := aderConfig(1, 3)
		cfg.SpatialJacobianOnly = true
		tl, err := Build(cfg, nil)
		require.NoError(t, err)
		check(tl)
	}
	{ // Test mismatched topology
		_, err := Build(rk, topology.NewTopology([]topology.LevelCounts{{}, {}}))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	}
}

// A single level partition with every kind of work and two integration
// points, checked task by task.
func TestBuildADERSingleLevel(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 4, Internal: 2, Halo: 2, LocalFaces: 3, HaloFaces: 2, CommRequests: 1},
	}, topology.Marker{Name: "wall", Kind: types.BC_Wall, FacesPerLevel: []int{2}})
	tl, err := Build(aderConfig(1, 2), topo)
	require.NoError(t, err)
	expected := []struct {
		kind  Kind
		deps  [MaxDependencies]int
		point int
	}{
		{PredictorStepCommElements, deps(), -1},                     // 0
		{InitiateCommunication, deps(0), -1},                        // 1
		{PredictorStepInternalElements, deps(), -1},                 // 2
		{CompleteCommunication, deps(1), -1},                        // 3
		{TimeInterpolateOwnedElements, deps(0, 2), 0},               // 4
		{ShockCapturingOwnedElements, deps(4), -1},                  // 5
		{TimeInterpolateHaloElements, deps(3), 0},                   // 6
		{ShockCapturingHaloElements, deps(6), -1},                   // 7
		{SurfaceResidualHaloElements, deps(5, 7), -1},               // 8
		{AccumulateSpaceTimeResidualHalo, deps(8), 0},               // 9
		{VolumeResidual, deps(5), -1},                               // 10
		{BoundaryConditionsOwned, deps(5), -1},                      // 11
		{SurfaceResidualOwnedElements, deps(5), -1},                 // 12
		{AccumulateSpaceTimeResidualOwned, deps(10, 11, 12, 8), 0},  // 13
		{TimeInterpolateOwnedElements, deps(10, 11, 8, 12), 1},      // 14
		{ShockCapturingOwnedElements, deps(14), -1},                 // 15
		{TimeInterpolateHaloElements, deps(8), 1},                   // 16
		{ShockCapturingHaloElements, deps(16), -1},                  // 17
		{SurfaceResidualHaloElements, deps(15, 17, 9), -1},          // 18
		{AccumulateSpaceTimeResidualHalo, deps(18), 1},              // 19
		{InitiateReverseCommunication, deps(19, 3), -1},             // 20
		{VolumeResidual, deps(15, 13), -1},                          // 21
		{BoundaryConditionsOwned, deps(15, 13), -1},                 // 22
		{SurfaceResidualOwnedElements, deps(15, 13), -1},            // 23
		{AccumulateSpaceTimeResidualOwned, deps(21, 22, 23, 18), 1}, // 24
		{CompleteReverseCommunication, deps(20, 24), -1},            // 25
		{MultiplyInverseMassMatrix, deps(25, 24), -1},               // 26
		{UpdateSolution, deps(26), -1},                              // 27
	}
	require.Len(t, tl, len(expected))
	for i, e := range expected {
		assert.Equal(t, e.kind, tl[i].Kind, "task %d", i)
		assert.Equal(t, e.deps, tl[i].Dependencies, "task %d %s", i, tl[i])
		assert.Equal(t, e.point, tl[i].IntegrationPoint, "task %d %s", i, tl[i])
		assert.False(t, tl[i].SecondHalfInterval)
	}
}

// Two levels, one integration point. Level 0 has owned internal, owned
// communication and halo elements, level 1 only owned internal elements.
func TestBuildADERTwoLevels(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 4, Internal: 2, Halo: 2, LocalFaces: 3, HaloFaces: 2, CommRequests: 1, AdjacentOwned: 1},
		{Owned: 3, Internal: 3, LocalFaces: 2},
	})
	tl, err := Build(aderConfig(2, 1), topo)
	require.NoError(t, err)
	require.NoError(t, tl.Validate())

	inSubStep := func(kind Kind, level, s int) (indices []int) {
		for _, i := range tl.Find(kind, level) {
			if tl[i].SubStep == s {
				indices = append(indices, i)
			}
		}
		return
	}
	{ // Test level 0 predicts and communicates in both sub-steps
		for s := 0; s < 2; s++ {
			assert.Len(t, inSubStep(PredictorStepCommElements, 0, s), 1)
			assert.Len(t, inSubStep(PredictorStepInternalElements, 0, s), 1)
			assert.Len(t, inSubStep(InitiateCommunication, 0, s), 1)
			assert.Len(t, inSubStep(CompleteCommunication, 0, s), 1)
			assert.Len(t, inSubStep(UpdateSolution, 0, s), 1)
		}
	}
	{ // Test level 1 is predicted once, ahead of the sub-step that updates it
		// The predictor of level L+1 runs in the sub-step of active level L,
		// since the level L interpolation reads the adjacent L+1 elements.
		// Predicting level 1 only in sub-step 1 would leave that read
		// without a producer.
		assert.Equal(t, 1, tl.Count(PredictorStepInternalElements, 1))
		assert.Equal(t, 0, tl.Count(PredictorStepCommElements, 1))
		assert.Len(t, inSubStep(PredictorStepInternalElements, 1, 0), 1)
		assert.Equal(t, 1, tl.Count(UpdateSolution, 1))
		assert.Len(t, inSubStep(UpdateSolution, 1, 1), 1)
		assert.Len(t, inSubStep(TimeInterpolateOwnedElements, 1, 0), 0)
	}
	{ // Test no communication at level 1
		for _, kind := range AllKinds() {
			if kind.IsCommunication() {
				assert.Equal(t, 0, tl.Count(kind, 1), kind.String())
			}
		}
	}
	{ // Test the level 0 interpolation reads the adjacent level 1 predictor
		pred1 := tl.Find(PredictorStepInternalElements, 1)[0]
		ti0 := inSubStep(TimeInterpolateOwnedElements, 0, 0)
		require.Len(t, ti0, 1)
		assert.True(t, tl[ti0[0]].DependsOn(pred1))
		assert.False(t, tl[ti0[0]].SecondHalfInterval)

		ti0 = inSubStep(TimeInterpolateOwnedElements, 0, 1)
		require.Len(t, ti0, 1)
		assert.True(t, tl[ti0[0]].SecondHalfInterval)
		assert.True(t, tl[ti0[0]].DependsOn(pred1))

		ti1 := inSubStep(TimeInterpolateOwnedElements, 1, 1)
		require.Len(t, ti1, 1)
		assert.True(t, tl[ti1[0]].DependsOn(pred1))
		assert.False(t, tl[ti1[0]].SecondHalfInterval)
	}
	{ // Test the level 1 mass matrix waits for the level 0 accumulation
		mass1 := tl.Find(MultiplyInverseMassMatrix, 1)
		require.Len(t, mass1, 1)
		acc0 := inSubStep(AccumulateSpaceTimeResidualOwned, 0, 1)
		acc1 := inSubStep(AccumulateSpaceTimeResidualOwned, 1, 1)
		require.Len(t, acc0, 1)
		require.Len(t, acc1, 1)
		assert.Equal(t, deps(acc1[0], acc0[0]), tl[mass1[0]].Dependencies)
	}
	{ // Test the predictor of the second sub-step waits for the first update
		upd0 := inSubStep(UpdateSolution, 0, 0)[0]
		for _, kind := range []Kind{PredictorStepCommElements, PredictorStepInternalElements} {
			p := inSubStep(kind, 0, 1)[0]
			assert.Equal(t, deps(upd0), tl[p].Dependencies)
		}
		// and the second exchange waits for the first reverse exchange
		init := inSubStep(InitiateCommunication, 0, 1)[0]
		rev := inSubStep(CompleteReverseCommunication, 0, 0)[0]
		assert.True(t, tl[init].DependsOn(rev))
	}
}

func TestBuildBoundaryDependencies(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 5, Internal: 5, Halo: 1, LocalFaces: 4, HaloFaces: 1, CommRequests: 1},
		{Owned: 2, Internal: 2, LocalFaces: 1},
	},
		topology.Marker{Name: "wall", Kind: types.BC_Wall, FacesPerLevel: []int{3, 0}},
		topology.Marker{Name: "periodic", Kind: types.BC_Periodic, FacesPerLevel: []int{2, 0}})
	for P := 1; P <= 3; P++ {
		tl, err := Build(aderConfig(2, P), topo)
		require.NoError(t, err)
		accs := tl.Find(AccumulateSpaceTimeResidualOwned, 0)
		require.Len(t, accs, 2*P)
		for _, acc := range accs {
			var bcOwned, bcHalo bool
			for _, d := range tl[acc].Deps() {
				bcOwned = bcOwned || tl[d].Kind == BoundaryConditionsOwned
				bcHalo = bcHalo || tl[d].Kind == BoundaryConditionsHalo
			}
			assert.True(t, bcOwned, "accumulation %d misses the owned boundary conditions", acc)
			assert.True(t, bcHalo, "accumulation %d misses the halo boundary conditions", acc)
		}
		// level 1 has no boundary faces
		assert.Equal(t, 0, tl.Count(BoundaryConditionsOwned, 1))
		assert.Equal(t, 0, tl.Count(BoundaryConditionsHalo, 1))
	}
}

func TestBuildPruning(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 3, Internal: 3, LocalFaces: 2},
		{Owned: 2, Internal: 1, Halo: 1, HaloFaces: 1, CommRequests: 2},
		{},
	})
	tl, err := Build(aderConfig(3, 2), topo)
	require.NoError(t, err)
	for _, kind := range AllKinds() {
		if kind.IsCommunication() {
			assert.Equal(t, 0, tl.Count(kind, 0), kind.String())
			assert.Equal(t, 0, tl.Count(kind, 2), kind.String())
		}
		// empty level
		assert.Equal(t, 0, tl.Count(kind, 2), kind.String())
	}
	assert.Equal(t, 0, tl.Count(SurfaceResidualHaloElements, 0))
	assert.Equal(t, 0, tl.Count(TimeInterpolateHaloElements, 0))
	assert.Equal(t, 0, tl.Count(BoundaryConditionsOwned, -1))
	assert.True(t, tl.Count(InitiateCommunication, 1) > 0)
	// The level 0 interpolation of the first point only has its own predictor
	for _, i := range tl.Find(TimeInterpolateOwnedElements, 0) {
		if tl[i].IntegrationPoint == 0 {
			require.Len(t, tl[i].Deps(), 1)
			assert.Equal(t, PredictorStepInternalElements, tl[tl[i].Deps()[0]].Kind)
		}
	}
	for i, task := range tl {
		for _, d := range task.Deps() {
			assert.True(t, d >= 0 && d < i)
		}
	}
}

func TestBuildSelfCommunication(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 4, Internal: 2, Halo: 2, HaloFaces: 2, SelfComm: true},
	})
	tl, err := Build(aderConfig(1, 1), topo)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.Count(InitiateCommunication, -1))
	cc := tl.Find(CompleteCommunication, 0)
	require.Len(t, cc, 1)
	assert.Equal(t, deps(tl.Find(PredictorStepCommElements, 0)[0],
		tl.Find(PredictorStepInternalElements, 0)[0]), tl[cc[0]].Dependencies)
	assert.Equal(t, 1, tl.Count(InitiateReverseCommunication, 0))
	assert.Equal(t, 1, tl.Count(CompleteReverseCommunication, 0))

	{ // Test complete communication is dropped when nothing resolves
		topo := topology.NewTopology([]topology.LevelCounts{{Owned: 2, Internal: 2, LocalFaces: 1}})
		tl, err := Build(aderConfig(1, 1), topo)
		require.NoError(t, err)
		assert.Equal(t, 0, tl.Count(CompleteCommunication, -1))
	}
	{ // Test self communication on a level with nothing to send is rejected
		topo := topology.NewTopology([]topology.LevelCounts{{Owned: 2, Internal: 2, LocalFaces: 3, SelfComm: true}})
		_, err := Build(aderConfig(1, 1), topo)
		assert.True(t, errors.Is(err, topology.ErrInvalidTopology))
	}
}

func TestBuildUpdateCounts(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 4, Internal: 3, Halo: 2, LocalFaces: 4, HaloFaces: 2, CommRequests: 1, AdjacentOwned: 1, AdjacentHalo: 1},
		{Owned: 3, Internal: 2, Halo: 2, LocalFaces: 2, HaloFaces: 1, CommRequests: 1, AdjacentOwned: 2},
		{Owned: 3, Internal: 3, LocalFaces: 2},
	}, topology.Marker{Name: "far", Kind: types.BC_Far, FacesPerLevel: []int{1, 1, 1}})
	for P := 1; P <= 4; P++ {
		tl, err := Build(aderConfig(3, P), topo)
		require.NoError(t, err)
		assert.Equal(t, 4, tl.Count(UpdateSolution, 0))
		assert.Equal(t, 2, tl.Count(UpdateSolution, 1))
		assert.Equal(t, 1, tl.Count(UpdateSolution, 2))
		assert.Equal(t, 4*P, tl.Count(VolumeResidual, 0))
		assert.Equal(t, 2*P, tl.Count(VolumeResidual, 1))
		assert.Equal(t, P, tl.Count(VolumeResidual, 2))
		// every level is predicted once per update
		for l := 0; l < 3; l++ {
			assert.Equal(t, tl.Count(UpdateSolution, l), tl.Count(PredictorStepInternalElements, l))
		}
		for _, i := range tl.Find(AccumulateSpaceTimeResidualOwned, -1) {
			assert.True(t, tl[i].IntegrationPoint >= 0 && tl[i].IntegrationPoint < P)
		}
		{ // Test determinism
			tl2, err := Build(aderConfig(3, P), topo)
			require.NoError(t, err)
			assert.Equal(t, tl, tl2)
		}
	}
}

func TestBuildReduction(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{
		{Owned: 4, Internal: 2, Halo: 2, LocalFaces: 3, HaloFaces: 2, CommRequests: 1},
	},
		topology.Marker{Name: "wall", Kind: types.BC_Wall, FacesPerLevel: []int{1}},
		topology.Marker{Name: "riemann", Kind: types.BC_Riemann, FacesPerLevel: []int{1}})
	simple, err := Build(Config{Scheme: SchemeRungeKutta, NumTimeLevels: 1}, topo)
	require.NoError(t, err)
	ader, err := Build(aderConfig(1, 1), topo)
	require.NoError(t, err)
	added := map[Kind]bool{
		PredictorStepCommElements: true, PredictorStepInternalElements: true,
		TimeInterpolateOwnedElements: true, TimeInterpolateHaloElements: true,
		AccumulateSpaceTimeResidualOwned: true, AccumulateSpaceTimeResidualHalo: true,
		UpdateSolution: true,
	}
	summed := map[Kind]bool{SumResidualOwnedElements: true, SumResidualHaloElements: true}
	for kind := range simple.Histogram() {
		if !summed[kind] {
			assert.Equal(t, 1, ader.Count(kind, 0), kind.String())
		}
	}
	for kind := range ader.Histogram() {
		if !added[kind] {
			assert.Equal(t, 1, simple.Count(kind, 0), kind.String())
		}
	}
}

func TestBuildInvariantSweep(t *testing.T) {
	shapes := []topology.LevelCounts{
		{},
		{Owned: 3, Internal: 3},
		{Owned: 3, Internal: 1, Halo: 2, HaloFaces: 2, CommRequests: 1},
		{Owned: 2, Internal: 1, LocalFaces: 3, SelfComm: true},
		{Halo: 2, HaloFaces: 1, CommRequests: 1},
		{Owned: 5, Internal: 2, Halo: 3, LocalFaces: 5, HaloFaces: 3, CommRequests: 2, SelfComm: true},
	}
	for M := 1; M <= 4; M++ {
		for P := 1; P <= 3; P++ {
			for shift := 0; shift < len(shapes); shift++ {
				levels := make([]topology.LevelCounts, M)
				for l := range levels {
					levels[l] = shapes[(l+shift)%len(shapes)]
				}
				for l := 0; l < M-1; l++ {
					if levels[l+1].Owned > 0 {
						levels[l].AdjacentOwned = 1
					}
					if levels[l+1].Halo > 0 {
						levels[l].AdjacentHalo = 1
					}
				}
				markers := []topology.Marker{{Name: "p", Kind: types.BC_Periodic, FacesPerLevel: make([]int, M)}}
				markers[0].FacesPerLevel[M-1] = 1
				topo := topology.NewTopology(levels, markers...)
				tl, err := Build(aderConfig(M, P), topo)
				require.NoError(t, err, "M=%d P=%d shift=%d", M, P, shift)
				for i, task := range tl {
					for _, d := range task.Deps() {
						require.True(t, d >= 0 && d < i, "task %d depends on %d", i, d)
					}
					assert.True(t, task.TimeLevel >= 0 && task.TimeLevel < M)
					assert.True(t, task.SubStep >= 0 && task.SubStep < aderConfig(M, P).NumSubSteps())
				}
			}
		}
	}
}

func TestBuilderInternalErrors(t *testing.T) {
	topo := topology.NewTopology([]topology.LevelCounts{{Owned: 1, Internal: 1}})
	b := &builder{cfg: aderConfig(1, 1), topo: topo, index: newIndexTable(1), point: 0}
	{ // Test a lookup outside the time levels
		_, err := b.index.lookup(VolumeResidual, 1)
		assert.True(t, errors.Is(err, ErrInternal))
		_, err = b.index.lookup(VolumeResidual, -1)
		assert.True(t, errors.Is(err, ErrInternal))
		assert.True(t, errors.Is(b.index.record(NumKinds, 0, 0), ErrInternal))
	}
	{ // Test a rule referencing a level that does not exist
		err := b.appendIfApplicable(rule{
			kind:  VolumeResidual,
			preds: []pred{{kind: UpdateSolution, shift: 1}},
		}, 0)
		assert.True(t, errors.Is(err, ErrInternal))
	}
	{ // Test more than five resolved predecessors
		for i := 0; i < 6; i++ {
			b.list = append(b.list, NewTask(VolumeResidual, 0))
		}
		kinds := []Kind{VolumeResidual, BoundaryConditionsOwned, BoundaryConditionsHalo,
			SurfaceResidualOwnedElements, SurfaceResidualHaloElements, ShockCapturingOwnedElements}
		var preds []pred
		for i, k := range kinds {
			require.NoError(t, b.index.record(k, 0, i))
			preds = append(preds, pred{kind: k})
		}
		err := b.appendIfApplicable(rule{kind: AccumulateSpaceTimeResidualOwned, preds: preds}, 0)
		assert.True(t, errors.Is(err, ErrInternal))
	}
}

func TestTaskList(t *testing.T) {
	tl := TaskList{
		NewTask(VolumeResidual, 0),
		NewTask(UpdateSolution, 0, 0),
	}
	require.NoError(t, tl.Validate())
	{ // Test forward and self references are rejected
		bad := TaskList{NewTask(VolumeResidual, 0, 0)}
		assert.True(t, errors.Is(bad.Validate(), ErrInvalidTaskList))
		bad = TaskList{NewTask(VolumeResidual, 0, 1), NewTask(UpdateSolution, 0)}
		assert.True(t, errors.Is(bad.Validate(), ErrInvalidTaskList))
		bad = TaskList{{Kind: Unspecified}}
		assert.Error(t, bad.Validate())
	}
	assert.Panics(t, func() { NewTask(VolumeResidual, 0, 1, 2, 3, 4, 5, 6) })
	assert.Equal(t, []int{0}, tl[1].Deps())
	assert.Nil(t, tl[0].Deps())
	assert.Equal(t, []Kind{VolumeResidual, UpdateSolution}, tl.Kinds())

	var buf bytes.Buffer
	require.NoError(t, tl.Format(&buf))
	assert.Contains(t, buf.String(), "Number of tasks: 2")
	assert.Contains(t, buf.String(), "UpdateSolution")

	k, err := NewKind("volumeresidual")
	require.NoError(t, err)
	assert.Equal(t, VolumeResidual, k)
	_, err = NewKind("Unspecified")
	assert.Error(t, err)
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Len(t, KindPrintNames, int(NumKinds))
}
