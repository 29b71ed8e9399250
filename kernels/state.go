package kernels

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/notargets/ltsched/taskgraph"
	"github.com/notargets/ltsched/topology"
	"github.com/notargets/ltsched/utils"
)

var log = logrus.WithField("pkg", "kernels")

var (
	ErrInvalidModel      = errors.New("invalid model")
	ErrInconsistentState = errors.New("inconsistent element state")
)

// Model is the element data of the partition in topology order: owned
// elements first. Every element obeys du/dt = Rate, so the exact solution
// at time t is U0 + t*Rate.
type Model struct {
	U0     []float64
	Rate   []float64
	Volume []float64
}

// NewLinearModel fills a model for numOwned elements with distinct data
func NewLinearModel(numOwned int) (m Model) {
	m = Model{
		U0:     make([]float64, numOwned),
		Rate:   make([]float64, numOwned),
		Volume: make([]float64, numOwned),
	}
	for k := 0; k < numOwned; k++ {
		m.U0[k] = 1 + 0.1*float64(k)
		m.Rate[k] = float64(k%5) - 2 + 0.25*float64(k%3)
		m.Volume[k] = 1 + 0.5*float64(k%4)
	}
	return
}

type message struct {
	slot int
	u, t float64
}

// State holds the per element data the reference kernels operate on. Owned
// elements are stored first, the halo elements behind them. Halo slots of a
// level mirror the owned communication elements of the same level, which
// turns the forward exchange into a loopback of the partition onto itself.
// Halo slots of a level without communication elements keep a constant
// state.
type State struct {
	Cfg      taskgraph.Config
	Topo     *topology.Topology
	DT       float64
	Parallel int // degree of the element loops inside one kernel

	U, T    []float64 // solution and local time of the owned elements
	Updates []int     // solution updates per owned element

	Exchanges        []int // completed forward exchanges per level
	ReverseExchanges []int

	u0, rate, mass []float64
	source         []int // mirrored owned element per halo slot, -1 for none

	predU, predT     []float64
	interpU, interpT []float64
	sensor           []float64
	resVol           []float64
	sum, acc, du     []float64
	haloWeight       []float64

	x, w    []float64 // integration points and weights on [0,1]
	invMass []*sparse.CSR

	fwd, rev []*utils.MailBox[message]

	scratch [][]float64 // one per executor worker

	counters
}

// NewState sets up the model for cfg and topo. workers is the number of
// executor workers that may run kernels at the same time.
func NewState(cfg taskgraph.Config, topo *topology.Topology, model Model, dt float64, workers int) (s *State, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if topo == nil {
		return nil, errors.Wrap(ErrInvalidModel, "a topology is required")
	}
	if err = topo.Validate(); err != nil {
		return
	}
	if topo.NumTimeLevels != cfg.NumTimeLevels {
		return nil, errors.Wrapf(ErrInvalidModel, "topology has %d time levels, configuration %d",
			topo.NumTimeLevels, cfg.NumTimeLevels)
	}
	var (
		nOwned = topo.NumOwned()
		nHalo  = topo.NumHalo()
		n      = nOwned + nHalo
		M      = topo.NumTimeLevels
	)
	for name, v := range map[string][]float64{"U0": model.U0, "Rate": model.Rate, "Volume": model.Volume} {
		if len(v) != nOwned {
			return nil, errors.Wrapf(ErrInvalidModel, "%s has %d entries, the partition owns %d elements",
				name, len(v), nOwned)
		}
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, errors.Wrapf(ErrInvalidModel, "time step %g", dt)
	}
	if workers < 1 {
		workers = 1
	}
	s = &State{
		Cfg:              cfg,
		Topo:             topo,
		DT:               dt,
		Parallel:         1,
		U:                make([]float64, nOwned),
		T:                make([]float64, nOwned),
		Updates:          make([]int, nOwned),
		Exchanges:        make([]int, M),
		ReverseExchanges: make([]int, M),
		u0:               make([]float64, n),
		rate:             make([]float64, n),
		mass:             make([]float64, nOwned),
		source:           make([]int, nHalo),
		predU:            make([]float64, n),
		predT:            make([]float64, n),
		interpU:          make([]float64, n),
		interpT:          make([]float64, n),
		sensor:           make([]float64, n),
		resVol:           make([]float64, nOwned),
		sum:              make([]float64, nOwned),
		acc:              make([]float64, nOwned),
		du:               make([]float64, nOwned),
		haloWeight:       make([]float64, n),
		invMass:          make([]*sparse.CSR, M),
		fwd:              make([]*utils.MailBox[message], M),
		rev:              make([]*utils.MailBox[message], M),
		scratch:          make([][]float64, workers),
	}
	for k := 0; k < nOwned; k++ {
		if !(model.Volume[k] > 0) {
			return nil, errors.Wrapf(ErrInvalidModel, "element %d has volume %g", k, model.Volume[k])
		}
		s.u0[k], s.rate[k], s.mass[k] = model.U0[k], model.Rate[k], model.Volume[k]
		s.U[k] = model.U0[k]
	}
	var maxLevel int
	for l := 0; l < M; l++ {
		var (
			owned = topo.OwnedRange(l)
			comm  = topo.OwnedCommRange(l)
			halo  = topo.HaloRange(l)
		)
		maxLevel = max(maxLevel, owned.Len())
		for h := halo.Begin; h < halo.End; h++ {
			src := -1
			if !comm.Empty() {
				src = comm.Begin + (h-halo.Begin)%comm.Len()
			}
			s.source[h-nOwned] = src
			if src >= 0 {
				s.u0[h], s.rate[h] = s.u0[src], s.rate[src]
			} else {
				s.u0[h], s.rate[h] = 1, 0
			}
			s.predU[h] = s.u0[h]
		}
		s.invMass[l] = inverseMass(s.mass[owned.Begin:owned.End])
		s.fwd[l] = utils.NewMailBox[message](1)
		s.rev[l] = utils.NewMailBox[message](1)
	}
	for w := range s.scratch {
		s.scratch[w] = make([]float64, maxLevel)
	}
	if cfg.UsesSimpleSchedule() {
		s.x, s.w = []float64{0}, []float64{1}
	} else {
		s.x = make([]float64, cfg.NumIntegrationPoints)
		s.w = make([]float64, cfg.NumIntegrationPoints)
		quad.Legendre{}.FixedLocations(s.x, s.w, 0, 1)
	}
	log.WithFields(logrus.Fields{
		"owned":  nOwned,
		"halo":   nHalo,
		"levels": M,
		"dt":     dt,
	}).Debug("model state initialised")
	return
}

// inverseMass is the diagonal inverse mass matrix of one level
func inverseMass(mass []float64) *sparse.CSR {
	if len(mass) == 0 {
		return nil
	}
	dok := sparse.NewDOK(len(mass), len(mass))
	for i, m := range mass {
		dok.Set(i, i, 1/m)
	}
	return dok.ToCSR()
}

// StepSize is the step of level, the global step divided among the
// sub-steps of the finest level.
func (s *State) StepSize(level int) float64 {
	return s.DT * float64(int(1)<<level) / float64(s.Cfg.NumSubSteps())
}

func (s *State) simple() bool { return s.Cfg.UsesSimpleSchedule() }

func (s *State) isHalo(k int) bool { return k >= len(s.U) }

// Exact is the analytic solution of element k at time t
func (s *State) Exact(k int, t float64) float64 { return s.u0[k] + t*s.rate[k] }

// AdvanceExplicit applies the residual left behind by one traversal of the
// simple list as an explicit Euler step of size dt.
func (s *State) AdvanceExplicit(dt float64) (err error) {
	if !s.simple() {
		return errors.Wrapf(ErrInconsistentState, "explicit advance of a %s state", s.Cfg.Scheme)
	}
	for k := range s.U {
		s.U[k] += dt * s.du[k]
		s.T[k] += dt
		s.Updates[k]++
	}
	return
}

// CheckSolution compares every owned element with the analytic solution at
// time t.
func (s *State) CheckSolution(t float64) (err error) {
	for k := range s.U {
		if !nearlyEqual(s.T[k], t) {
			return errors.Wrapf(ErrInconsistentState, "element %d is at t=%g, want %g", k, s.T[k], t)
		}
		if exact := s.Exact(k, t); !nearlyEqual(s.U[k], exact) {
			return errors.Wrapf(ErrInconsistentState, "element %d has u=%g, exact %g", k, s.U[k], exact)
		}
	}
	return
}

func (s *State) String() string {
	return fmt.Sprintf("%d owned elements, dt=%g, %s", len(s.U), s.DT, s.Cfg)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
