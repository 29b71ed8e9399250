package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/notargets/ltsched/taskgraph"
	"github.com/notargets/ltsched/topology"
	"github.com/notargets/ltsched/types"
)

const (
	ExecutorSequential = "sequential"
	ExecutorConcurrent = "concurrent"
)

var ErrInvalidInput = errors.New("invalid input parameters")

type MarkerParameters struct {
	Type          string `json:"Type"` // boundary condition name, e.g. Wall or Periodic
	FacesPerLevel []int  `json:"FacesPerLevel"`
	NeedsHalo     bool   `json:"NeedsHalo"`
}

// Parameters obtained from the YAML input file
type InputParametersLTS struct {
	Title                string                      `json:"Title"`
	TimeIntegration      string                      `json:"TimeIntegration"`
	SpatialJacobianOnly  bool                        `json:"SpatialJacobianOnly"`
	NumTimeLevels        int                         `json:"NumTimeLevels"` // Defaults to the number of Levels
	NumIntegrationPoints int                         `json:"NumIntegrationPoints"`
	ParallelDegree       int                         `json:"ParallelDegree"` // Element loop degree inside a kernel
	Workers              int                         `json:"Workers"`
	Executor             string                      `json:"Executor"`
	Steps                int                         `json:"Steps"`
	TimeStep             float64                     `json:"TimeStep"`
	Levels               []topology.LevelCounts      `json:"Levels"`
	Markers              map[string]MarkerParameters `json:"Markers"` // Key is the marker name
}

func (ip *InputParametersLTS) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return
}

func (ip *InputParametersLTS) setDefaults() {
	if ip.NumTimeLevels == 0 {
		ip.NumTimeLevels = len(ip.Levels)
	}
	if len(ip.TimeIntegration) == 0 {
		ip.TimeIntegration = "ADER"
	}
	if len(ip.Executor) == 0 {
		ip.Executor = ExecutorSequential
	}
	ip.Executor = strings.ToLower(ip.Executor)
	if ip.Workers == 0 {
		ip.Workers = 1
	}
	if ip.ParallelDegree == 0 {
		ip.ParallelDegree = 1
	}
	if ip.NumIntegrationPoints == 0 {
		ip.NumIntegrationPoints = 1
	}
	if ip.Steps == 0 {
		ip.Steps = 1
	}
}

func (ip *InputParametersLTS) markerNames() (keys []string) {
	keys = make([]string, 0, len(ip.Markers))
	for k := range ip.Markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func (ip *InputParametersLTS) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t\t= Time Integration\n", ip.TimeIntegration)
	fmt.Printf("[%v]\t\t\t= Spatial Jacobian Only\n", ip.SpatialJacobianOnly)
	fmt.Printf("[%d]\t\t\t\t= Time Levels\n", ip.NumTimeLevels)
	fmt.Printf("[%d]\t\t\t\t= Integration Points\n", ip.NumIntegrationPoints)
	fmt.Printf("[%s/%d]\t\t= Executor/Workers\n", ip.Executor, ip.Workers)
	fmt.Printf("%8.5f\t\t= TimeStep\n", ip.TimeStep)
	fmt.Printf("[%d]\t\t\t\t= Steps\n", ip.Steps)
	for l, lc := range ip.Levels {
		fmt.Printf("Levels[%d] = %+v\n", l, lc)
	}
	for _, key := range ip.markerNames() {
		fmt.Printf("Markers[%s] = %+v\n", key, ip.Markers[key])
	}
}

func (ip *InputParametersLTS) Validate() (err error) {
	if _, err = ip.Config(); err != nil {
		return
	}
	if _, err = ip.Topology(); err != nil {
		return
	}
	switch ip.Executor {
	case ExecutorSequential, ExecutorConcurrent:
	default:
		return errors.Wrapf(ErrInvalidInput, "unknown executor %q", ip.Executor)
	}
	if ip.Workers < 1 || ip.ParallelDegree < 1 {
		return errors.Wrapf(ErrInvalidInput, "workers (%d) and parallel degree (%d) must be positive",
			ip.Workers, ip.ParallelDegree)
	}
	if ip.Steps < 1 {
		return errors.Wrapf(ErrInvalidInput, "number of steps must be positive, got %d", ip.Steps)
	}
	if !(ip.TimeStep > 0) {
		return errors.Wrapf(ErrInvalidInput, "time step must be positive, got %g", ip.TimeStep)
	}
	return
}

func (ip *InputParametersLTS) Config() (cfg taskgraph.Config, err error) {
	if cfg.Scheme, err = taskgraph.NewScheme(ip.TimeIntegration); err != nil {
		return
	}
	cfg.NumTimeLevels = ip.NumTimeLevels
	cfg.NumIntegrationPoints = ip.NumIntegrationPoints
	cfg.SpatialJacobianOnly = ip.SpatialJacobianOnly
	err = cfg.Validate()
	return
}

// Topology assembles the partition layout, markers are ordered by name
func (ip *InputParametersLTS) Topology() (topo *topology.Topology, err error) {
	if len(ip.Levels) != ip.NumTimeLevels {
		return nil, errors.Wrapf(ErrInvalidInput, "%d levels given for %d time levels",
			len(ip.Levels), ip.NumTimeLevels)
	}
	var markers []topology.Marker
	for _, name := range ip.markerNames() {
		mp := ip.Markers[name]
		var bc types.BCFLAG
		if bc, err = types.NewBCFLAG(mp.Type); err != nil {
			return nil, errors.Wrapf(ErrInvalidInput, "marker %s: %v", name, err)
		}
		markers = append(markers, topology.Marker{
			Name:          name,
			Kind:          bc,
			FacesPerLevel: mp.FacesPerLevel,
			NeedsHalo:     mp.NeedsHalo,
		})
	}
	topo = topology.NewTopology(ip.Levels, markers...)
	if err = topo.Validate(); err != nil {
		return nil, err
	}
	return
}
