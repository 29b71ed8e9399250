package topology

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/notargets/ltsched/types"
)

var ErrInvalidTopology = errors.New("invalid topology")

// Range is the half open index interval [Begin, End)
type Range struct {
	Begin, End int
}

func (r Range) Len() int {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

func (r Range) Empty() bool { return r.Len() == 0 }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Begin, r.End) }

// Marker is one boundary condition marker of the partition. FacesPerLevel
// holds the number of boundary faces of the marker in every time level.
type Marker struct {
	Name          string
	Kind          types.BCFLAG
	FacesPerLevel []int
	NeedsHalo     bool
}

func (m Marker) needsHalo() bool { return m.NeedsHalo || m.Kind.NeedsHalo() }

// LevelCounts describes one time level of a partition by counts. It is the
// convenient way to assemble a Topology by hand or from an input file.
type LevelCounts struct {
	Owned         int  `json:"Owned"`
	Internal      int  `json:"Internal"`
	Halo          int  `json:"Halo"`
	LocalFaces    int  `json:"LocalFaces"`
	HaloFaces     int  `json:"HaloFaces"`
	AdjacentOwned int  `json:"AdjacentOwned"`
	AdjacentHalo  int  `json:"AdjacentHalo"`
	CommRequests  int  `json:"CommRequests"`
	SelfComm      bool `json:"SelfComm"`
}

// Topology is the per time level layout of the locally stored elements and
// faces. Elements are reordered so that every (level, category) is
// contiguous: owned elements first, sorted by level and inside a level the
// internal ones before the communication ones, then the halo elements sorted
// by level. The prefix arrays have NumTimeLevels+1 entries.
type Topology struct {
	NumTimeLevels int
	Owned         []int // prefix of owned elements per level
	Internal      []int // owned internal elements per level, a count
	Halo          []int // prefix of halo elements per level
	LocalFaces    []int // prefix of faces between two local elements
	HaloFaces     []int // prefix of faces with a halo element
	// AdjOwned[l] is the number of owned elements of level l+1 that
	// neighbour elements of level l, likewise AdjHalo for halos.
	AdjOwned     []int
	AdjHalo      []int
	CommRequests []int
	SelfComm     []bool
	Markers      []Marker
}

func NewTopology(levels []LevelCounts, markers ...Marker) (topo *Topology) {
	var (
		M = len(levels)
	)
	topo = &Topology{
		NumTimeLevels: M,
		Owned:         make([]int, M+1),
		Internal:      make([]int, M),
		Halo:          make([]int, M+1),
		LocalFaces:    make([]int, M+1),
		HaloFaces:     make([]int, M+1),
		AdjOwned:      make([]int, M),
		AdjHalo:       make([]int, M),
		CommRequests:  make([]int, M),
		SelfComm:      make([]bool, M),
		Markers:       markers,
	}
	for l, lc := range levels {
		topo.Owned[l+1] = topo.Owned[l] + lc.Owned
		topo.Internal[l] = lc.Internal
		topo.Halo[l+1] = topo.Halo[l] + lc.Halo
		topo.LocalFaces[l+1] = topo.LocalFaces[l] + lc.LocalFaces
		topo.HaloFaces[l+1] = topo.HaloFaces[l] + lc.HaloFaces
		topo.AdjOwned[l] = lc.AdjacentOwned
		topo.AdjHalo[l] = lc.AdjacentHalo
		topo.CommRequests[l] = lc.CommRequests
		topo.SelfComm[l] = lc.SelfComm
	}
	return
}

func (topo *Topology) checkLevel(level int) {
	if level < 0 || level >= topo.NumTimeLevels {
		panic(fmt.Errorf("time level %d out of range [0,%d)", level, topo.NumTimeLevels))
	}
}

func (topo *Topology) NumOwned() int { return topo.Owned[topo.NumTimeLevels] }

func (topo *Topology) NumHalo() int { return topo.Halo[topo.NumTimeLevels] }

func (topo *Topology) NumLocalFaces() int { return topo.LocalFaces[topo.NumTimeLevels] }

func (topo *Topology) NumHaloFaces() int { return topo.HaloFaces[topo.NumTimeLevels] }

func (topo *Topology) OwnedRange(level int) Range {
	topo.checkLevel(level)
	return Range{topo.Owned[level], topo.Owned[level+1]}
}

func (topo *Topology) OwnedInternalRange(level int) Range {
	topo.checkLevel(level)
	return Range{topo.Owned[level], topo.Owned[level] + topo.Internal[level]}
}

func (topo *Topology) OwnedCommRange(level int) Range {
	topo.checkLevel(level)
	return Range{topo.Owned[level] + topo.Internal[level], topo.Owned[level+1]}
}

// HaloRange is offset by the number of owned elements, halo data is stored
// behind the owned data.
func (topo *Topology) HaloRange(level int) Range {
	topo.checkLevel(level)
	off := topo.NumOwned()
	return Range{off + topo.Halo[level], off + topo.Halo[level+1]}
}

func (topo *Topology) LocalFaceRange(level int) Range {
	topo.checkLevel(level)
	return Range{topo.LocalFaces[level], topo.LocalFaces[level+1]}
}

// HaloFaceRange is offset by the number of local faces
func (topo *Topology) HaloFaceRange(level int) Range {
	topo.checkLevel(level)
	off := topo.NumLocalFaces()
	return Range{off + topo.HaloFaces[level], off + topo.HaloFaces[level+1]}
}

// AdjacentOwned is the number of owned elements of level+1 that have to be
// time interpolated together with level. Zero for the highest level.
func (topo *Topology) AdjacentOwned(level int) int {
	topo.checkLevel(level)
	if level == topo.NumTimeLevels-1 {
		return 0
	}
	return topo.AdjOwned[level]
}

func (topo *Topology) AdjacentHalo(level int) int {
	topo.checkLevel(level)
	if level == topo.NumTimeLevels-1 {
		return 0
	}
	return topo.AdjHalo[level]
}

func (topo *Topology) HasCommunication(level int) bool {
	topo.checkLevel(level)
	return topo.CommRequests[level] > 0
}

func (topo *Topology) HasSelfCommunication(level int) bool {
	topo.checkLevel(level)
	return topo.SelfComm[level]
}

// BoundaryFaceRange locates the faces of marker in level. The faces of one
// marker are numbered contiguously by level.
func (topo *Topology) BoundaryFaceRange(marker, level int) Range {
	topo.checkLevel(level)
	var (
		faces = topo.Markers[marker].FacesPerLevel
		begin int
	)
	for l := 0; l < level; l++ {
		begin += faces[l]
	}
	return Range{begin, begin + faces[level]}
}

func (topo *Topology) HasBoundaryCondition(level int) bool {
	for m := range topo.Markers {
		if !topo.BoundaryFaceRange(m, level).Empty() {
			return true
		}
	}
	return false
}

func (topo *Topology) BoundaryConditionNeedsHalo(level int) bool {
	for m, marker := range topo.Markers {
		if marker.needsHalo() && !topo.BoundaryFaceRange(m, level).Empty() {
			return true
		}
	}
	return false
}

// NeedsOwnedInterpolation reports whether the owned solution of level has to
// be interpolated in time for a corrector integration point.
func (topo *Topology) NeedsOwnedInterpolation(level int) bool {
	return !topo.OwnedRange(level).Empty() || !topo.LocalFaceRange(level).Empty() ||
		!topo.HaloFaceRange(level).Empty() || topo.HasBoundaryCondition(level)
}

func (topo *Topology) NeedsHaloInterpolation(level int) bool {
	return !topo.HaloFaceRange(level).Empty() || topo.BoundaryConditionNeedsHalo(level)
}

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidTopology, format, args...)
}

func checkPrefix(name string, prefix []int, M int) error {
	if len(prefix) != M+1 {
		return invalidf("%s has %d entries, want %d", name, len(prefix), M+1)
	}
	if prefix[0] != 0 {
		return invalidf("%s must start at 0, got %d", name, prefix[0])
	}
	for l := 0; l < M; l++ {
		if prefix[l+1] < prefix[l] {
			return invalidf("%s decreases at level %d", name, l)
		}
	}
	return nil
}

func checkCounts(name string, counts []int, M int) error {
	if len(counts) != M {
		return invalidf("%s has %d entries, want %d", name, len(counts), M)
	}
	for l, c := range counts {
		if c < 0 {
			return invalidf("%s is negative at level %d", name, l)
		}
	}
	return nil
}

// Validate checks the structural consistency of the layout
func (topo *Topology) Validate() (err error) {
	var (
		M = topo.NumTimeLevels
	)
	if M < 1 {
		return invalidf("number of time levels must be at least 1, got %d", M)
	}
	for _, p := range []struct {
		name   string
		prefix []int
	}{
		{"Owned", topo.Owned}, {"Halo", topo.Halo},
		{"LocalFaces", topo.LocalFaces}, {"HaloFaces", topo.HaloFaces},
	} {
		if err = checkPrefix(p.name, p.prefix, M); err != nil {
			return
		}
	}
	for _, c := range []struct {
		name   string
		counts []int
	}{
		{"Internal", topo.Internal}, {"AdjOwned", topo.AdjOwned},
		{"AdjHalo", topo.AdjHalo}, {"CommRequests", topo.CommRequests},
	} {
		if err = checkCounts(c.name, c.counts, M); err != nil {
			return
		}
	}
	if len(topo.SelfComm) != M {
		return invalidf("SelfComm has %d entries, want %d", len(topo.SelfComm), M)
	}
	for l := 0; l < M; l++ {
		if topo.Internal[l] > topo.Owned[l+1]-topo.Owned[l] {
			return invalidf("level %d has %d internal elements but only %d owned",
				l, topo.Internal[l], topo.Owned[l+1]-topo.Owned[l])
		}
		if l == M-1 {
			if topo.AdjOwned[l] != 0 || topo.AdjHalo[l] != 0 {
				return invalidf("highest level %d can not have adjacent elements", l)
			}
		} else {
			if topo.AdjOwned[l] > topo.Owned[l+2]-topo.Owned[l+1] {
				return invalidf("level %d has %d adjacent owned elements, level %d only owns %d",
					l, topo.AdjOwned[l], l+1, topo.Owned[l+2]-topo.Owned[l+1])
			}
			if topo.AdjHalo[l] > topo.Halo[l+2]-topo.Halo[l+1] {
				return invalidf("level %d has %d adjacent halo elements, level %d only has %d",
					l, topo.AdjHalo[l], l+1, topo.Halo[l+2]-topo.Halo[l+1])
			}
		}
		if topo.CommRequests[l] > 0 && topo.OwnedCommRange(l).Empty() && topo.HaloRange(l).Empty() {
			return invalidf("level %d requests communication without communication or halo elements", l)
		}
		if topo.SelfComm[l] && topo.OwnedCommRange(l).Empty() && topo.HaloRange(l).Empty() {
			return invalidf("level %d has self communication without communication or halo elements", l)
		}
	}
	for m, marker := range topo.Markers {
		if len(marker.FacesPerLevel) != M {
			return invalidf("marker %q has %d levels, want %d", marker.Name, len(marker.FacesPerLevel), M)
		}
		for l, nf := range marker.FacesPerLevel {
			if nf < 0 {
				return invalidf("marker %d (%q) has a negative face count at level %d", m, marker.Name, l)
			}
		}
	}
	return
}
