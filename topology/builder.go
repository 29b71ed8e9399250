package topology

import (
	"sort"

	"github.com/pkg/errors"
)

type ElementStatus uint8

const (
	OwnedInternal ElementStatus = iota // no data of another rank needed
	OwnedComm                          // sent to or read by another rank
	HaloElement
)

var ElementStatusPrintNames = []string{"OwnedInternal", "OwnedComm", "Halo"}

func (es ElementStatus) Print() (txt string) {
	txt = ElementStatusPrintNames[es]
	return
}

// Element is the classification of one locally stored element as delivered
// by the partitioner, before reordering.
type Element struct {
	ID     int
	Level  int
	Status ElementStatus
}

type Face struct {
	ID       int
	Level    int
	WithHalo bool
}

// Builder assembles a Topology from unordered per element and per face
// classification and reports the reordering that realizes the layout.
type Builder struct {
	NumTimeLevels int
	Elements      []Element
	Faces         []Face
	AdjOwned      []int
	AdjHalo       []int
	CommRequests  []int
	SelfComm      []bool
	Markers       []Marker
}

func NewBuilder(numTimeLevels int) (b *Builder) {
	b = &Builder{
		NumTimeLevels: numTimeLevels,
		AdjOwned:      make([]int, numTimeLevels),
		AdjHalo:       make([]int, numTimeLevels),
		CommRequests:  make([]int, numTimeLevels),
		SelfComm:      make([]bool, numTimeLevels),
	}
	return
}

func (b *Builder) AddElement(id, level int, status ElementStatus) {
	b.Elements = append(b.Elements, Element{ID: id, Level: level, Status: status})
}

func (b *Builder) AddFace(id, level int, withHalo bool) {
	b.Faces = append(b.Faces, Face{ID: id, Level: level, WithHalo: withHalo})
}

func (b *Builder) elementKey(e Element) (owned, level, status int) {
	owned = 0
	if e.Status == HaloElement {
		owned = 1
	}
	return owned, e.Level, int(e.Status)
}

// Build returns the topology together with the element and face
// permutations: ElemOrder[i] is the ID of the element stored at position i,
// FaceOrder likewise. The ordering is stable in ID inside a range.
func (b *Builder) Build() (topo *Topology, ElemOrder, FaceOrder []int, err error) {
	var (
		M      = b.NumTimeLevels
		levels = make([]LevelCounts, M)
	)
	if M < 1 {
		err = invalidf("number of time levels must be at least 1, got %d", M)
		return
	}
	for _, e := range b.Elements {
		if e.Level < 0 || e.Level >= M {
			err = invalidf("element %d has time level %d outside [0,%d)", e.ID, e.Level, M)
			return
		}
		switch e.Status {
		case OwnedInternal:
			levels[e.Level].Owned++
			levels[e.Level].Internal++
		case OwnedComm:
			levels[e.Level].Owned++
		case HaloElement:
			levels[e.Level].Halo++
		default:
			err = invalidf("element %d has unknown status %d", e.ID, e.Status)
			return
		}
	}
	for _, f := range b.Faces {
		if f.Level < 0 || f.Level >= M {
			err = invalidf("face %d has time level %d outside [0,%d)", f.ID, f.Level, M)
			return
		}
		if f.WithHalo {
			levels[f.Level].HaloFaces++
		} else {
			levels[f.Level].LocalFaces++
		}
	}
	for l := 0; l < M; l++ {
		levels[l].AdjacentOwned = b.AdjOwned[l]
		levels[l].AdjacentHalo = b.AdjHalo[l]
		levels[l].CommRequests = b.CommRequests[l]
		levels[l].SelfComm = b.SelfComm[l]
	}
	topo = NewTopology(levels, b.Markers...)
	if err = topo.Validate(); err != nil {
		topo = nil
		err = errors.Wrap(err, "building topology")
		return
	}

	elems := make([]Element, len(b.Elements))
	copy(elems, b.Elements)
	sort.SliceStable(elems, func(i, j int) bool {
		oi, li, si := b.elementKey(elems[i])
		oj, lj, sj := b.elementKey(elems[j])
		switch {
		case oi != oj:
			return oi < oj
		case li != lj:
			return li < lj
		case si != sj:
			return si < sj
		}
		return elems[i].ID < elems[j].ID
	})
	ElemOrder = make([]int, len(elems))
	for i, e := range elems {
		ElemOrder[i] = e.ID
	}

	faces := make([]Face, len(b.Faces))
	copy(faces, b.Faces)
	sort.SliceStable(faces, func(i, j int) bool {
		fi, fj := faces[i], faces[j]
		switch {
		case fi.WithHalo != fj.WithHalo:
			return !fi.WithHalo
		case fi.Level != fj.Level:
			return fi.Level < fj.Level
		}
		return fi.ID < fj.ID
	})
	FaceOrder = make([]int, len(faces))
	for i, f := range faces {
		FaceOrder[i] = f.ID
	}
	return
}
