package taskgraph

import (
	"fmt"
	"strings"
)

// Kind is the phase a task carries out
type Kind uint8

const (
	Unspecified Kind = iota
	PredictorStepCommElements
	PredictorStepInternalElements
	InitiateCommunication
	CompleteCommunication
	InitiateReverseCommunication
	CompleteReverseCommunication
	TimeInterpolateOwnedElements
	TimeInterpolateHaloElements
	ShockCapturingOwnedElements
	ShockCapturingHaloElements
	VolumeResidual
	SurfaceResidualOwnedElements
	SurfaceResidualHaloElements
	BoundaryConditionsOwned
	BoundaryConditionsHalo
	SumResidualOwnedElements
	SumResidualHaloElements
	AccumulateSpaceTimeResidualOwned
	AccumulateSpaceTimeResidualHalo
	MultiplyInverseMassMatrix
	UpdateSolution
	NumKinds
)

var (
	KindPrintNames = []string{
		"Unspecified",
		"PredictorStepCommElements",
		"PredictorStepInternalElements",
		"InitiateCommunication",
		"CompleteCommunication",
		"InitiateReverseCommunication",
		"CompleteReverseCommunication",
		"TimeInterpolateOwnedElements",
		"TimeInterpolateHaloElements",
		"ShockCapturingOwnedElements",
		"ShockCapturingHaloElements",
		"VolumeResidual",
		"SurfaceResidualOwnedElements",
		"SurfaceResidualHaloElements",
		"BoundaryConditionsOwned",
		"BoundaryConditionsHalo",
		"SumResidualOwnedElements",
		"SumResidualHaloElements",
		"AccumulateSpaceTimeResidualOwned",
		"AccumulateSpaceTimeResidualHalo",
		"MultiplyInverseMassMatrix",
		"UpdateSolution",
	}
	KindNames = func() (names map[string]Kind) {
		names = make(map[string]Kind, len(KindPrintNames))
		for k, name := range KindPrintNames {
			names[strings.ToLower(name)] = Kind(k)
		}
		return
	}()
)

func (k Kind) String() string {
	if k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return KindPrintNames[k]
}

func (k Kind) Print() (txt string) {
	txt = k.String()
	return
}

func NewKind(label string) (k Kind, err error) {
	var ok bool
	if k, ok = KindNames[strings.ToLower(label)]; !ok || k == Unspecified {
		err = fmt.Errorf("unable to use task kind named %s", label)
	}
	return
}

// IsCommunication is true for the four message passing kinds
func (k Kind) IsCommunication() bool {
	switch k {
	case InitiateCommunication, CompleteCommunication,
		InitiateReverseCommunication, CompleteReverseCommunication:
		return true
	}
	return false
}

func (k Kind) IsPredictor() bool {
	return k == PredictorStepCommElements || k == PredictorStepInternalElements
}

// AllKinds lists every schedulable kind in declaration order
func AllKinds() (kinds []Kind) {
	for k := PredictorStepCommElements; k < NumKinds; k++ {
		kinds = append(kinds, k)
	}
	return
}
