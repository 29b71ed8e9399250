package types

import (
	"fmt"
	"strings"
)

// BCFLAG identifies the physical kind of a boundary marker. The schedule only
// needs to know whether a kind reads halo data, the physics lives elsewhere.
type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_In
	BC_Dirichlet
	BC_Slip
	BC_Far
	BC_Wall
	BC_Cyl
	BC_Neuman
	BC_Out
	BC_Periodic
	BC_Riemann
)

var BCNameMap = map[string]BCFLAG{
	"none":      BC_None,
	"inflow":    BC_In,
	"in":        BC_In,
	"out":       BC_Out,
	"outflow":   BC_Out,
	"wall":      BC_Wall,
	"far":       BC_Far,
	"cyl":       BC_Cyl,
	"dirichlet": BC_Dirichlet,
	"neuman":    BC_Neuman,
	"slip":      BC_Slip,
	"periodic":  BC_Periodic,
	"riemann":   BC_Riemann,
}

var BCPrintNames = []string{
	"None", "Inflow", "Dirichlet", "Slip", "FarField", "Wall", "Cylinder",
	"Neuman", "Outflow", "Periodic", "Riemann",
}

func (bc BCFLAG) String() string {
	if int(bc) >= len(BCPrintNames) {
		return fmt.Sprintf("BCFLAG(%d)", uint8(bc))
	}
	return BCPrintNames[bc]
}

// NeedsHalo reports whether the boundary treatment of this kind reads
// solution data of halo elements. Periodic and characteristic (Riemann)
// conditions couple to the neighbour partition, the rest are local.
func (bc BCFLAG) NeedsHalo() bool {
	switch bc {
	case BC_Periodic, BC_Riemann:
		return true
	}
	return false
}

func NewBCFLAG(label string) (bc BCFLAG, err error) {
	var ok bool
	if bc, ok = BCNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use boundary condition named %s", label)
	}
	return
}
