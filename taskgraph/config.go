package taskgraph

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

type Scheme uint8

const (
	SchemeRungeKutta Scheme = iota // synchronous stepping, one time level
	SchemeADER                     // space-time predictor-corrector with local time stepping
)

var (
	SchemeNames = map[string]Scheme{
		"rk":          SchemeRungeKutta,
		"rungekutta":  SchemeRungeKutta,
		"runge_kutta": SchemeRungeKutta,
		"ader":        SchemeADER,
		"ader_dg":     SchemeADER,
	}
	SchemePrintNames = []string{"RungeKutta", "ADER"}
)

func (s Scheme) Print() (txt string) {
	if int(s) >= len(SchemePrintNames) {
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
	txt = SchemePrintNames[s]
	return
}

func (s Scheme) String() string { return s.Print() }

func NewScheme(label string) (s Scheme, err error) {
	var ok bool
	if s, ok = SchemeNames[strings.ToLower(label)]; !ok {
		err = errors.Wrapf(ErrInvalidConfig, "unable to use time integration scheme named %s", label)
	}
	return
}

// MaxTimeLevels bounds 2^(M-1) sub-steps to a list size that still fits
// comfortably in memory.
const MaxTimeLevels = 16

var ErrInvalidConfig = errors.New("invalid task graph configuration")

type Config struct {
	Scheme               Scheme
	NumTimeLevels        int
	NumIntegrationPoints int
	// SpatialJacobianOnly requests the residual of the spatial
	// discretization only, the simple schedule is used for every scheme.
	SpatialJacobianOnly bool
}

// UsesSimpleSchedule reports whether Build emits the fixed 14 task list
func (c Config) UsesSimpleSchedule() bool {
	return c.Scheme != SchemeADER || c.SpatialJacobianOnly
}

func (c Config) Validate() error {
	if c.NumTimeLevels < 1 {
		return errors.Wrapf(ErrInvalidConfig, "number of time levels must be at least 1, got %d", c.NumTimeLevels)
	}
	if c.NumTimeLevels > MaxTimeLevels {
		return errors.Wrapf(ErrInvalidConfig, "number of time levels %d exceeds the maximum of %d",
			c.NumTimeLevels, MaxTimeLevels)
	}
	if int(c.Scheme) >= len(SchemePrintNames) {
		return errors.Wrapf(ErrInvalidConfig, "unknown time integration scheme %d", c.Scheme)
	}
	if c.UsesSimpleSchedule() {
		if c.NumTimeLevels != 1 {
			return errors.Wrapf(ErrInvalidConfig,
				"%s stepping is synchronous and needs exactly one time level, got %d",
				c.Scheme, c.NumTimeLevels)
		}
		return nil
	}
	if c.NumIntegrationPoints < 1 {
		return errors.Wrapf(ErrInvalidConfig, "number of time integration points must be at least 1, got %d",
			c.NumIntegrationPoints)
	}
	return nil
}

// NumSubSteps is 2^(M-1), the number of sub-steps of one global step
func (c Config) NumSubSteps() int {
	if c.UsesSimpleSchedule() {
		return 1
	}
	return 1 << uint(c.NumTimeLevels-1)
}

// ActiveLevel is the highest time level updated in sub-step s, the number of
// trailing zero bits of s+1.
func ActiveLevel(subStep int) int {
	return bits.TrailingZeros(uint(subStep + 1))
}

func (c Config) ActiveLevels() (levels []int) {
	levels = make([]int, c.NumSubSteps())
	for s := range levels {
		levels[s] = ActiveLevel(s)
	}
	return
}

func (c Config) String() string {
	return fmt.Sprintf("%s, %d time levels, %d integration points, spatial jacobian only %v",
		c.Scheme, c.NumTimeLevels, c.NumIntegrationPoints, c.SpatialJacobianOnly)
}
