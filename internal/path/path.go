package path

import (
	"fmt"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Interval is the closed time range [First, Second].
type Interval struct {
	First, Second float64
}

// Length is Second - First.
func (i Interval) Length() float64 { return i.Second - i.First }

// Contains reports whether t lies in the interval, with a relative
// tolerance on both ends.
func (i Interval) Contains(t float64) bool {
	tol := timeTolerance * max(1, abs(i.First), abs(i.Second))
	return t >= i.First-tol && t <= i.Second+tol
}

func (i Interval) String() string { return fmt.Sprintf("[%g, %g]", i.First, i.Second) }

const timeTolerance = 1e-12

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Path is a time-parameterized curve in a configuration space.
type Path interface {
	Space() liegroup.Space
	TimeRange() Interval
	// Length is the duration of the time range.
	Length() float64
	Initial() []float64
	End() []float64
	// Eval returns the constrained configuration at t and whether the
	// projection succeeded.
	Eval(t float64) ([]float64, bool)
	// Derivative returns the unconstrained velocity at t.
	Derivative(t float64) []float64
	// Extract restricts the path to sub, keeping its timing.
	Extract(sub Interval) (Path, error)
	Copy() Path
	// Constraints returns the owned constraint set, nil when
	// unconstrained.
	Constraints() *projector.ConstraintSet
	String() string
}

// base carries the fields every concrete path shares.
type base struct {
	space       liegroup.Space
	timeRange   Interval
	constraints *projector.ConstraintSet
}

func newBase(space liegroup.Space, tr Interval, cs *projector.ConstraintSet) base {
	return base{space: space, timeRange: tr, constraints: cs.Copy()}
}

func (b *base) Space() liegroup.Space                 { return b.space }
func (b *base) TimeRange() Interval                   { return b.timeRange }
func (b *base) Length() float64                       { return b.timeRange.Length() }
func (b *base) Constraints() *projector.ConstraintSet { return b.constraints }

// applyConstraints projects q with the right-hand side evaluated at t.
func (b *base) applyConstraints(t float64, q []float64) ([]float64, bool) {
	if b.constraints == nil {
		return q, true
	}
	if err := b.constraints.ConfigProjector().RightHandSideAt(t); err != nil {
		return q, false
	}
	return b.constraints.Apply(q)
}

// param maps t to [0, 1] over the time range. A zero-length range maps
// to 0.
func (b *base) param(t float64) float64 {
	dt := b.timeRange.Length()
	if dt == 0 {
		return 0
	}
	return (t - b.timeRange.First) / dt
}

func (b *base) checkSub(sub Interval) error {
	if sub.First > sub.Second || !b.timeRange.Contains(sub.First) || !b.timeRange.Contains(sub.Second) {
		return fmt.Errorf("%w: %s is not inside %s", ErrInvalidInterval, sub, b.timeRange)
	}
	return nil
}

func checkRange(tr Interval) error {
	if tr.First > tr.Second {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, tr)
	}
	return nil
}

// CheckPath verifies that both ends of p satisfy its constraints, with
// the right-hand side evaluated at each end.
func CheckPath(p Path) error {
	cs := p.Constraints()
	if cs == nil {
		return nil
	}
	tr := p.TimeRange()
	if err := cs.ConfigProjector().RightHandSideAt(tr.First); err != nil {
		return err
	}
	if !cs.IsSatisfied(p.Initial()) {
		return ErrInitialNotSatisfied
	}
	if err := cs.ConfigProjector().RightHandSideAt(tr.Second); err != nil {
		return err
	}
	if !cs.IsSatisfied(p.End()) {
		return ErrEndNotSatisfied
	}
	return nil
}

func clone(q []float64) []float64 { return append([]float64(nil), q...) }

func sameSpace(a, b liegroup.Space) bool {
	return a.Name() == b.Name() && a.ConfigSize() == b.ConfigSize() && a.TangentSize() == b.TangentSize()
}
