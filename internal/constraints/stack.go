package constraints

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

// AddOption configures how a constraint enters the stack.
type AddOption func(*entry)

// WithPassiveDofs lists tangent columns the constraint must not act on. They
// are zeroed in its Jacobian rows.
func WithPassiveDofs(segments ...liegroup.Segment) AddOption {
	return func(e *entry) { e.passive = append(e.passive, segments...) }
}

type entry struct {
	constraint *Implicit
	rhs        []float64
	passive    []liegroup.Segment
}

func (e *entry) copy() *entry {
	return &entry{
		constraint: e.constraint,
		rhs:        append([]float64(nil), e.rhs...),
		passive:    e.passive,
	}
}

// Stack is a prioritized set of constraints. Level 0 has the highest
// priority. Explicit constraints live outside the levels and are solved by
// substitution.
type Stack struct {
	space        liegroup.Space
	levels       [][]*entry
	explicit     []*entry
	order        []*entry
	lastOptional bool
	partition    *Partition
}

// NewStack returns an empty stack over space.
func NewStack(space liegroup.Space) *Stack {
	return &Stack{space: space, partition: NewPartition(space.TangentSize())}
}

// Space returns the configuration space.
func (s *Stack) Space() liegroup.Space { return s.space }

// Add inserts c at the given priority. It returns false, leaving the stack
// untouched, when c is already present at any level. Explicit constraints
// ignore priority.
func (s *Stack) Add(c *Implicit, priority int, opts ...AddOption) (bool, error) {
	if c == nil {
		return false, ErrNilFunction
	}
	f := c.Function()
	if f.ConfigSize() != s.space.ConfigSize() || f.TangentSize() != s.space.TangentSize() {
		return false, fmt.Errorf("%s: %w: function is %dx%d, space %s is %dx%d", c.Name(), ErrDimensionMismatch,
			f.ConfigSize(), f.TangentSize(), s.space.Name(), s.space.ConfigSize(), s.space.TangentSize())
	}
	if s.Contains(c) {
		return false, nil
	}
	e := &entry{constraint: c, rhs: make([]float64, c.Dimension())}
	for _, opt := range opts {
		opt(e)
	}

	if x := c.Explicit(); x != nil {
		if err := s.checkExplicit(x); err != nil {
			return false, fmt.Errorf("%s: %w", c.Name(), err)
		}
		s.explicit = append(s.explicit, e)
		s.order = append(s.order, e)
		s.rebuildPartition()
		return true, nil
	}

	if priority < 0 {
		return false, fmt.Errorf("%s: %w", c.Name(), ErrNegativePriority)
	}
	for len(s.levels) <= priority {
		s.levels = append(s.levels, nil)
	}
	s.levels[priority] = append(s.levels[priority], e)
	s.order = append(s.order, e)
	return true, nil
}

func (s *Stack) checkExplicit(x *Explicit) error {
	out := x.Output().Tangent
	for _, other := range s.explicit {
		ox := other.constraint.Explicit()
		if overlaps(out, ox.Output().Tangent) {
			return ErrOverlappingExplicit
		}
		for _, in := range ox.Inputs() {
			if overlaps(out, in) {
				return ErrOverlappingExplicit
			}
		}
		for _, in := range x.Inputs() {
			if overlaps(in, ox.Output().Tangent) {
				return ErrOverlappingExplicit
			}
		}
	}
	return nil
}

func (s *Stack) rebuildPartition() {
	locked := make([]liegroup.Segment, 0, len(s.explicit))
	for _, e := range s.explicit {
		locked = append(locked, e.constraint.Explicit().Output().Tangent)
	}
	s.partition = NewPartition(s.space.TangentSize(), locked...)
}

// Contains reports whether c is in the stack.
func (s *Stack) Contains(c *Implicit) bool {
	return s.find(c) != nil
}

func (s *Stack) find(c *Implicit) *entry {
	for _, e := range s.order {
		if e.constraint == c {
			return e
		}
	}
	return nil
}

// LastIsOptional marks the highest-numbered level as optional: failing it
// does not make a projection fail.
func (s *Stack) LastIsOptional(optional bool) { s.lastOptional = optional }

// IsLastOptional reports whether the last level is optional.
func (s *Stack) IsLastOptional() bool { return s.lastOptional }

// Levels returns the number of priority levels.
func (s *Stack) Levels() int { return len(s.levels) }

// Constraints returns every constraint in insertion order.
func (s *Stack) Constraints() []*Implicit {
	out := make([]*Implicit, len(s.order))
	for i, e := range s.order {
		out[i] = e.constraint
	}
	return out
}

// Partition returns the current free/explicit split of the tangent space.
func (s *Stack) Partition() *Partition { return s.partition }

// NumberFreeVariables is the number of unknowns left after substitution.
func (s *Stack) NumberFreeVariables() int { return s.partition.NumberFreeVariables() }

// Dimension is the number of implicit rows over all levels. Explicit
// outputs are not counted since substitution always satisfies them.
func (s *Stack) Dimension() int {
	n := 0
	for _, level := range s.levels {
		n += levelRows(level)
	}
	return n
}

// HasExplicit reports whether the stack holds an explicit constraint.
func (s *Stack) HasExplicit() bool { return len(s.explicit) > 0 }

// Copy returns a stack with its own right-hand sides. Constraints are
// shared.
func (s *Stack) Copy() *Stack {
	clone := &Stack{
		space:        s.space,
		lastOptional: s.lastOptional,
		partition:    s.partition,
	}
	mapped := make(map[*entry]*entry, len(s.order))
	for _, e := range s.order {
		c := e.copy()
		mapped[e] = c
		clone.order = append(clone.order, c)
	}
	for _, e := range s.explicit {
		clone.explicit = append(clone.explicit, mapped[e])
	}
	clone.levels = make([][]*entry, len(s.levels))
	for i, level := range s.levels {
		for _, e := range level {
			clone.levels[i] = append(clone.levels[i], mapped[e])
		}
	}
	return clone
}

// Substitute overwrites the explicit outputs of q with their analytic
// values. q itself is not modified.
func (s *Stack) Substitute(q []float64) []float64 {
	out := append([]float64(nil), q...)
	for _, e := range s.explicit {
		x := e.constraint.Explicit()
		cfg := x.Output().Config
		copy(out[cfg.Start:cfg.End()], x.Solve(out, e.rhs))
	}
	return out
}

// Level is the evaluation of one priority level.
type Level struct {
	// Error is value - rhs for equalities and the signed violation for
	// inequalities.
	Error []float64
	// Jacobian is the reduced Jacobian, len(Error) x NumberFreeVariables.
	// It is nil when either dimension is zero.
	Jacobian *mat.Dense
}

// Evaluation holds one Level per priority level.
type Evaluation struct {
	Levels []Level
}

// Stacked concatenates every level.
func (ev Evaluation) Stacked() ([]float64, *mat.Dense) {
	var errs []float64
	var blocks []*mat.Dense
	cols := 0
	for _, l := range ev.Levels {
		errs = append(errs, l.Error...)
		if l.Jacobian != nil {
			blocks = append(blocks, l.Jacobian)
			_, cols = l.Jacobian.Dims()
		}
	}
	if len(blocks) == 0 {
		return errs, nil
	}
	j := mat.NewDense(len(errs), cols, nil)
	row := 0
	for _, l := range ev.Levels {
		if l.Jacobian != nil {
			r, _ := l.Jacobian.Dims()
			j.Slice(row, row+r, 0, cols).(*mat.Dense).Copy(l.Jacobian)
		}
		row += len(l.Error)
	}
	return errs, j
}

// Evaluate computes the error and reduced Jacobian of every level at q.
// Explicit outputs are not substituted first; callers that want the
// projected values call Substitute beforehand.
func (s *Stack) Evaluate(q []float64) Evaluation {
	ev := Evaluation{Levels: make([]Level, len(s.levels))}
	var gJacobians []*mat.Dense
	if len(s.explicit) > 0 {
		gJacobians = make([]*mat.Dense, len(s.explicit))
		for i, e := range s.explicit {
			gJacobians[i] = e.constraint.Explicit().OutputFunction().Jacobian(q)
		}
	}
	for i, level := range s.levels {
		ev.Levels[i] = s.evaluateLevel(level, q, gJacobians)
	}
	return ev
}

func (s *Stack) evaluateLevel(level []*entry, q []float64, gJacobians []*mat.Dense) Level {
	rows := levelRows(level)
	if rows == 0 {
		return Level{Error: []float64{}}
	}
	nv := s.space.TangentSize()
	errs := make([]float64, 0, rows)
	full := mat.NewDense(rows, nv, nil)

	row := 0
	for _, e := range level {
		c := e.constraint
		m := c.Dimension()
		value := c.Function().Value(q)
		ei, active := c.residual(value, e.rhs)
		errs = append(errs, ei...)
		block := full.Slice(row, row+m, 0, nv).(*mat.Dense)
		block.Copy(c.Function().Jacobian(q))
		for r, a := range active {
			if !a {
				for k := 0; k < nv; k++ {
					block.Set(r, k, 0)
				}
			}
		}
		row += m
	}

	// Explicit outputs move with their inputs: dq_out = J_g dq.
	for i, e := range s.explicit {
		out := e.constraint.Explicit().Output().Tangent
		var chain mat.Dense
		chain.Mul(full.Slice(0, rows, out.Start, out.End()), gJacobians[i])
		full.Add(full, &chain)
	}

	row = 0
	for _, e := range level {
		m := e.constraint.Dimension()
		for _, p := range e.passive {
			for k := p.Start; k < p.End(); k++ {
				for r := row; r < row+m; r++ {
					full.Set(r, k, 0)
				}
			}
		}
		row += m
	}

	return Level{Error: errs, Jacobian: s.partition.CompressMatrix(full, false)}
}

func levelRows(level []*entry) int {
	n := 0
	for _, e := range level {
		n += e.constraint.Dimension()
	}
	return n
}

// Errors returns the residual of each constraint in insertion order,
// explicit ones included.
func (s *Stack) Errors(q []float64) [][]float64 {
	out := make([][]float64, len(s.order))
	for i, e := range s.order {
		out[i], _ = e.constraint.residual(e.constraint.Function().Value(q), e.rhs)
	}
	return out
}

// ErrorOf returns the residual of c at q.
func (s *Stack) ErrorOf(c *Implicit, q []float64) ([]float64, error) {
	e := s.find(c)
	if e == nil {
		return nil, fmt.Errorf("%s: %w", c.Name(), ErrUnknownConstraint)
	}
	errs, _ := c.residual(c.Function().Value(q), e.rhs)
	return errs, nil
}

// RightHandSide concatenates the right-hand sides in insertion order.
func (s *Stack) RightHandSide() []float64 {
	var out []float64
	for _, e := range s.order {
		out = append(out, e.rhs...)
	}
	return out
}

// RightHandSideSize is the length of RightHandSide.
func (s *Stack) RightHandSideSize() int {
	n := 0
	for _, e := range s.order {
		n += len(e.rhs)
	}
	return n
}

// SetRightHandSide sets every right-hand side from one concatenated vector.
func (s *Stack) SetRightHandSide(v []float64) error {
	if len(v) != s.RightHandSideSize() {
		return fmt.Errorf("%w: got %d, want %d", ErrRightHandSideSize, len(v), s.RightHandSideSize())
	}
	off := 0
	for _, e := range s.order {
		copy(e.rhs, v[off:off+len(e.rhs)])
		off += len(e.rhs)
	}
	return nil
}

// RightHandSideOf returns a copy of the right-hand side of c.
func (s *Stack) RightHandSideOf(c *Implicit) ([]float64, bool) {
	e := s.find(c)
	if e == nil {
		return nil, false
	}
	return append([]float64(nil), e.rhs...), true
}

// SetRightHandSideOf sets the right-hand side of c.
func (s *Stack) SetRightHandSideOf(c *Implicit, v []float64) error {
	e := s.find(c)
	if e == nil {
		return fmt.Errorf("%s: %w", c.Name(), ErrUnknownConstraint)
	}
	if len(v) != len(e.rhs) {
		return fmt.Errorf("%s: %w: got %d, want %d", c.Name(), ErrRightHandSideSize, len(v), len(e.rhs))
	}
	copy(e.rhs, v)
	return nil
}

// RightHandSideFromConfig sets the right-hand side of every equality so
// that q satisfies it exactly, and returns the concatenated result.
// Inequalities keep their right-hand side.
func (s *Stack) RightHandSideFromConfig(q []float64) []float64 {
	for _, e := range s.order {
		s.setFromConfig(e, q)
	}
	return s.RightHandSide()
}

// RightHandSideFromConfigOf does the same as RightHandSideFromConfig for c
// only.
func (s *Stack) RightHandSideFromConfigOf(c *Implicit, q []float64) error {
	e := s.find(c)
	if e == nil {
		return fmt.Errorf("%s: %w", c.Name(), ErrUnknownConstraint)
	}
	s.setFromConfig(e, q)
	return nil
}

func (s *Stack) setFromConfig(e *entry, q []float64) {
	if e.constraint.Comparison() != Equality {
		return
	}
	copy(e.rhs, e.constraint.Function().Value(q))
}

// RightHandSideAt re-evaluates every parameterized right-hand side at s.
func (s *Stack) RightHandSideAt(param float64) error {
	for _, e := range s.order {
		if !e.constraint.HasRightHandSideFunction() {
			continue
		}
		v := e.constraint.RightHandSideAt(param)
		if len(v) != len(e.rhs) {
			return fmt.Errorf("%s: %w: function returned %d values, want %d",
				e.constraint.Name(), ErrRightHandSideSize, len(v), len(e.rhs))
		}
		copy(e.rhs, v)
	}
	return nil
}

// HasParameterizedRightHandSide reports whether any constraint has a
// right-hand-side function.
func (s *Stack) HasParameterizedRightHandSide() bool {
	for _, e := range s.order {
		if e.constraint.HasRightHandSideFunction() {
			return true
		}
	}
	return false
}
