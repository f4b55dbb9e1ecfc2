package constraints

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

// ComparisonType tells how a constraint value is compared to its
// right-hand side.
type ComparisonType int

const (
	// Equality requires value == rhs.
	Equality ComparisonType = iota
	// Inferior requires value <= rhs.
	Inferior
	// Superior requires value >= rhs.
	Superior
)

// String returns the comparison name.
func (c ComparisonType) String() string {
	switch c {
	case Equality:
		return "equality"
	case Inferior:
		return "inferior"
	case Superior:
		return "superior"
	default:
		return fmt.Sprintf("comparison(%d)", int(c))
	}
}

// RightHandSideFunction gives the right-hand side of a constraint at a path
// parameter s.
type RightHandSideFunction func(s float64) []float64

// Implicit is a numerical constraint f(q) ⋈ rhs. It is immutable once built
// and shared by pointer; two constraints are the same only if they are the
// same pointer.
type Implicit struct {
	function   Function
	comparison ComparisonType
	rhsFunc    RightHandSideFunction
	explicit   *Explicit
}

// Option configures an Implicit constraint.
type Option func(*Implicit)

// WithComparison sets the comparison type. The default is Equality.
func WithComparison(c ComparisonType) Option {
	return func(i *Implicit) { i.comparison = c }
}

// WithRightHandSideFunction makes the right-hand side depend on the path
// parameter.
func WithRightHandSideFunction(fn RightHandSideFunction) Option {
	return func(i *Implicit) { i.rhsFunc = fn }
}

// NewImplicit wraps f into a constraint.
func NewImplicit(f Function, opts ...Option) (*Implicit, error) {
	if f == nil {
		return nil, ErrNilFunction
	}
	c := &Implicit{function: f, comparison: Equality}
	for _, opt := range opts {
		opt(c)
	}
	if c.rhsFunc != nil && c.comparison != Equality {
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrParameterizedInequality)
	}
	return c, nil
}

func (c *Implicit) Function() Function             { return c.function }
func (c *Implicit) Name() string                   { return c.function.Name() }
func (c *Implicit) Comparison() ComparisonType     { return c.comparison }
func (c *Implicit) Dimension() int                 { return c.function.OutputSize() }
func (c *Implicit) IsExplicit() bool               { return c.explicit != nil }
func (c *Implicit) Explicit() *Explicit            { return c.explicit }
func (c *Implicit) HasRightHandSideFunction() bool { return c.rhsFunc != nil }

// RightHandSideAt evaluates the right-hand-side function at s. It returns
// nil when the constraint has none.
func (c *Implicit) RightHandSideAt(s float64) []float64 {
	if c.rhsFunc == nil {
		return nil
	}
	return c.rhsFunc(s)
}

// residual compares value to rhs. For inequalities a satisfied row yields 0
// and is reported inactive.
func (c *Implicit) residual(value, rhs []float64) (errs []float64, active []bool) {
	errs = make([]float64, len(value))
	active = make([]bool, len(value))
	for i, v := range value {
		d := v - rhs[i]
		switch c.comparison {
		case Inferior:
			if d > 0 {
				errs[i], active[i] = d, true
			}
		case Superior:
			if d < 0 {
				errs[i], active[i] = d, true
			}
		default:
			errs[i], active[i] = d, true
		}
	}
	return errs, active
}

// Output locates the configuration block an explicit constraint writes.
type Output struct {
	Space   liegroup.Space
	Config  liegroup.Segment
	Tangent liegroup.Segment
}

// Explicit is the analytic part of an explicit constraint:
// q[out] = Integrate_out(g(q), rhs).
type Explicit struct {
	output Output
	inputs []liegroup.Segment
	g      Function
}

// Output returns the block written by the constraint.
func (e *Explicit) Output() Output { return e.output }

// Inputs returns the tangent columns the output depends on.
func (e *Explicit) Inputs() []liegroup.Segment { return e.inputs }

// OutputFunction returns g.
func (e *Explicit) OutputFunction() Function { return e.g }

// Solve returns the output block for q and right-hand side rhs.
func (e *Explicit) Solve(q, rhs []float64) []float64 {
	return e.output.Space.Integrate(e.g.Value(q), rhs)
}

// NewExplicit builds an explicit constraint on space. g maps a configuration
// to a configuration of out.Space and its Jacobian has out.Space.TangentSize
// rows; inputs lists the tangent columns g depends on. The returned
// constraint's function is the residual Difference_out(q[out], g(q)).
func NewExplicit(space liegroup.Space, out Output, inputs []liegroup.Segment, g Function) (*Implicit, error) {
	if g == nil {
		return nil, ErrNilFunction
	}
	if g.ConfigSize() != space.ConfigSize() || g.TangentSize() != space.TangentSize() {
		return nil, fmt.Errorf("%s: %w: function is %dx%d, space %s is %dx%d", g.Name(), ErrDimensionMismatch,
			g.ConfigSize(), g.TangentSize(), space.Name(), space.ConfigSize(), space.TangentSize())
	}
	if g.OutputSize() != out.Space.ConfigSize() ||
		out.Config.Size != out.Space.ConfigSize() ||
		out.Tangent.Size != out.Space.TangentSize() ||
		out.Config.End() > space.ConfigSize() ||
		out.Tangent.End() > space.TangentSize() {
		return nil, fmt.Errorf("%s: %w: output block does not fit %s", g.Name(), ErrDimensionMismatch, out.Space.Name())
	}
	for _, in := range inputs {
		if in.End() > space.TangentSize() {
			return nil, fmt.Errorf("%s: %w: input block exceeds tangent size", g.Name(), ErrDimensionMismatch)
		}
		if overlaps(in, out.Tangent) {
			return nil, fmt.Errorf("%s: %w: output depends on itself", g.Name(), ErrOverlappingExplicit)
		}
	}
	e := &Explicit{output: out, inputs: append([]liegroup.Segment(nil), inputs...), g: g}
	return &Implicit{
		function:   &explicitResidual{explicit: e, nv: space.TangentSize()},
		comparison: Equality,
		explicit:   e,
	}, nil
}

// NewLockedJoint fixes the output block to value, expressed as a
// configuration of out.Space. The right-hand side then offsets the locked
// value in the tangent of out.Space.
func NewLockedJoint(name string, space liegroup.Space, out Output, value []float64) (*Implicit, error) {
	if len(value) != out.Space.ConfigSize() {
		return nil, fmt.Errorf("%s: %w: locked value has %d coordinates", name, ErrDimensionMismatch, len(value))
	}
	locked := append([]float64(nil), value...)
	g := &FuncAdapter{
		FuncName:  name,
		NQ:        space.ConfigSize(),
		NV:        space.TangentSize(),
		NO:        out.Space.ConfigSize(),
		ValueFunc: func([]float64) []float64 { return append([]float64(nil), locked...) },
	}
	g.JacobianFunc = func([]float64) *mat.Dense {
		return mat.NewDense(out.Space.TangentSize(), space.TangentSize(), nil)
	}
	return NewExplicit(space, out, nil, g)
}

// explicitResidual is the implicit form Difference_out(q[out], g(q)).
type explicitResidual struct {
	explicit *Explicit
	nv       int
}

func (r *explicitResidual) Name() string     { return r.explicit.g.Name() }
func (r *explicitResidual) ConfigSize() int  { return r.explicit.g.ConfigSize() }
func (r *explicitResidual) TangentSize() int { return r.nv }
func (r *explicitResidual) OutputSize() int  { return r.explicit.output.Space.TangentSize() }

func (r *explicitResidual) Value(q []float64) []float64 {
	out := r.explicit.output
	return out.Space.Difference(q[out.Config.Start:out.Config.End()], r.explicit.g.Value(q))
}

func (r *explicitResidual) Jacobian(q []float64) *mat.Dense {
	out := r.explicit.output
	j := mat.NewDense(out.Tangent.Size, r.nv, nil)
	j.Sub(j, r.explicit.g.Jacobian(q))
	for i := 0; i < out.Tangent.Size; i++ {
		j.Set(i, out.Tangent.Start+i, j.At(i, out.Tangent.Start+i)+1)
	}
	return j
}

func overlaps(a, b liegroup.Segment) bool {
	return a.Size > 0 && b.Size > 0 && a.Start < b.End() && b.Start < a.End()
}
