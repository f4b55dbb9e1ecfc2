package constraints

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

// Function is a differentiable map from configurations to R^OutputSize.
type Function interface {
	Name() string
	ConfigSize() int
	TangentSize() int
	OutputSize() int
	// Value evaluates the function at q.
	Value(q []float64) []float64
	// Jacobian returns the OutputSize x TangentSize derivative at q.
	Jacobian(q []float64) *mat.Dense
}

// Affine is f(q) = A q + b on a vector space.
type Affine struct {
	name string
	a    *mat.Dense
	b    []float64
}

// NewAffine returns the affine function A q + b. A nil b means zero.
func NewAffine(name string, a *mat.Dense, b []float64) (*Affine, error) {
	r, _ := a.Dims()
	if b == nil {
		b = make([]float64, r)
	}
	if len(b) != r {
		return nil, fmt.Errorf("%w: affine offset has %d rows, matrix has %d", ErrDimensionMismatch, len(b), r)
	}
	return &Affine{name: name, a: mat.DenseCopyOf(a), b: append([]float64(nil), b...)}, nil
}

func (f *Affine) Name() string { return f.name }

func (f *Affine) ConfigSize() int {
	_, c := f.a.Dims()
	return c
}

func (f *Affine) TangentSize() int { return f.ConfigSize() }

func (f *Affine) OutputSize() int {
	r, _ := f.a.Dims()
	return r
}

func (f *Affine) Value(q []float64) []float64 {
	out := mat.NewVecDense(f.OutputSize(), nil)
	out.MulVec(f.a, mat.NewVecDense(len(q), append([]float64(nil), q...)))
	res := out.RawVector().Data
	floats.Add(res, f.b)
	return res
}

func (f *Affine) Jacobian([]float64) *mat.Dense {
	return mat.DenseCopyOf(f.a)
}

// SquaredDistance is ||q[block] - center||^2 over a Euclidean block of the
// configuration. The block must index both the configuration and the
// tangent vector, which holds for R^n factors.
type SquaredDistance struct {
	name    string
	nq, nv  int
	config  liegroup.Segment
	tangent liegroup.Segment
	center  []float64
}

// NewSquaredDistance builds the squared distance of a configuration block to
// center.
func NewSquaredDistance(name string, space liegroup.Space, config, tangent liegroup.Segment, center []float64) (*SquaredDistance, error) {
	if config.Size != tangent.Size || len(center) != config.Size {
		return nil, fmt.Errorf("%w: block sizes %d/%d, center %d", ErrDimensionMismatch, config.Size, tangent.Size, len(center))
	}
	if config.End() > space.ConfigSize() || tangent.End() > space.TangentSize() {
		return nil, fmt.Errorf("%w: block exceeds %s", ErrDimensionMismatch, space.Name())
	}
	return &SquaredDistance{
		name:    name,
		nq:      space.ConfigSize(),
		nv:      space.TangentSize(),
		config:  config,
		tangent: tangent,
		center:  append([]float64(nil), center...),
	}, nil
}

func (f *SquaredDistance) Name() string     { return f.name }
func (f *SquaredDistance) ConfigSize() int  { return f.nq }
func (f *SquaredDistance) TangentSize() int { return f.nv }
func (f *SquaredDistance) OutputSize() int  { return 1 }

func (f *SquaredDistance) Value(q []float64) []float64 {
	d := make([]float64, f.config.Size)
	floats.SubTo(d, q[f.config.Start:f.config.End()], f.center)
	return []float64{floats.Dot(d, d)}
}

func (f *SquaredDistance) Jacobian(q []float64) *mat.Dense {
	j := mat.NewDense(1, f.nv, nil)
	for i := 0; i < f.config.Size; i++ {
		j.Set(0, f.tangent.Start+i, 2*(q[f.config.Start+i]-f.center[i]))
	}
	return j
}

// FuncAdapter turns a pair of closures into a Function.
type FuncAdapter struct {
	FuncName   string
	NQ, NV, NO int
	ValueFunc  func(q []float64) []float64
	// JacobianFunc may be nil for functions that do not depend on q.
	JacobianFunc func(q []float64) *mat.Dense
}

func (f *FuncAdapter) Name() string     { return f.FuncName }
func (f *FuncAdapter) ConfigSize() int  { return f.NQ }
func (f *FuncAdapter) TangentSize() int { return f.NV }
func (f *FuncAdapter) OutputSize() int  { return f.NO }

func (f *FuncAdapter) Value(q []float64) []float64 {
	return f.ValueFunc(q)
}

func (f *FuncAdapter) Jacobian(q []float64) *mat.Dense {
	if f.JacobianFunc == nil {
		return mat.NewDense(f.NO, f.NV, nil)
	}
	return f.JacobianFunc(q)
}
