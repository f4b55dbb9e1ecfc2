package projector

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/constraints"
)

// Cost is a scalar function minimized by Optimize.
type Cost interface {
	Value(q []float64) float64
	// Gradient returns the derivative of Value as a tangent vector.
	Gradient(q []float64) []float64
}

// ConstraintCost is 1/2 ||f(q) - target||^2 for the function of c. It is
// the usual way to turn a soft constraint into a cost.
func ConstraintCost(c *constraints.Implicit, target []float64) Cost {
	return &constraintCost{f: c.Function(), target: append([]float64(nil), target...)}
}

type constraintCost struct {
	f      constraints.Function
	target []float64
}

func (c *constraintCost) diff(q []float64) []float64 {
	d := c.f.Value(q)
	floats.Sub(d, c.target)
	return d
}

func (c *constraintCost) Value(q []float64) float64 {
	d := c.diff(q)
	return 0.5 * floats.Dot(d, d)
}

func (c *constraintCost) Gradient(q []float64) []float64 {
	d := c.diff(q)
	var g mat.VecDense
	g.MulVec(c.f.Jacobian(q).T(), mat.NewVecDense(len(d), d))
	return g.RawVector().Data
}
