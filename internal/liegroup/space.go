// Package liegroup provides the configuration manifolds the projector works on.
//
// A configuration is a []float64 of length ConfigSize. A tangent vector is a
// []float64 of length TangentSize. Configurations are never combined with
// flat vector arithmetic: Difference and Integrate are the only way to move
// between two configurations, so orientation-like coordinates compose
// correctly.
package liegroup

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrSizeMismatch is returned when a vector does not match the space size.
var ErrSizeMismatch = errors.New("vector size does not match space")

// Space is a configuration manifold.
type Space interface {
	// Name identifies the space, e.g. "R^3" or "SO(2)xR^2".
	Name() string
	// ConfigSize is the number of coordinates of a configuration.
	ConfigSize() int
	// TangentSize is the dimension of the tangent space.
	TangentSize() int
	// Neutral returns the identity configuration.
	Neutral() []float64
	// Difference returns v such that Integrate(q0, v) == q1.
	Difference(q1, q0 []float64) []float64
	// Integrate retracts q by the tangent displacement v.
	Integrate(q, v []float64) []float64
}

// Distance is the norm of the tangent difference between two configurations.
func Distance(s Space, q0, q1 []float64) float64 {
	return floats.Norm(s.Difference(q1, q0), 2)
}

// CheckConfig verifies that q has the configuration size of s.
func CheckConfig(s Space, q []float64) error {
	if len(q) != s.ConfigSize() {
		return fmt.Errorf("%w: configuration of %s has %d coordinates, got %d",
			ErrSizeMismatch, s.Name(), s.ConfigSize(), len(q))
	}
	return nil
}

// CheckTangent verifies that v has the tangent size of s.
func CheckTangent(s Space, v []float64) error {
	if len(v) != s.TangentSize() {
		return fmt.Errorf("%w: tangent of %s has %d coordinates, got %d",
			ErrSizeMismatch, s.Name(), s.TangentSize(), len(v))
	}
	return nil
}

// --- R^n ---

// Vector is the Euclidean space R^n.
type Vector struct {
	n int
}

// NewVector returns R^n.
func NewVector(n int) *Vector {
	return &Vector{n: n}
}

func (v *Vector) Name() string      { return fmt.Sprintf("R^%d", v.n) }
func (v *Vector) ConfigSize() int   { return v.n }
func (v *Vector) TangentSize() int  { return v.n }
func (v *Vector) Neutral() []float64 { return make([]float64, v.n) }

func (v *Vector) Difference(q1, q0 []float64) []float64 {
	out := make([]float64, v.n)
	floats.SubTo(out, q1, q0)
	return out
}

func (v *Vector) Integrate(q, dv []float64) []float64 {
	out := make([]float64, v.n)
	floats.AddTo(out, q, dv)
	return out
}

// --- SO(2) ---

// SO2 is the group of planar rotations, stored as (cos θ, sin θ).
type SO2 struct{}

// NewSO2 returns the planar rotation group.
func NewSO2() *SO2 {
	return &SO2{}
}

func (SO2) Name() string       { return "SO(2)" }
func (SO2) ConfigSize() int    { return 2 }
func (SO2) TangentSize() int   { return 1 }
func (SO2) Neutral() []float64 { return []float64{1, 0} }

// Difference returns the signed angle from q0 to q1, in (-π, π].
func (SO2) Difference(q1, q0 []float64) []float64 {
	c := q0[0]*q1[0] + q0[1]*q1[1]
	s := q0[0]*q1[1] - q0[1]*q1[0]
	return []float64{math.Atan2(s, c)}
}

// Integrate rotates q by the angle v[0]. The result is renormalized.
func (SO2) Integrate(q, v []float64) []float64 {
	c, s := math.Cos(v[0]), math.Sin(v[0])
	x := c*q[0] - s*q[1]
	y := s*q[0] + c*q[1]
	n := math.Hypot(x, y)
	return []float64{x / n, y / n}
}

// Angle returns θ for a configuration of SO2.
func (SO2) Angle(q []float64) float64 {
	return math.Atan2(q[1], q[0])
}

// FromAngle returns the SO2 configuration of angle θ.
func (SO2) FromAngle(theta float64) []float64 {
	return []float64{math.Cos(theta), math.Sin(theta)}
}

// --- Cartesian product ---

// Segment is a contiguous index range [Start, Start+Size).
type Segment struct {
	Start int
	Size  int
}

// End returns one past the last index.
func (s Segment) End() int { return s.Start + s.Size }

// Contains reports whether i lies in the segment.
func (s Segment) Contains(i int) bool { return i >= s.Start && i < s.End() }

// Product is the Cartesian product of several spaces.
type Product struct {
	factors []Space
	config  []Segment
	tangent []Segment
	nq, nv  int
}

// NewProduct builds the product of the given factors, in order.
func NewProduct(factors ...Space) *Product {
	p := &Product{factors: factors}
	for _, f := range factors {
		p.config = append(p.config, Segment{Start: p.nq, Size: f.ConfigSize()})
		p.tangent = append(p.tangent, Segment{Start: p.nv, Size: f.TangentSize()})
		p.nq += f.ConfigSize()
		p.nv += f.TangentSize()
	}
	return p
}

func (p *Product) Name() string {
	names := make([]string, len(p.factors))
	for i, f := range p.factors {
		names[i] = f.Name()
	}
	return strings.Join(names, "x")
}

func (p *Product) ConfigSize() int  { return p.nq }
func (p *Product) TangentSize() int { return p.nv }

// Factors returns the factor spaces.
func (p *Product) Factors() []Space { return p.factors }

// ConfigSegment returns the configuration range of factor i.
func (p *Product) ConfigSegment(i int) Segment { return p.config[i] }

// TangentSegment returns the tangent range of factor i.
func (p *Product) TangentSegment(i int) Segment { return p.tangent[i] }

func (p *Product) Neutral() []float64 {
	out := make([]float64, 0, p.nq)
	for _, f := range p.factors {
		out = append(out, f.Neutral()...)
	}
	return out
}

func (p *Product) Difference(q1, q0 []float64) []float64 {
	out := make([]float64, 0, p.nv)
	for i, f := range p.factors {
		c := p.config[i]
		out = append(out, f.Difference(q1[c.Start:c.End()], q0[c.Start:c.End()])...)
	}
	return out
}

func (p *Product) Integrate(q, v []float64) []float64 {
	out := make([]float64, 0, p.nq)
	for i, f := range p.factors {
		c, t := p.config[i], p.tangent[i]
		out = append(out, f.Integrate(q[c.Start:c.End()], v[t.Start:t.End()])...)
	}
	return out
}
