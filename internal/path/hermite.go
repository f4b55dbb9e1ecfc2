package path

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Hermite is a cubic Bernstein curve in the tangent space at its initial
// configuration. Control row 0 is zero and row 3 is Difference(end, init);
// rows 1 and 2 encode the boundary tangents.
type Hermite struct {
	base
	init, end []float64
	rows      [4][]float64
	length    float64
}

// NewHermite returns the Hermite curve from init to end over tr. The
// boundary tangents start as the secant velocity projected on the kernel of
// the constraints at each end, or the secant itself when cs is nil.
func NewHermite(space liegroup.Space, init, end []float64, cs *projector.ConstraintSet, tr Interval) (*Hermite, error) {
	if err := checkRange(tr); err != nil {
		return nil, err
	}
	if err := liegroup.CheckConfig(space, init); err != nil {
		return nil, err
	}
	if err := liegroup.CheckConfig(space, end); err != nil {
		return nil, err
	}
	h := &Hermite{base: newBase(space, tr, cs), init: clone(init), end: clone(end), length: -1}
	nv := space.TangentSize()
	h.rows[0] = make([]float64, nv)
	h.rows[1] = make([]float64, nv)
	h.rows[2] = make([]float64, nv)
	h.rows[3] = space.Difference(end, init)
	h.projectVelocities()
	return h, nil
}

func (h *Hermite) projectVelocities() {
	secant := clone(h.rows[3])
	if dt := h.Length(); dt > 0 {
		floats.Scale(1/dt, secant)
	}
	v0, v1 := secant, clone(secant)
	if h.constraints != nil {
		cp := h.constraints.ConfigProjector()
		v0 = cp.ProjectVectorOnKernel(h.init, secant)
		v1 = cp.ProjectVectorOnKernel(h.end, secant)
	}
	h.SetV0(v0)
	h.SetV1(v1)
}

func (h *Hermite) Initial() []float64 { return clone(h.init) }
func (h *Hermite) End() []float64     { return clone(h.end) }

// V0 is the tangent at the start, 3*(row1 - row0)/dt.
func (h *Hermite) V0() []float64 {
	return h.boundary(h.rows[1], h.rows[0])
}

// V1 is the tangent at the end, 3*(row3 - row2)/dt.
func (h *Hermite) V1() []float64 {
	return h.boundary(h.rows[3], h.rows[2])
}

func (h *Hermite) boundary(a, b []float64) []float64 {
	v := make([]float64, len(a))
	dt := h.Length()
	if dt == 0 {
		return v
	}
	floats.SubTo(v, a, b)
	floats.Scale(3/dt, v)
	return v
}

// SetV0 sets the start tangent and invalidates the cached length.
func (h *Hermite) SetV0(v []float64) {
	row := make([]float64, len(v))
	floats.ScaleTo(row, h.Length()/3, v)
	floats.Add(row, h.rows[0])
	h.rows[1] = row
	h.length = -1
}

// SetV1 sets the end tangent and invalidates the cached length.
func (h *Hermite) SetV1(v []float64) {
	row := make([]float64, len(v))
	floats.ScaleTo(row, -h.Length()/3, v)
	floats.Add(row, h.rows[3])
	h.rows[2] = row
	h.length = -1
}

// ComputeHermiteLength caches and returns the largest distance from
// control rows 1 and 2 to the chord from row 0 to row 3. The curve lies in
// the convex hull of its control rows, so this bounds its deviation from
// the chord. It is 0 when both tangents lie on the secant and grows as they
// turn away from it.
func (h *Hermite) ComputeHermiteLength() float64 {
	h.length = max(distanceToChord(h.rows[1], h.rows[3]), distanceToChord(h.rows[2], h.rows[3]))
	return h.length
}

// distanceToChord is the distance from p to the segment from the origin to
// c.
func distanceToChord(p, c []float64) float64 {
	d := clone(p)
	if cc := floats.Dot(c, c); cc > 0 {
		s := min(max(floats.Dot(p, c)/cc, 0), 1)
		floats.AddScaled(d, -s, c)
	}
	return floats.Norm(d, 2)
}

// HermiteLength returns the cached length, -1 when stale.
func (h *Hermite) HermiteLength() float64 { return h.length }

func bernstein(s float64) [4]float64 {
	u := 1 - s
	return [4]float64{u * u * u, 3 * s * u * u, 3 * s * s * u, s * s * s}
}

func (h *Hermite) at(t float64) []float64 {
	if t == h.timeRange.First {
		return clone(h.init)
	}
	if t == h.timeRange.Second {
		return clone(h.end)
	}
	b := bernstein(h.param(t))
	v := make([]float64, len(h.rows[0]))
	for i, row := range h.rows {
		floats.AddScaled(v, b[i], row)
	}
	return h.space.Integrate(h.init, v)
}

func (h *Hermite) Eval(t float64) ([]float64, bool) {
	return h.applyConstraints(t, h.at(t))
}

// Velocity is the analytic time derivative of the curve at t.
func (h *Hermite) Velocity(t float64) []float64 {
	nv := len(h.rows[0])
	v := make([]float64, nv)
	dt := h.Length()
	if dt == 0 {
		return v
	}
	s := h.param(t)
	u := 1 - s
	coef := [3]float64{u * u, 2 * s * u, s * s}
	d := make([]float64, nv)
	for i := 0; i < 3; i++ {
		floats.SubTo(d, h.rows[i+1], h.rows[i])
		floats.AddScaled(v, coef[i], d)
	}
	floats.Scale(3/dt, v)
	return v
}

func (h *Hermite) Derivative(t float64) []float64 { return h.Velocity(t) }

// Extract returns the Hermite curve between the unconstrained
// configurations at sub's ends, with the velocities of h at those times.
func (h *Hermite) Extract(sub Interval) (Path, error) {
	if err := h.checkSub(sub); err != nil {
		return nil, err
	}
	e, err := NewHermite(h.space, h.at(sub.First), h.at(sub.Second), h.constraints, sub)
	if err != nil {
		return nil, err
	}
	e.SetV0(h.Velocity(sub.First))
	e.SetV1(h.Velocity(sub.Second))
	return e, nil
}

func (h *Hermite) Copy() Path {
	c := &Hermite{
		base:   newBase(h.space, h.timeRange, h.constraints),
		init:   h.init,
		end:    h.end,
		length: h.length,
	}
	for i, row := range h.rows {
		c.rows[i] = clone(row)
	}
	return c
}

func (h *Hermite) String() string {
	return fmt.Sprintf("Hermite(%s, length %g, %v -> %v)", h.timeRange, h.length, h.init, h.end)
}
