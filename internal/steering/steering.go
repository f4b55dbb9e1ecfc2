// Package steering builds local paths between two configurations.
package steering

import (
	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/path"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Method builds a path from q1 to q2 carrying the method's constraints.
type Method interface {
	Steer(q1, q2 []float64) (path.Path, bool)
	Space() liegroup.Space
	Constraints() *projector.ConstraintSet
	// SetConstraints stores a copy of cs. Nil clears the constraints.
	SetConstraints(cs *projector.ConstraintSet)
	Copy() Method
}

// HermiteSteerer is implemented by methods that build Hermite curves over
// an arbitrary time range.
type HermiteSteerer interface {
	Method
	SteerWithTimeRange(q1, q2 []float64, tr path.Interval) (*path.Hermite, bool)
}

type common struct {
	space       liegroup.Space
	constraints *projector.ConstraintSet
}

func (c *common) Space() liegroup.Space                 { return c.space }
func (c *common) Constraints() *projector.ConstraintSet { return c.constraints }

func (c *common) SetConstraints(cs *projector.ConstraintSet) { c.constraints = cs.Copy() }

// Hermite steers with Hermite curves over [0, 1] by default.
type Hermite struct {
	common
}

// NewHermite returns a Hermite steering method.
func NewHermite(space liegroup.Space, cs *projector.ConstraintSet) *Hermite {
	return &Hermite{common{space: space, constraints: cs.Copy()}}
}

func (h *Hermite) Steer(q1, q2 []float64) (path.Path, bool) {
	p, ok := h.SteerWithTimeRange(q1, q2, path.Interval{First: 0, Second: 1})
	if !ok {
		return nil, false
	}
	return p, true
}

// SteerWithTimeRange builds the Hermite curve from q1 to q2 over tr.
func (h *Hermite) SteerWithTimeRange(q1, q2 []float64, tr path.Interval) (*path.Hermite, bool) {
	p, err := path.NewHermite(h.space, q1, q2, h.constraints, tr)
	if err != nil {
		return nil, false
	}
	return p, true
}

func (h *Hermite) Copy() Method {
	return &Hermite{common{space: h.space, constraints: h.constraints.Copy()}}
}

// Straight steers with geodesics timed by their length.
type Straight struct {
	common
}

// NewStraight returns a straight steering method.
func NewStraight(space liegroup.Space, cs *projector.ConstraintSet) *Straight {
	return &Straight{common{space: space, constraints: cs.Copy()}}
}

func (s *Straight) Steer(q1, q2 []float64) (path.Path, bool) {
	d := liegroup.Distance(s.space, q1, q2)
	p, err := path.NewStraight(s.space, q1, q2, path.Interval{First: 0, Second: d}, s.constraints)
	if err != nil {
		return nil, false
	}
	return p, true
}

func (s *Straight) Copy() Method {
	return &Straight{common{space: s.space, constraints: s.constraints.Copy()}}
}
