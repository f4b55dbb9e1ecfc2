package path

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Straight is the geodesic Integrate(init, s*Difference(end, init)).
type Straight struct {
	base
	init, end []float64
}

// NewStraight returns the geodesic from init to end over tr.
func NewStraight(space liegroup.Space, init, end []float64, tr Interval, cs *projector.ConstraintSet) (*Straight, error) {
	if err := checkRange(tr); err != nil {
		return nil, err
	}
	if err := liegroup.CheckConfig(space, init); err != nil {
		return nil, err
	}
	if err := liegroup.CheckConfig(space, end); err != nil {
		return nil, err
	}
	return &Straight{base: newBase(space, tr, cs), init: clone(init), end: clone(end)}, nil
}

func (p *Straight) Initial() []float64 { return clone(p.init) }
func (p *Straight) End() []float64     { return clone(p.end) }

func (p *Straight) at(t float64) []float64 {
	s := p.param(t)
	if s <= 0 {
		return clone(p.init)
	}
	if s >= 1 {
		return clone(p.end)
	}
	v := p.space.Difference(p.end, p.init)
	floats.Scale(s, v)
	return p.space.Integrate(p.init, v)
}

func (p *Straight) Eval(t float64) ([]float64, bool) {
	return p.applyConstraints(t, p.at(t))
}

func (p *Straight) Derivative(float64) []float64 {
	v := p.space.Difference(p.end, p.init)
	if dt := p.Length(); dt > 0 {
		floats.Scale(1/dt, v)
	} else {
		floats.Scale(0, v)
	}
	return v
}

func (p *Straight) Extract(sub Interval) (Path, error) {
	if err := p.checkSub(sub); err != nil {
		return nil, err
	}
	return NewStraight(p.space, p.at(sub.First), p.at(sub.Second), sub, p.constraints)
}

func (p *Straight) Copy() Path {
	c := *p
	c.base = newBase(p.space, p.timeRange, p.constraints)
	return &c
}

func (p *Straight) String() string {
	return fmt.Sprintf("Straight(%s, %v -> %v)", p.timeRange, p.init, p.end)
}
