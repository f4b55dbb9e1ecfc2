package path

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Waypoint is a configuration reached at a given time.
type Waypoint struct {
	Time   float64
	Config []float64
}

// Interpolated is the piecewise geodesic through timed waypoints.
type Interpolated struct {
	base
	points []Waypoint
}

// NewInterpolated builds the path through points. Times must be strictly
// increasing.
func NewInterpolated(space liegroup.Space, points []Waypoint, cs *projector.ConstraintSet) (*Interpolated, error) {
	if len(points) < 2 {
		return nil, ErrTooFewWaypoints
	}
	copied := make([]Waypoint, len(points))
	for i, wp := range points {
		if err := liegroup.CheckConfig(space, wp.Config); err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		if i > 0 && !(wp.Time > points[i-1].Time) {
			return nil, fmt.Errorf("%w: waypoint %d at %g after %g", ErrUnorderedWaypoints, i, wp.Time, points[i-1].Time)
		}
		copied[i] = Waypoint{Time: wp.Time, Config: clone(wp.Config)}
	}
	tr := Interval{First: copied[0].Time, Second: copied[len(copied)-1].Time}
	return &Interpolated{base: newBase(space, tr, cs), points: copied}, nil
}

// InterpolationPoints returns a copy of the waypoints.
func (p *Interpolated) InterpolationPoints() []Waypoint {
	out := make([]Waypoint, len(p.points))
	for i, wp := range p.points {
		out[i] = Waypoint{Time: wp.Time, Config: clone(wp.Config)}
	}
	return out
}

func (p *Interpolated) Initial() []float64 { return clone(p.points[0].Config) }
func (p *Interpolated) End() []float64     { return clone(p.points[len(p.points)-1].Config) }

// segment returns i such that t lies in [points[i].Time, points[i+1].Time].
func (p *Interpolated) segment(t float64) int {
	i := sort.Search(len(p.points), func(k int) bool { return p.points[k].Time > t }) - 1
	return min(max(i, 0), len(p.points)-2)
}

func (p *Interpolated) at(t float64) []float64 {
	if t <= p.timeRange.First {
		return p.Initial()
	}
	if t >= p.timeRange.Second {
		return p.End()
	}
	i := p.segment(t)
	a, b := p.points[i], p.points[i+1]
	if t == a.Time {
		return clone(a.Config)
	}
	v := p.space.Difference(b.Config, a.Config)
	floats.Scale((t-a.Time)/(b.Time-a.Time), v)
	return p.space.Integrate(a.Config, v)
}

func (p *Interpolated) Eval(t float64) ([]float64, bool) {
	return p.applyConstraints(t, p.at(t))
}

func (p *Interpolated) Derivative(t float64) []float64 {
	i := p.segment(t)
	a, b := p.points[i], p.points[i+1]
	v := p.space.Difference(b.Config, a.Config)
	floats.Scale(1/(b.Time-a.Time), v)
	return v
}

// Extract keeps the waypoints strictly inside sub and adds both ends. A
// zero-length sub gives an Extracted path.
func (p *Interpolated) Extract(sub Interval) (Path, error) {
	if err := p.checkSub(sub); err != nil {
		return nil, err
	}
	if sub.Length() == 0 {
		return NewExtracted(p, sub)
	}
	points := []Waypoint{{Time: sub.First, Config: p.at(sub.First)}}
	for _, wp := range p.points {
		if wp.Time > sub.First && wp.Time < sub.Second {
			points = append(points, wp)
		}
	}
	points = append(points, Waypoint{Time: sub.Second, Config: p.at(sub.Second)})
	return NewInterpolated(p.space, points, p.constraints)
}

func (p *Interpolated) Copy() Path {
	return &Interpolated{base: newBase(p.space, p.timeRange, p.constraints), points: p.points}
}

func (p *Interpolated) String() string {
	return fmt.Sprintf("Interpolated(%s, %d waypoints)", p.timeRange, len(p.points))
}
