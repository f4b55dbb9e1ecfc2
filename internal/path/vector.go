package path

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// continuityTolerance is the largest gap AppendPath accepts between the end
// of the vector and the start of the appended path.
const continuityTolerance = 1e-8

// Vector is a sequence of paths traversed one after the other. It starts
// at the start time of its first path; every appended path extends the
// time range by its own length. A Vector owns copies of its paths.
type Vector struct {
	space     liegroup.Space
	timeRange Interval
	paths     []Path
	// starts[i] is the time at which paths[i] begins in vector time.
	starts []float64
}

// NewVector returns an empty path sequence.
func NewVector(space liegroup.Space) *Vector {
	return &Vector{space: space}
}

// AppendPath copies p to the end of the sequence. p must start where the
// sequence ends.
func (v *Vector) AppendPath(p Path) error {
	if !sameSpace(v.space, p.Space()) {
		return fmt.Errorf("%w: %s into %s", ErrSpaceMismatch, p.Space().Name(), v.space.Name())
	}
	if end, start := v.End(), p.Initial(); end != nil && start != nil {
		if gap := liegroup.Distance(v.space, end, start); gap > continuityTolerance {
			return fmt.Errorf("%w: gap %g at time %g", ErrDiscontinuous, gap, v.timeRange.Second)
		}
	}
	if len(v.paths) == 0 {
		v.timeRange = p.TimeRange()
		v.starts = append(v.starts, v.timeRange.First)
	} else {
		v.starts = append(v.starts, v.timeRange.Second)
		v.timeRange.Second += p.Length()
	}
	v.paths = append(v.paths, p.Copy())
	return nil
}

// Concatenate appends every path of other.
func (v *Vector) Concatenate(other *Vector) error {
	for _, p := range other.paths {
		if err := v.AppendPath(p); err != nil {
			return err
		}
	}
	return nil
}

// NumberPaths returns the number of paths.
func (v *Vector) NumberPaths() int { return len(v.paths) }

// PathAtRank returns the i-th path.
func (v *Vector) PathAtRank(i int) Path { return v.paths[i] }

// RankAtTime returns the index of the path active at t and the matching
// time in that path.
func (v *Vector) RankAtTime(t float64) (int, float64) {
	i := len(v.paths) - 1
	for k := 1; k < len(v.paths); k++ {
		if t < v.starts[k] {
			i = k - 1
			break
		}
	}
	if i < 0 {
		return 0, t
	}
	return i, v.local(i, t)
}

func (v *Vector) local(i int, t float64) float64 {
	tr := v.paths[i].TimeRange()
	local := tr.First + (t - v.starts[i])
	return min(max(local, tr.First), tr.Second)
}

func (v *Vector) Space() liegroup.Space { return v.space }
func (v *Vector) TimeRange() Interval   { return v.timeRange }
func (v *Vector) Length() float64       { return v.timeRange.Length() }

// Constraints is nil: each sub-path carries its own.
func (v *Vector) Constraints() *projector.ConstraintSet { return nil }

func (v *Vector) Initial() []float64 {
	if len(v.paths) == 0 {
		return nil
	}
	return v.paths[0].Initial()
}

func (v *Vector) End() []float64 {
	if len(v.paths) == 0 {
		return nil
	}
	return v.paths[len(v.paths)-1].End()
}

func (v *Vector) Eval(t float64) ([]float64, bool) {
	if len(v.paths) == 0 {
		return nil, false
	}
	i, local := v.RankAtTime(t)
	return v.paths[i].Eval(local)
}

func (v *Vector) Derivative(t float64) []float64 {
	if len(v.paths) == 0 {
		return nil
	}
	i, local := v.RankAtTime(t)
	return v.paths[i].Derivative(local)
}

// Extract returns the sequence of the sub-path pieces covering sub.
func (v *Vector) Extract(sub Interval) (Path, error) {
	if len(v.paths) == 0 {
		return nil, ErrEmptyPath
	}
	if sub.First > sub.Second || !v.timeRange.Contains(sub.First) || !v.timeRange.Contains(sub.Second) {
		return nil, fmt.Errorf("%w: %s is not inside %s", ErrInvalidInterval, sub, v.timeRange)
	}
	out := NewVector(v.space)
	first, _ := v.RankAtTime(sub.First)
	last, _ := v.RankAtTime(sub.Second)
	for i := first; i <= last; i++ {
		tr := v.paths[i].TimeRange()
		piece := tr
		if i == first {
			piece.First = v.local(i, sub.First)
		}
		if i == last {
			piece.Second = v.local(i, sub.Second)
		}
		if piece.Length() == 0 && first != last {
			continue
		}
		p, err := v.paths[i].Extract(piece)
		if err != nil {
			return nil, err
		}
		if err := out.AppendPath(p); err != nil {
			return nil, err
		}
	}
	out.shift(sub.First)
	return out, nil
}

// shift moves the vector so that it starts at t.
func (v *Vector) shift(t float64) {
	d := t - v.timeRange.First
	v.timeRange.First += d
	v.timeRange.Second += d
	for i := range v.starts {
		v.starts[i] += d
	}
}

func (v *Vector) Copy() Path {
	c := &Vector{
		space:     v.space,
		timeRange: v.timeRange,
		starts:    append([]float64(nil), v.starts...),
		paths:     make([]Path, len(v.paths)),
	}
	for i, p := range v.paths {
		c.paths[i] = p.Copy()
	}
	return c
}

func (v *Vector) String() string {
	parts := make([]string, len(v.paths))
	for i, p := range v.paths {
		parts[i] = p.String()
	}
	return fmt.Sprintf("Vector(%s, [%s])", v.timeRange, strings.Join(parts, ", "))
}
