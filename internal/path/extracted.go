package path

import (
	"fmt"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Extracted restricts any path to a sub-interval of its time range, with
// the same timing. The underlying path is copied.
type Extracted struct {
	original Path
	sub      Interval
}

// NewExtracted restricts p to sub. A zero-length sub is allowed.
func NewExtracted(p Path, sub Interval) (*Extracted, error) {
	tr := p.TimeRange()
	if sub.First > sub.Second || !tr.Contains(sub.First) || !tr.Contains(sub.Second) {
		return nil, fmt.Errorf("%w: %s is not inside %s", ErrInvalidInterval, sub, tr)
	}
	if e, ok := p.(*Extracted); ok {
		p = e.original
	}
	return &Extracted{original: p.Copy(), sub: sub}, nil
}

func (e *Extracted) Space() liegroup.Space                 { return e.original.Space() }
func (e *Extracted) TimeRange() Interval                   { return e.sub }
func (e *Extracted) Length() float64                       { return e.sub.Length() }
func (e *Extracted) Constraints() *projector.ConstraintSet { return e.original.Constraints() }

func (e *Extracted) Initial() []float64 {
	q, _ := e.original.Eval(e.sub.First)
	return q
}

func (e *Extracted) End() []float64 {
	if e.sub.Length() == 0 {
		return e.Initial()
	}
	q, _ := e.original.Eval(e.sub.Second)
	return q
}

func (e *Extracted) Eval(t float64) ([]float64, bool) {
	return e.original.Eval(t)
}

func (e *Extracted) Derivative(t float64) []float64 {
	return e.original.Derivative(t)
}

func (e *Extracted) Extract(sub Interval) (Path, error) {
	if sub.First > sub.Second || !e.sub.Contains(sub.First) || !e.sub.Contains(sub.Second) {
		return nil, fmt.Errorf("%w: %s is not inside %s", ErrInvalidInterval, sub, e.sub)
	}
	return NewExtracted(e.original, sub)
}

func (e *Extracted) Copy() Path {
	return &Extracted{original: e.original.Copy(), sub: e.sub}
}

func (e *Extracted) String() string {
	return fmt.Sprintf("Extracted(%s of %s)", e.sub, e.original)
}
