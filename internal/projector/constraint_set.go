package projector

// ConstraintSet is the constraint value attached to a path or a steering
// method. It owns its projector: building or copying a set deep-copies the
// projector, so right-hand-side changes never leak between holders.
type ConstraintSet struct {
	name      string
	projector *ConfigProjector
}

// NewConstraintSet copies cp into a new set.
func NewConstraintSet(name string, cp *ConfigProjector) (*ConstraintSet, error) {
	if cp == nil {
		return nil, ErrNilProjector
	}
	return &ConstraintSet{name: name, projector: cp.Copy()}, nil
}

// Name returns the set name.
func (cs *ConstraintSet) Name() string { return cs.name }

// ConfigProjector returns the owned projector.
func (cs *ConstraintSet) ConfigProjector() *ConfigProjector { return cs.projector }

// Copy returns a deep copy. A nil set copies to nil.
func (cs *ConstraintSet) Copy() *ConstraintSet {
	if cs == nil {
		return nil
	}
	return &ConstraintSet{name: cs.name, projector: cs.projector.Copy()}
}

// Apply projects q.
func (cs *ConstraintSet) Apply(q []float64) ([]float64, bool) {
	return cs.projector.Apply(q)
}

// IsSatisfied reports whether q satisfies every constraint.
func (cs *ConstraintSet) IsSatisfied(q []float64) bool {
	return cs.projector.IsSatisfied(q)
}

func (cs *ConstraintSet) String() string {
	return "ConstraintSet(" + cs.name + ", " + cs.projector.String() + ")"
}
