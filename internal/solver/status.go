package solver

// Status is the outcome of a solve.
type Status int

const (
	// Success means every required level is below the error threshold.
	Success Status = iota
	// MaxIterationReached means the iteration budget ran out.
	MaxIterationReached
	// Degenerate means a required level could not be reduced: its
	// projected Jacobian has no singular value above the rank tolerance.
	Degenerate
	// Infeasible means the residual stopped being finite.
	Infeasible
)

// String returns a stable name used in logs and metric attributes.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case MaxIterationReached:
		return "max_iterations"
	case Degenerate:
		return "degenerate"
	case Infeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}
