package constraints

import "errors"

// Construction errors.
var (
	ErrDimensionMismatch       = errors.New("constraint dimension does not match the configuration space")
	ErrNegativePriority        = errors.New("priority must be non-negative")
	ErrParameterizedInequality = errors.New("only equality constraints accept a right-hand-side function")
	ErrNilFunction             = errors.New("constraint function is nil")
)

// Stack errors.
var (
	ErrOverlappingExplicit = errors.New("explicit constraint outputs overlap another explicit constraint")
	ErrUnknownConstraint   = errors.New("constraint is not in the stack")
	ErrRightHandSideSize   = errors.New("right-hand side has the wrong size")
)
