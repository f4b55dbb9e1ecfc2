// Package projector provides ConfigProjector, the public face of the
// constraint solver, and ConstraintSet, the value attached to paths.
//
// A ConfigProjector owns a constraint stack and a Newton-Raphson solver. It
// projects configurations onto the constraint manifold, moves along the
// manifold to reduce a cost, projects tangent vectors on the local kernel of
// the constraints, and manages the right-hand sides that select a leaf of
// the foliation.
//
// ConfigProjector is not safe for concurrent use. Use Copy to get an
// independent projector per goroutine; copies share the immutable
// constraint functions and nothing else.
package projector
