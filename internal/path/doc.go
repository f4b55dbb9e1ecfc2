// Package path defines time-parameterized paths in a configuration space.
//
// Every path maps a closed time interval to configurations. Eval computes
// the unconstrained configuration of the concrete path, re-evaluates the
// parameterized right-hand sides of its constraint set at t and projects
// the result. A path owns its constraint set: constructors and Copy take
// deep copies, so evaluating one path never changes another.
//
// Paths are not safe for concurrent use since Eval updates the right-hand
// side of the owned constraint set.
package path
