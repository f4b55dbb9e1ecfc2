// Package constraints holds the numerical constraints a configuration
// projector solves and the prioritized stack they are organized in.
//
// A Function maps a configuration to a value vector and provides its
// Jacobian with respect to the tangent space. An Implicit constraint wraps a
// Function with a comparison type and, for equalities, an optional
// time-dependent right-hand side. Explicit constraints additionally state
// that a block of the configuration is a function of the rest, so the stack
// can substitute it analytically and drop its columns from the unknowns.
//
// The Stack groups constraints into priority levels (0 is highest) and keeps
// one right-hand side per entry. Copying a Stack copies the right-hand sides
// but shares the immutable constraints, so two copies can sit on different
// leaves of the same foliation.
package constraints
