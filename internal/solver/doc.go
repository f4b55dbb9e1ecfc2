// Package solver implements the hierarchical Newton-Raphson iteration that
// projects a configuration onto the manifold defined by a constraint stack.
//
// Each iteration substitutes the explicit constraints, evaluates every
// priority level and computes a step where level i is solved in the kernel
// of levels 0..i-1:
//
//	dq += pinv(J_i P) (-e_i - J_i dq)
//	P  -= pinv(J_i P) J_i P
//
// The step lives in the reduced (free-variable) tangent space. It is scaled
// by the configured LineSearch and applied with the manifold Integrate
// operator.
package solver
