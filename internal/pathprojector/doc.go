// Package pathprojector refines a path so that every configuration along it
// satisfies the path's constraints.
//
// RecursiveHermite replaces the path by a sequence of Hermite curves. A
// curve is accepted once its Hermite length, a bound on its distance from
// its chord, falls below 2*errorThreshold/M. Otherwise the
// curve is split at its midpoint, the midpoint is projected onto the
// constraints, and both halves are refined. Each split must shrink the
// Hermite length by the factor beta, so the recursion stops early on paths
// that cross a singularity of the constraints instead of looping forever.
//
// Failures are partial: Apply returns the longest feasible prefix it built
// together with false.
package pathprojector
