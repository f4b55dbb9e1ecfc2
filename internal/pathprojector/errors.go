package pathprojector

import "errors"

var (
	// ErrInvalidBeta is returned when beta is outside [0.5, 1].
	ErrInvalidBeta = errors.New("beta must be in [0.5, 1]")

	// ErrInvalidStiffness is returned when M is not strictly positive.
	ErrInvalidStiffness = errors.New("M must be strictly positive")

	// ErrNotHermiteSteering is returned when the steering method cannot
	// build Hermite curves over a time range.
	ErrNotHermiteSteering = errors.New("steering method does not build Hermite curves")
)
