package projector

import "errors"

var (
	// ErrNilSpace is returned when a projector is built without a
	// configuration space.
	ErrNilSpace = errors.New("configuration space is nil")

	// ErrNilProjector is returned when a constraint set is built around a
	// nil projector.
	ErrNilProjector = errors.New("config projector is nil")
)
