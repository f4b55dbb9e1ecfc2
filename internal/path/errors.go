package path

import "errors"

var (
	ErrInvalidInterval     = errors.New("invalid time interval")
	ErrTooFewWaypoints     = errors.New("interpolated path needs at least two waypoints")
	ErrUnorderedWaypoints  = errors.New("waypoint times must be strictly increasing")
	ErrSpaceMismatch       = errors.New("path lives in another configuration space")
	ErrEmptyPath           = errors.New("path vector is empty")
	ErrDiscontinuous       = errors.New("path does not start where the vector ends")
	ErrInitialNotSatisfied = errors.New("initial configuration does not satisfy the path constraints")
	ErrEndNotSatisfied     = errors.New("end configuration does not satisfy the path constraints")
)
