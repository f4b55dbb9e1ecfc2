package solver

import "errors"

var (
	ErrInvalidThreshold  = errors.New("error threshold must be positive")
	ErrInvalidIterations = errors.New("max iterations must be at least 1")
	ErrInvalidSequence   = errors.New("fixed-sequence step scales must lie in (0, 1]")
	ErrUnknownLineSearch = errors.New("unknown line search")
	ErrNilStack          = errors.New("constraint stack is nil")
)
