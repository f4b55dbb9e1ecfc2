package solver

import (
	"fmt"
	"strings"
)

// LineSearch selects how a Newton step is scaled.
type LineSearch int

const (
	// Backtracking starts at 1 and halves while the residual does not
	// decrease.
	Backtracking LineSearch = iota
	// ErrorNormBased scales the step by the residual ratio between the
	// previous and the current iterate.
	ErrorNormBased
	// FixedSequence consumes a predetermined list of step scales.
	FixedSequence
	// Constant always takes the full step.
	Constant
)

const (
	minBacktrackingAlpha = 1.0 / 1024
	minErrorNormAlpha    = 0.2

	sequenceStart = 0.2
	sequenceMax   = 0.95
	sequenceRate  = 0.8
)

var lineSearchNames = map[LineSearch]string{
	Backtracking:   "backtracking",
	ErrorNormBased: "error_norm_based",
	FixedSequence:  "fixed_sequence",
	Constant:       "constant",
}

func (l LineSearch) String() string {
	if name, ok := lineSearchNames[l]; ok {
		return name
	}
	return fmt.Sprintf("line_search(%d)", int(l))
}

// ParseLineSearch accepts the names returned by String, case-insensitively.
// CamelCase spellings such as "ErrorNormBased" are accepted too.
func ParseLineSearch(s string) (LineSearch, error) {
	key := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	for l, name := range lineSearchNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLineSearch, s)
}

// sequence yields step scales for FixedSequence. Without explicit values it
// follows alpha_{k+1} = max - rate*(max - alpha_k) from alpha_0 = 0.2.
type sequence struct {
	values []float64
	next   int
	alpha  float64
}

func newSequence(values []float64) *sequence {
	return &sequence{values: values, alpha: sequenceStart}
}

func (s *sequence) step() float64 {
	if len(s.values) > 0 {
		a := s.values[s.next]
		if s.next < len(s.values)-1 {
			s.next++
		}
		return a
	}
	a := s.alpha
	s.alpha = sequenceMax - sequenceRate*(sequenceMax-s.alpha)
	return a
}

func errorNormAlpha(previous, current float64) float64 {
	if current <= 0 || previous <= 0 {
		return 1
	}
	a := previous / current
	if a > 1 {
		return 1
	}
	if a < minErrorNormAlpha {
		return minErrorNormAlpha
	}
	return a
}
