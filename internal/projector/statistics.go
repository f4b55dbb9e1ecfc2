package projector

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/kinproj/internal/solver"
)

var statuses = []solver.Status{
	solver.Success,
	solver.MaxIterationReached,
	solver.Degenerate,
	solver.Infeasible,
}

// Statistics counts projection outcomes by status.
type Statistics struct {
	counts map[solver.Status]int
	total  int
}

// NewStatistics returns empty counters.
func NewStatistics() *Statistics {
	return &Statistics{counts: make(map[solver.Status]int)}
}

// Record adds one outcome.
func (s *Statistics) Record(status solver.Status) {
	s.counts[status]++
	s.total++
}

// Count returns how many solves ended with status.
func (s *Statistics) Count(status solver.Status) int { return s.counts[status] }

// Total is the number of recorded solves.
func (s *Statistics) Total() int { return s.total }

// SuccessRate is the fraction of successful solves, 0 when empty.
func (s *Statistics) SuccessRate() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.counts[solver.Success]) / float64(s.total)
}

// Reset clears the counters.
func (s *Statistics) Reset() {
	s.counts = make(map[solver.Status]int)
	s.total = 0
}

// Copy returns independent counters with the same values.
func (s *Statistics) Copy() *Statistics {
	c := NewStatistics()
	for k, v := range s.counts {
		c.counts[k] = v
	}
	c.total = s.total
	return c
}

func (s *Statistics) String() string {
	parts := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if n := s.counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", st, n))
		}
	}
	return fmt.Sprintf("%d solves [%s]", s.total, strings.Join(parts, " "))
}
