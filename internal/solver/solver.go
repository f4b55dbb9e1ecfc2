package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/constraints"
)

// Config holds the solver knobs.
type Config struct {
	ErrorThreshold float64
	MaxIterations  int
	LineSearch     LineSearch
	// FixedSequence overrides the generated scales of the FixedSequence
	// line search.
	FixedSequence []float64
}

// DefaultConfig returns the defaults used when no configuration file sets
// them.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 1e-4,
		MaxIterations:  40,
		LineSearch:     Backtracking,
	}
}

// Validate checks the knobs.
func (c Config) Validate() error {
	if !(c.ErrorThreshold > 0) {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.ErrorThreshold)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, c.MaxIterations)
	}
	if _, ok := lineSearchNames[c.LineSearch]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownLineSearch, int(c.LineSearch))
	}
	for _, a := range c.FixedSequence {
		if !(a > 0 && a <= 1) {
			return fmt.Errorf("%w: %g", ErrInvalidSequence, a)
		}
	}
	return nil
}

// Result is the outcome of Solve.
type Result struct {
	// Config is the last iterate, projected or not.
	Config []float64
	Status Status
	// Iterations is the number of Newton steps taken.
	Iterations int
	// ResidualError is the norm of the required levels' error at Config.
	ResidualError float64
	// Sigma is the smallest retained singular value of the last step,
	// +Inf when no step was needed.
	Sigma float64
	// OptionalSatisfied reports whether the optional last level, if any,
	// is below the threshold.
	OptionalSatisfied bool
}

// Solver runs Newton-Raphson over a constraint stack. It is not safe for
// concurrent use.
type Solver struct {
	stack *constraints.Stack
	cfg   Config
}

// New returns a solver for stack.
func New(stack *constraints.Stack, cfg Config) (*Solver, error) {
	if stack == nil {
		return nil, ErrNilStack
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.FixedSequence = append([]float64(nil), cfg.FixedSequence...)
	return &Solver{stack: stack, cfg: cfg}, nil
}

// Stack returns the solved stack.
func (s *Solver) Stack() *constraints.Stack { return s.stack }

// Config returns a copy of the solver knobs.
func (s *Solver) Config() Config {
	cfg := s.cfg
	cfg.FixedSequence = append([]float64(nil), s.cfg.FixedSequence...)
	return cfg
}

// SetConfig replaces the knobs after validating them.
func (s *Solver) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.FixedSequence = append([]float64(nil), cfg.FixedSequence...)
	s.cfg = cfg
	return nil
}

// Copy returns a solver with the same knobs over stack.
func (s *Solver) Copy(stack *constraints.Stack) *Solver {
	return &Solver{stack: stack, cfg: s.Config()}
}

// residual splits the squared error norm into required and optional
// levels.
type residual struct {
	required    float64
	optional    float64
	hasOptional bool
}

func (s *Solver) residualOf(ev constraints.Evaluation) residual {
	var r residual
	for i, l := range ev.Levels {
		sq := floats.Dot(l.Error, l.Error)
		if s.isOptional(i, len(ev.Levels)) {
			r.optional += sq
			r.hasOptional = true
			continue
		}
		r.required += sq
	}
	return r
}

func (s *Solver) isOptional(level, levels int) bool {
	return s.stack.IsLastOptional() && level == levels-1
}

func (r residual) total() float64 { return math.Sqrt(r.required + r.optional) }

// Solve projects q. The input slice is not modified.
func (s *Solver) Solve(q []float64) Result {
	thr2 := s.cfg.ErrorThreshold * s.cfg.ErrorThreshold
	seq := newSequence(s.cfg.FixedSequence)

	q = s.stack.Substitute(q)
	ev := s.stack.Evaluate(q)
	r := s.residualOf(ev)
	previous := r.total()
	res := Result{Sigma: math.Inf(1)}

	for {
		res.Config = q
		res.ResidualError = math.Sqrt(r.required)
		res.OptionalSatisfied = !r.hasOptional || r.optional < thr2

		if math.IsNaN(r.required) || math.IsInf(r.required, 0) {
			res.Status = Infeasible
			return res
		}
		requiredOK := r.required < thr2
		if requiredOK && res.OptionalSatisfied {
			res.Status = Success
			return res
		}
		if res.Iterations >= s.cfg.MaxIterations {
			if requiredOK {
				res.Status = Success
			} else {
				res.Status = MaxIterationReached
			}
			return res
		}

		dq, sigma, degenerate := s.step(ev, thr2)
		res.Sigma = sigma
		if degenerate {
			if requiredOK {
				res.Status = Success
			} else {
				res.Status = Degenerate
			}
			return res
		}

		full := make([]float64, s.stack.Space().TangentSize())
		s.stack.Partition().UncompressVector(dq, full)

		current := r.total()
		var alpha float64
		switch s.cfg.LineSearch {
		case Constant:
			alpha = 1
		case ErrorNormBased:
			alpha = errorNormAlpha(previous, current)
		case FixedSequence:
			alpha = seq.step()
		default:
			alpha = 1
		}

		next := s.retract(q, full, alpha)
		nextEv := s.stack.Evaluate(next)
		nextR := s.residualOf(nextEv)
		if s.cfg.LineSearch == Backtracking {
			for !(nextR.total() < current) && alpha > minBacktrackingAlpha {
				alpha /= 2
				next = s.retract(q, full, alpha)
				nextEv = s.stack.Evaluate(next)
				nextR = s.residualOf(nextEv)
			}
		}

		previous = current
		q, ev, r = next, nextEv, nextR
		res.Iterations++
	}
}

func (s *Solver) retract(q, dq []float64, alpha float64) []float64 {
	step := make([]float64, len(dq))
	floats.ScaleTo(step, alpha, dq)
	return s.stack.Substitute(s.stack.Space().Integrate(q, step))
}

// step computes the hierarchical Newton step in reduced coordinates. It
// reports degenerate when a required level above the threshold has no
// usable direction left.
func (s *Solver) step(ev constraints.Evaluation, thr2 float64) ([]float64, float64, bool) {
	nf := s.stack.NumberFreeVariables()
	sigma := math.Inf(1)
	if nf == 0 {
		for i, l := range ev.Levels {
			if !s.isOptional(i, len(ev.Levels)) && floats.Dot(l.Error, l.Error) >= thr2 {
				return nil, sigma, true
			}
		}
		return nil, sigma, false
	}

	dq := mat.NewVecDense(nf, nil)
	p := identity(nf)
	for i, l := range ev.Levels {
		if l.Jacobian == nil {
			continue
		}
		var jp mat.Dense
		jp.Mul(l.Jacobian, p)
		pinv, rank, smallest := pseudoInverse(&jp)

		optional := s.isOptional(i, len(ev.Levels))
		if rank == 0 {
			if !optional && floats.Dot(l.Error, l.Error) >= thr2 {
				return dq.RawVector().Data, sigma, true
			}
			continue
		}
		if smallest < sigma {
			sigma = smallest
		}

		// rhs = -e_i - J_i dq
		rhs := mat.NewVecDense(len(l.Error), nil)
		rhs.MulVec(l.Jacobian, dq)
		rhs.AddVec(rhs, mat.NewVecDense(len(l.Error), append([]float64(nil), l.Error...)))
		rhs.ScaleVec(-1, rhs)

		var inc mat.VecDense
		inc.MulVec(pinv, rhs)
		dq.AddVec(dq, &inc)

		var proj mat.Dense
		proj.Mul(pinv, &jp)
		p.Sub(p, &proj)
	}
	return dq.RawVector().Data, sigma, false
}

// Evaluate returns the stacked error and reduced Jacobian at q after
// explicit substitution. The Jacobian is nil when there is nothing to
// differentiate.
func (s *Solver) Evaluate(q []float64) ([]float64, *mat.Dense) {
	return s.stack.Evaluate(s.stack.Substitute(q)).Stacked()
}
