package projector

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/config"
	"github.com/fyrsmithlabs/kinproj/internal/constraints"
	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/solver"
)

// ConfigProjector projects configurations onto a prioritized set of
// numerical constraints.
type ConfigProjector struct {
	name    string
	space   liegroup.Space
	stack   *constraints.Stack
	solver  *solver.Solver
	stats   *Statistics
	logger  *Logger
	metrics *Metrics

	residual float64
	sigma    float64
}

type options struct {
	lineSearch    solver.LineSearch
	fixedSequence []float64
	logger        *zap.Logger
	metrics       *Metrics
}

// Option configures a ConfigProjector.
type Option func(*options)

// WithLineSearch selects the line search. The default is Backtracking.
func WithLineSearch(ls solver.LineSearch) Option {
	return func(o *options) { o.lineSearch = ls }
}

// WithFixedSequence sets the step scales used by the FixedSequence line
// search.
func WithFixedSequence(alphas ...float64) Option {
	return func(o *options) { o.fixedSequence = alphas }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records solves on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New returns an empty projector over space.
func New(space liegroup.Space, name string, errorThreshold float64, maxIterations int, opts ...Option) (*ConfigProjector, error) {
	if space == nil {
		return nil, ErrNilSpace
	}
	o := options{lineSearch: solver.Backtracking}
	for _, opt := range opts {
		opt(&o)
	}
	stack := constraints.NewStack(space)
	sol, err := solver.New(stack, solver.Config{
		ErrorThreshold: errorThreshold,
		MaxIterations:  maxIterations,
		LineSearch:     o.lineSearch,
		FixedSequence:  o.fixedSequence,
	})
	if err != nil {
		return nil, fmt.Errorf("projector %q: %w", name, err)
	}
	return &ConfigProjector{
		name:    name,
		space:   space,
		stack:   stack,
		solver:  sol,
		stats:   NewStatistics(),
		logger:  NewLogger(o.logger),
		metrics: o.metrics,
		sigma:   math.Inf(1),
	}, nil
}

// NewFromConfig builds a projector from the projector section of the
// configuration file. Options given explicitly take precedence.
func NewFromConfig(space liegroup.Space, name string, cfg config.ProjectorConfig, opts ...Option) (*ConfigProjector, error) {
	ls, err := solver.ParseLineSearch(cfg.LineSearch)
	if err != nil {
		return nil, fmt.Errorf("projector %q: %w", name, err)
	}
	base := []Option{WithLineSearch(ls), WithFixedSequence(cfg.FixedSequence...)}
	return New(space, name, cfg.ErrorThreshold, cfg.MaxIterations, append(base, opts...)...)
}

// Name returns the projector name.
func (p *ConfigProjector) Name() string { return p.name }

// Space returns the configuration space.
func (p *ConfigProjector) Space() liegroup.Space { return p.space }

// Stack returns the underlying constraint stack.
func (p *ConfigProjector) Stack() *constraints.Stack { return p.stack }

// Copy returns an independent projector. Right-hand sides and statistics
// are copied; constraint functions, logger and metrics are shared.
func (p *ConfigProjector) Copy() *ConfigProjector {
	stack := p.stack.Copy()
	return &ConfigProjector{
		name:     p.name,
		space:    p.space,
		stack:    stack,
		solver:   p.solver.Copy(stack),
		stats:    p.stats.Copy(),
		logger:   p.logger,
		metrics:  p.metrics,
		residual: p.residual,
		sigma:    p.sigma,
	}
}

// Add inserts c at the given priority. It returns false when c is already
// in the projector, at any priority.
func (p *ConfigProjector) Add(c *constraints.Implicit, priority int, opts ...constraints.AddOption) (bool, error) {
	added, err := p.stack.Add(c, priority, opts...)
	if err != nil {
		return false, fmt.Errorf("projector %q: %w", p.name, err)
	}
	return added, nil
}

// Contains reports whether c was added.
func (p *ConfigProjector) Contains(c *constraints.Implicit) bool { return p.stack.Contains(c) }

// Constraints returns the constraints in insertion order.
func (p *ConfigProjector) Constraints() []*constraints.Implicit { return p.stack.Constraints() }

// SetLastIsOptional marks the last priority level as optional.
func (p *ConfigProjector) SetLastIsOptional(optional bool) { p.stack.LastIsOptional(optional) }

// LastIsOptional reports whether the last priority level is optional.
func (p *ConfigProjector) LastIsOptional() bool { return p.stack.IsLastOptional() }

// Apply projects q on the constraints. It returns the last iterate and
// whether it satisfies every required level.
func (p *ConfigProjector) Apply(q []float64) ([]float64, bool) {
	return p.ApplyContext(context.Background(), q)
}

// ApplyContext is Apply with a context for log and metric correlation.
func (p *ConfigProjector) ApplyContext(ctx context.Context, q []float64) ([]float64, bool) {
	res := p.solver.Solve(q)
	p.residual = res.ResidualError
	p.sigma = res.Sigma
	p.stats.Record(res.Status)
	p.metrics.RecordSolve(ctx, res.Status, res.Iterations, res.ResidualError)
	p.logger.Solved(ctx, p.name, res)
	return res.Config, res.Status == solver.Success
}

// Optimize moves q along the constraint manifold to reduce cost. q must
// satisfy the constraints. Each trial step follows the negative cost
// gradient projected on the kernel of the constraints and is projected back
// on the manifold; it is kept only if the cost strictly decreases.
// maxIter 0 means MaxIterations. It returns the best configuration and
// whether any step was kept.
func (p *ConfigProjector) Optimize(q []float64, cost Cost, maxIter int) ([]float64, bool) {
	if maxIter <= 0 {
		maxIter = p.MaxIterations()
	}
	if !p.IsSatisfied(q) {
		return q, false
	}
	current := append([]float64(nil), q...)
	value := cost.Value(current)
	improved := false
	alpha := 1.0
	for iter := 0; iter < maxIter && alpha >= minOptimizeStep; iter++ {
		dir := p.ProjectVectorOnKernel(current, cost.Gradient(current))
		if floats.Norm(dir, 2) < minGradientNorm {
			break
		}
		floats.Scale(-alpha, dir)
		trial := p.solver.Solve(p.space.Integrate(current, dir))
		if trial.Status == solver.Success {
			if v := cost.Value(trial.Config); v < value {
				current, value, improved = trial.Config, v, true
				continue
			}
		}
		alpha /= 2
	}
	p.logger.Optimized(p.name, improved, value)
	return current, improved
}

const (
	minOptimizeStep = 1.0 / 1024
	minGradientNorm = 1e-12
)

// ProjectVectorOnKernel projects the tangent vector v on the kernel of the
// constraint Jacobian at from. Explicit outputs follow their inputs.
func (p *ConfigProjector) ProjectVectorOnKernel(from, v []float64) []float64 {
	q := p.stack.Substitute(from)
	part := p.stack.Partition()
	out := make([]float64, p.space.TangentSize())
	nf := part.NumberFreeVariables()
	if nf > 0 {
		small := part.CompressVector(v)
		_, j := p.stack.Evaluate(q).Stacked()
		if j != nil {
			projected := mat.NewVecDense(nf, nil)
			projected.MulVec(solver.KernelProjector(j, nf), mat.NewVecDense(nf, small))
			small = projected.RawVector().Data
		}
		part.UncompressVector(small, out)
	}
	for _, c := range p.stack.Constraints() {
		x := c.Explicit()
		if x == nil {
			continue
		}
		seg := x.Output().Tangent
		dout := mat.NewVecDense(seg.Size, nil)
		dout.MulVec(x.OutputFunction().Jacobian(q), mat.NewVecDense(len(out), append([]float64(nil), out...)))
		copy(out[seg.Start:seg.End()], dout.RawVector().Data)
	}
	return out
}

// ProjectOnKernel moves from toward to, restricted to first order to the
// kernel of the constraints at from.
func (p *ConfigProjector) ProjectOnKernel(from, to []float64) []float64 {
	v := p.space.Difference(to, from)
	return p.space.Integrate(from, p.ProjectVectorOnKernel(from, v))
}

// ComputeValueAndJacobian returns the stacked error and the reduced
// Jacobian at q after explicit substitution.
func (p *ConfigProjector) ComputeValueAndJacobian(q []float64) ([]float64, *mat.Dense) {
	return p.solver.Evaluate(q)
}

// IsSatisfied checks every constraint individually against the error
// threshold.
func (p *ConfigProjector) IsSatisfied(q []float64) bool {
	ok, _ := p.isSatisfied(q, p.ErrorThreshold())
	return ok
}

// IsSatisfiedWithThreshold is IsSatisfied with an explicit threshold.
func (p *ConfigProjector) IsSatisfiedWithThreshold(q []float64, threshold float64) bool {
	ok, _ := p.isSatisfied(q, threshold)
	return ok
}

// IsSatisfiedWithError also returns the concatenated per-constraint error.
func (p *ConfigProjector) IsSatisfiedWithError(q []float64) (bool, []float64) {
	return p.isSatisfied(q, p.ErrorThreshold())
}

func (p *ConfigProjector) isSatisfied(q []float64, threshold float64) (bool, []float64) {
	ok := true
	var all []float64
	for _, e := range p.stack.Errors(q) {
		if floats.Norm(e, 2) >= threshold {
			ok = false
		}
		all = append(all, e...)
	}
	return ok, all
}

// RightHandSideFromConfig selects the leaf of the foliation q lies on.
func (p *ConfigProjector) RightHandSideFromConfig(q []float64) []float64 {
	return p.stack.RightHandSideFromConfig(q)
}

// RightHandSideFromConfigOf selects the leaf for c only.
func (p *ConfigProjector) RightHandSideFromConfigOf(c *constraints.Implicit, q []float64) error {
	return p.stack.RightHandSideFromConfigOf(c, q)
}

// SetRightHandSide sets all right-hand sides, concatenated in insertion
// order.
func (p *ConfigProjector) SetRightHandSide(v []float64) error { return p.stack.SetRightHandSide(v) }

// SetRightHandSideOf sets the right-hand side of c.
func (p *ConfigProjector) SetRightHandSideOf(c *constraints.Implicit, v []float64) error {
	return p.stack.SetRightHandSideOf(c, v)
}

// RightHandSide returns all right-hand sides, concatenated.
func (p *ConfigProjector) RightHandSide() []float64 { return p.stack.RightHandSide() }

// RightHandSideOf returns the right-hand side of c.
func (p *ConfigProjector) RightHandSideOf(c *constraints.Implicit) ([]float64, bool) {
	return p.stack.RightHandSideOf(c)
}

// RightHandSideAt evaluates the parameterized right-hand sides at s.
func (p *ConfigProjector) RightHandSideAt(s float64) error { return p.stack.RightHandSideAt(s) }

func (p *ConfigProjector) CompressVector(normal []float64) []float64 {
	return p.stack.Partition().CompressVector(normal)
}

func (p *ConfigProjector) UncompressVector(small, normal []float64) {
	p.stack.Partition().UncompressVector(small, normal)
}

func (p *ConfigProjector) CompressMatrix(m mat.Matrix, rows bool) *mat.Dense {
	return p.stack.Partition().CompressMatrix(m, rows)
}

func (p *ConfigProjector) UncompressMatrix(small mat.Matrix, normal *mat.Dense, rows bool) {
	p.stack.Partition().UncompressMatrix(small, normal, rows)
}

// NumberFreeVariables is the size of the reduced tangent space.
func (p *ConfigProjector) NumberFreeVariables() int { return p.stack.NumberFreeVariables() }

// Dimension is the number of implicit constraint rows.
func (p *ConfigProjector) Dimension() int { return p.stack.Dimension() }

func (p *ConfigProjector) ErrorThreshold() float64 { return p.solver.Config().ErrorThreshold }

func (p *ConfigProjector) SetErrorThreshold(thr float64) error {
	cfg := p.solver.Config()
	cfg.ErrorThreshold = thr
	return p.solver.SetConfig(cfg)
}

func (p *ConfigProjector) MaxIterations() int { return p.solver.Config().MaxIterations }

func (p *ConfigProjector) SetMaxIterations(n int) error {
	cfg := p.solver.Config()
	cfg.MaxIterations = n
	return p.solver.SetConfig(cfg)
}

func (p *ConfigProjector) LineSearch() solver.LineSearch { return p.solver.Config().LineSearch }

func (p *ConfigProjector) SetLineSearch(ls solver.LineSearch) error {
	cfg := p.solver.Config()
	cfg.LineSearch = ls
	return p.solver.SetConfig(cfg)
}

// ResidualError is the residual norm of the last Apply.
func (p *ConfigProjector) ResidualError() float64 { return p.residual }

// Sigma is the smallest retained singular value of the last Apply.
func (p *ConfigProjector) Sigma() float64 { return p.sigma }

// Statistics returns the solve counters.
func (p *ConfigProjector) Statistics() *Statistics { return p.stats }

func (p *ConfigProjector) String() string {
	return fmt.Sprintf("ConfigProjector(%s, %d constraints, dim %d, %s)",
		p.name, len(p.stack.Constraints()), p.Dimension(), p.stats)
}
