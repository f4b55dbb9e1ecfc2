package pathprojector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kinproj/internal/config"
	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/logging"
	"github.com/fyrsmithlabs/kinproj/internal/path"
	"github.com/fyrsmithlabs/kinproj/internal/steering"
)

// DefaultMaxDepth caps the number of successive midpoint splits.
const DefaultMaxDepth = 32

// Failure reasons, used as metric labels and log fields.
const (
	reasonInfeasibleEndpoint = "infeasible_endpoint"
	reasonMidpoint           = "midpoint_projection"
	reasonProgress           = "insufficient_progress"
	reasonMaxDepth           = "max_depth"
	reasonSteering           = "steering"
)

// DistanceFunc measures the distance between two configurations.
type DistanceFunc func(space liegroup.Space, q0, q1 []float64) float64

// Option configures a RecursiveHermite.
type Option func(*RecursiveHermite)

// WithMaxDepth caps the recursion depth. 0 removes the cap.
func WithMaxDepth(depth int) Option {
	return func(rh *RecursiveHermite) { rh.maxDepth = depth }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(rh *RecursiveHermite) { rh.logger = NewLogger(l) }
}

// WithDistance sets the distance used for segment statistics.
func WithDistance(d DistanceFunc) Option {
	return func(rh *RecursiveHermite) {
		if d != nil {
			rh.distance = d
		}
	}
}

// RecursiveHermite projects paths by recursive Hermite subdivision.
//
// A RecursiveHermite may be shared between goroutines: every call works on
// its own copy of the steering method. The paths passed in must not be
// shared, since evaluating them updates their constraint set.
type RecursiveHermite struct {
	method   steering.HermiteSteerer
	m        float64
	beta     float64
	maxDepth int
	distance DistanceFunc
	logger   *Logger
}

// New returns a projector that steers with method. m scales the acceptance
// threshold 2*errorThreshold/m and beta in [0.5, 1] is the minimal
// shrinking factor of the Hermite length at each split.
func New(method steering.Method, m, beta float64, opts ...Option) (*RecursiveHermite, error) {
	if math.IsNaN(beta) || beta < 0.5 || beta > 1 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidBeta, beta)
	}
	if math.IsNaN(m) || m <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidStiffness, m)
	}
	hs, ok := method.(steering.HermiteSteerer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotHermiteSteering, method)
	}
	own, ok := hs.Copy().(steering.HermiteSteerer)
	if !ok {
		return nil, fmt.Errorf("%w: copy of %T", ErrNotHermiteSteering, method)
	}
	own.SetConstraints(nil)

	rh := &RecursiveHermite{
		method:   own,
		m:        m,
		beta:     beta,
		maxDepth: DefaultMaxDepth,
		distance: liegroup.Distance,
		logger:   NewLogger(nil),
	}
	for _, opt := range opts {
		opt(rh)
	}
	if rh.maxDepth < 0 {
		rh.maxDepth = 0
	}
	return rh, nil
}

// NewFromConfig builds a RecursiveHermite from its config section. Options
// are applied after the config values.
func NewFromConfig(method steering.Method, cfg config.HermiteConfig, opts ...Option) (*RecursiveHermite, error) {
	all := append([]Option{WithMaxDepth(cfg.MaxDepth)}, opts...)
	return New(method, cfg.M, cfg.Beta, all...)
}

// M returns the threshold scaling factor.
func (rh *RecursiveHermite) M() float64 { return rh.m }

// Beta returns the minimal shrinking factor per split.
func (rh *RecursiveHermite) Beta() float64 { return rh.beta }

// MaxDepth returns the recursion cap, 0 when uncapped.
func (rh *RecursiveHermite) MaxDepth() int { return rh.maxDepth }

// Apply projects p. A *path.Vector is projected sub-path by sub-path and
// stops at the first failure; other paths go through Project.
//
// On failure the returned path is the feasible prefix. For a *path.Vector
// input it is never nil, but may hold no paths.
func (rh *RecursiveHermite) Apply(ctx context.Context, p path.Path) (path.Path, bool) {
	return rh.run(ctx, p, rh.apply)
}

// Project projects a single path. Unconstrained paths are returned as is.
// It returns nil and false when the end configuration does not satisfy
// the path constraints.
func (rh *RecursiveHermite) Project(ctx context.Context, p path.Path) (path.Path, bool) {
	return rh.run(ctx, p, rh.project)
}

type projectFunc func(ctx context.Context, p path.Path, o *outcome) (path.Path, bool)

func (rh *RecursiveHermite) run(ctx context.Context, p path.Path, fn projectFunc) (path.Path, bool) {
	queryID := logging.QueryIDFromContext(ctx)
	if queryID == "" {
		queryID = uuid.NewString()
		ctx = logging.WithQueryID(ctx, queryID)
	}
	ctx, span := startSpan(ctx, queryID)
	start := time.Now()

	o := &outcome{distances: distanceStats{min: math.Inf(1)}}
	res, ok := fn(ctx, p, o)
	o.ok = ok

	recordOutcome(o, time.Since(start).Seconds())
	endSpan(span, o)
	rh.logger.Projected(ctx, o)
	return res, ok
}

func (rh *RecursiveHermite) apply(ctx context.Context, p path.Path, o *outcome) (path.Path, bool) {
	v, ok := p.(*path.Vector)
	if !ok {
		return rh.project(ctx, p, o)
	}

	res := path.NewVector(v.Space())
	for i := 0; i < v.NumberPaths(); i++ {
		part, success := rh.apply(ctx, v.PathAtRank(i), o)
		if part != nil && (part.Length() > 0 || i == 0) {
			if err := appendFlat(res, part); err != nil {
				o.fail(reasonSteering, part.TimeRange().First)
				return partial(res)
			}
		}
		if !success {
			return partial(res)
		}
	}
	return res, true
}

// partial returns the prefix built so far. It is an empty vector when
// nothing was kept.
func partial(v *path.Vector) (path.Path, bool) { return v, false }

// appendFlat appends p to v, splicing the sub-paths of a Vector.
func appendFlat(v *path.Vector, p path.Path) error {
	if sub, ok := p.(*path.Vector); ok {
		return v.Concatenate(sub)
	}
	return v.AppendPath(p)
}

func (rh *RecursiveHermite) project(ctx context.Context, p path.Path, o *outcome) (path.Path, bool) {
	cs := p.Constraints()
	if cs == nil || cs.ConfigProjector().Dimension() == 0 {
		return p, true
	}
	cp := cs.ConfigProjector()
	tr := p.TimeRange()

	if err := cp.RightHandSideAt(tr.Second); err != nil {
		rh.logger.RightHandSideFailed(ctx, tr.Second, err)
		o.fail(reasonInfeasibleEndpoint, tr.Second)
		return nil, false
	}
	if !cp.IsSatisfied(p.End()) {
		o.fail(reasonInfeasibleEndpoint, tr.Second)
		return nil, false
	}

	method, ok := rh.method.Copy().(steering.HermiteSteerer)
	if !ok {
		o.fail(reasonSteering, tr.First)
		return nil, false
	}
	method.SetConstraints(cs)

	segments, ok := rh.segments(method, p)
	if !ok {
		o.fail(reasonSteering, tr.First)
		return rh.assemble(p, path.NewVector(p.Space()))
	}

	r := &recursion{
		ctx:    ctx,
		method: method,
		out:    path.NewVector(p.Space()),
		thr:    2 * cp.ErrorThreshold() / rh.m,
		o:      o,
	}
	for _, h := range segments {
		h.ComputeHermiteLength()
		if !rh.recurse(r, h, 0) {
			return rh.assemble(p, r.out)
		}
	}
	return r.out, true
}

// segments returns the initial Hermite curves covering p: p itself when it
// is a Hermite curve, one curve per waypoint interval of an interpolated
// path, and a single curve over the time range otherwise.
func (rh *RecursiveHermite) segments(method steering.HermiteSteerer, p path.Path) ([]*path.Hermite, bool) {
	switch pp := p.(type) {
	case *path.Hermite:
		h, ok := pp.Copy().(*path.Hermite)
		return []*path.Hermite{h}, ok
	case *path.Interpolated:
		points := pp.InterpolationPoints()
		out := make([]*path.Hermite, 0, len(points)-1)
		for i := 0; i+1 < len(points); i++ {
			tr := path.Interval{First: points[i].Time, Second: points[i+1].Time}
			h, ok := method.SteerWithTimeRange(points[i].Config, points[i+1].Config, tr)
			if !ok {
				return nil, false
			}
			out = append(out, h)
		}
		return out, true
	default:
		h, ok := method.SteerWithTimeRange(p.Initial(), p.End(), p.TimeRange())
		if !ok {
			return nil, false
		}
		return []*path.Hermite{h}, true
	}
}

// assemble returns what a failed projection of p keeps: the degenerate
// extract at the start time when nothing was accepted, the single accepted
// curve, or the accepted sequence.
func (rh *RecursiveHermite) assemble(p path.Path, out *path.Vector) (path.Path, bool) {
	switch out.NumberPaths() {
	case 0:
		t0 := p.TimeRange().First
		e, err := p.Extract(path.Interval{First: t0, Second: t0})
		if err != nil {
			return nil, false
		}
		return e, false
	case 1:
		return out.PathAtRank(0), false
	default:
		return out, false
	}
}

type recursion struct {
	ctx    context.Context
	method steering.HermiteSteerer
	out    *path.Vector
	thr    float64
	o      *outcome
}

// recurse accepts h or splits it at its midpoint. Both halves are built
// before either is refined, and a half that does not shrink enough fails
// the whole branch.
func (rh *RecursiveHermite) recurse(r *recursion, h *path.Hermite, depth int) bool {
	r.o.reach(depth)
	tr := h.TimeRange()
	if h.HermiteLength() < r.thr {
		if err := r.out.AppendPath(h); err != nil {
			r.o.fail(reasonSteering, tr.First)
			return false
		}
		r.o.accept(rh.distance(h.Space(), h.Initial(), h.End()))
		return true
	}
	if rh.maxDepth > 0 && depth >= rh.maxDepth {
		r.o.fail(reasonMaxDepth, tr.First)
		return false
	}

	t := tr.First + tr.Length()/2
	rh.logger.Split(r.ctx, depth, t, h.HermiteLength())
	qm, ok := h.Eval(t)
	if !ok {
		r.o.fail(reasonMidpoint, t)
		return false
	}
	vm := h.Velocity(t)

	left, ok := r.method.SteerWithTimeRange(h.Initial(), qm, path.Interval{First: tr.First, Second: t})
	if !ok {
		r.o.fail(reasonSteering, tr.First)
		return false
	}
	left.SetV0(h.V0())
	left.SetV1(vm)

	right, ok := r.method.SteerWithTimeRange(qm, h.End(), path.Interval{First: t, Second: tr.Second})
	if !ok {
		r.o.fail(reasonSteering, t)
		return false
	}
	right.SetV0(vm)
	right.SetV1(h.V1())

	limit := rh.beta * h.HermiteLength()
	if left.ComputeHermiteLength() > limit || right.ComputeHermiteLength() > limit {
		r.o.fail(reasonProgress, t)
		return false
	}
	return rh.recurse(r, left, depth+1) && rh.recurse(r, right, depth+1)
}

// outcome collects what one projection did.
type outcome struct {
	ok        bool
	reason    string
	failedAt  float64
	segments  int
	depth     int
	distances distanceStats
}

func (o *outcome) fail(reason string, t float64) {
	if o.reason == "" {
		o.reason = reason
		o.failedAt = t
	}
}

func (o *outcome) reach(depth int) { o.depth = max(o.depth, depth) }

func (o *outcome) accept(d float64) {
	o.segments++
	o.distances.add(d)
}

// distanceStats tracks min, mean and max of segment distances.
type distanceStats struct {
	n             int
	min, max, sum float64
}

func (d *distanceStats) add(x float64) {
	d.n++
	d.min = min(d.min, x)
	d.max = max(d.max, x)
	d.sum += x
}

func (d *distanceStats) minimum() float64 {
	if d.n == 0 {
		return 0
	}
	return d.min
}

func (d *distanceStats) mean() float64 {
	if d.n == 0 {
		return 0
	}
	return d.sum / float64(d.n)
}
