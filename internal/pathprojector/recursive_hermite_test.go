package pathprojector

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/config"
	"github.com/fyrsmithlabs/kinproj/internal/constraints"
	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
	"github.com/fyrsmithlabs/kinproj/internal/logging"
	"github.com/fyrsmithlabs/kinproj/internal/path"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
	"github.com/fyrsmithlabs/kinproj/internal/steering"
)

var r2 = liegroup.NewVector(2)

func constraintSet(t *testing.T, name string, f constraints.Function, rhs []float64, maxIter int) *projector.ConstraintSet {
	t.Helper()
	c, err := constraints.NewImplicit(f)
	require.NoError(t, err)
	cp, err := projector.New(r2, name, 1e-4, maxIter)
	require.NoError(t, err)
	_, err = cp.Add(c, 0)
	require.NoError(t, err)
	require.NoError(t, cp.SetRightHandSide(rhs))
	cs, err := projector.NewConstraintSet(name, cp)
	require.NoError(t, err)
	return cs
}

// circle is x^2 + y^2 = 1.
func circle(t *testing.T, maxIter int) *projector.ConstraintSet {
	t.Helper()
	seg := liegroup.Segment{Start: 0, Size: 2}
	f, err := constraints.NewSquaredDistance("circle", r2, seg, seg, []float64{0, 0})
	require.NoError(t, err)
	return constraintSet(t, "circle", f, []float64{1}, maxIter)
}

// kink is y = |x|, whose Jacobian flips at x = 0.
func kink(t *testing.T) *projector.ConstraintSet {
	t.Helper()
	f := &constraints.FuncAdapter{
		FuncName: "kink",
		NQ:       2, NV: 2, NO: 1,
		ValueFunc: func(q []float64) []float64 {
			return []float64{q[1] - math.Abs(q[0])}
		},
		JacobianFunc: func(q []float64) *mat.Dense {
			sign := 0.0
			if q[0] > 0 {
				sign = 1
			} else if q[0] < 0 {
				sign = -1
			}
			return mat.NewDense(1, 2, []float64{-sign, 1})
		},
	}
	return constraintSet(t, "kink", f, []float64{0}, 40)
}

// bend is y = sqrt(x^2 + 0.25), a smoothed kink.
func bend(t *testing.T) *projector.ConstraintSet {
	t.Helper()
	f := &constraints.FuncAdapter{
		FuncName: "bend",
		NQ:       2, NV: 2, NO: 1,
		ValueFunc: func(q []float64) []float64 {
			return []float64{q[1] - math.Hypot(q[0], 0.5)}
		},
		JacobianFunc: func(q []float64) *mat.Dense {
			return mat.NewDense(1, 2, []float64{-q[0] / math.Hypot(q[0], 0.5), 1})
		},
	}
	return constraintSet(t, "bend", f, []float64{0}, 40)
}

// horizontal is y = 0.5.
func horizontal(t *testing.T) *projector.ConstraintSet {
	t.Helper()
	f, err := constraints.NewAffine("horizontal", mat.NewDense(1, 2, []float64{0, 1}), []float64{0})
	require.NoError(t, err)
	return constraintSet(t, "horizontal", f, []float64{0.5}, 40)
}

func newProjector(t *testing.T, beta float64, opts ...Option) *RecursiveHermite {
	t.Helper()
	rh, err := New(steering.NewHermite(r2, nil), 10, beta, opts...)
	require.NoError(t, err)
	return rh
}

func straight(t *testing.T, from, to []float64, tr path.Interval, cs *projector.ConstraintSet) *path.Straight {
	t.Helper()
	p, err := path.NewStraight(r2, from, to, tr, cs)
	require.NoError(t, err)
	return p
}

func failures(reason string) float64 {
	return testutil.ToFloat64(FailuresTotal.WithLabelValues(reason))
}

func TestNew_Validation(t *testing.T) {
	hermite := steering.NewHermite(r2, nil)

	_, err := New(hermite, 10, 0.4)
	require.ErrorIs(t, err, ErrInvalidBeta)
	_, err = New(hermite, 10, 1.1)
	require.ErrorIs(t, err, ErrInvalidBeta)
	_, err = New(hermite, 0, 0.8)
	require.ErrorIs(t, err, ErrInvalidStiffness)
	_, err = New(hermite, -1, 0.8)
	require.ErrorIs(t, err, ErrInvalidStiffness)
	_, err = New(steering.NewStraight(r2, nil), 10, 0.8)
	require.ErrorIs(t, err, ErrNotHermiteSteering)

	rh, err := New(hermite, 10, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rh.M())
	assert.Equal(t, 0.5, rh.Beta())
	assert.Equal(t, DefaultMaxDepth, rh.MaxDepth())

	rh, err = New(hermite, 10, 1, WithMaxDepth(-3))
	require.NoError(t, err)
	assert.Equal(t, 0, rh.MaxDepth())
}

func TestNew_OwnsConstraintFreeMethod(t *testing.T) {
	method := steering.NewHermite(r2, circle(t, 40))
	rh, err := New(method, 10, 0.8)
	require.NoError(t, err)
	assert.Nil(t, rh.method.Constraints())
	assert.NotNil(t, method.Constraints())
}

func TestNewFromConfig(t *testing.T) {
	rh, err := NewFromConfig(steering.NewHermite(r2, nil), config.HermiteConfig{M: 4, Beta: 0.9, MaxDepth: 7})
	require.NoError(t, err)
	assert.Equal(t, 4.0, rh.M())
	assert.Equal(t, 0.9, rh.Beta())
	assert.Equal(t, 7, rh.MaxDepth())

	rh, err = NewFromConfig(steering.NewHermite(r2, nil), config.HermiteConfig{M: 4, Beta: 0.9, MaxDepth: 7}, WithMaxDepth(0))
	require.NoError(t, err)
	assert.Equal(t, 0, rh.MaxDepth())

	_, err = NewFromConfig(steering.NewHermite(r2, nil), config.HermiteConfig{M: 4, Beta: 0.2})
	require.ErrorIs(t, err, ErrInvalidBeta)
}

func TestProject_Unconstrained(t *testing.T) {
	p := straight(t, []float64{0, 0}, []float64{1, 1}, path.Interval{Second: 1}, nil)
	res, ok := newProjector(t, 0.8).Project(context.Background(), p)
	require.True(t, ok)
	assert.Same(t, path.Path(p), res)
}

func TestProject_Circle(t *testing.T) {
	before := testutil.ToFloat64(ProjectionsTotal.WithLabelValues("success"))
	p := straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, circle(t, 40))

	res, ok := newProjector(t, 0.8).Project(context.Background(), p)
	require.True(t, ok)
	assert.Equal(t, before+1, testutil.ToFloat64(ProjectionsTotal.WithLabelValues("success")))

	v, isVector := res.(*path.Vector)
	require.True(t, isVector)
	require.Greater(t, v.NumberPaths(), 1)
	assert.Equal(t, path.Interval{First: 0, Second: 1}, v.TimeRange())
	assert.Equal(t, []float64{1, 0}, v.Initial())
	assert.Equal(t, []float64{0, 1}, v.End())

	thr := 2 * 1e-4 / 10
	for i := 0; i < v.NumberPaths(); i++ {
		h, isHermite := v.PathAtRank(i).(*path.Hermite)
		require.True(t, isHermite)
		assert.Less(t, h.ComputeHermiteLength(), thr)
		if i > 0 {
			assert.Equal(t, v.PathAtRank(i-1).End(), h.Initial())
		}
	}

	for k := 0; k <= 20; k++ {
		q, ok := v.Eval(float64(k) / 20)
		require.True(t, ok)
		assert.InDelta(t, 1.0, math.Hypot(q[0], q[1]), 1e-4)
	}
}

func TestProject_AlreadyFeasibleIsOneSegment(t *testing.T) {
	p := straight(t, []float64{0, 0.5}, []float64{1, 0.5}, path.Interval{Second: 1}, horizontal(t))

	res, ok := newProjector(t, 0.8).Project(context.Background(), p)
	require.True(t, ok)
	v, isVector := res.(*path.Vector)
	require.True(t, isVector)
	require.Equal(t, 1, v.NumberPaths())

	q, ok := v.Eval(0.25)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.25, 0.5}, q, 1e-12)
}

func TestProject_ReusesHermite(t *testing.T) {
	h, err := path.NewHermite(r2, []float64{0, 0.5}, []float64{1, 0.5}, horizontal(t), path.Interval{First: 2, Second: 3})
	require.NoError(t, err)

	res, ok := newProjector(t, 0.8).Project(context.Background(), h)
	require.True(t, ok)
	assert.Equal(t, path.Interval{First: 2, Second: 3}, res.TimeRange())
	assert.Equal(t, -1.0, h.HermiteLength(), "input must not be modified")
}

func TestProject_InfeasibleEnd(t *testing.T) {
	before := failures(reasonInfeasibleEndpoint)
	p := straight(t, []float64{1, 0}, []float64{0, 2}, path.Interval{Second: 1}, circle(t, 40))

	res, ok := newProjector(t, 0.8).Project(context.Background(), p)
	assert.False(t, ok)
	assert.Nil(t, res)
	assert.Equal(t, before+1, failures(reasonInfeasibleEndpoint))
}

func TestProject_KinkFailsOnProgress(t *testing.T) {
	before := failures(reasonProgress)
	p := straight(t, []float64{-1, 1}, []float64{1, 1}, path.Interval{Second: 1}, kink(t))

	res, ok := newProjector(t, 0.5).Project(context.Background(), p)
	assert.False(t, ok)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.Length())
	assert.Equal(t, []float64{-1, 1}, res.Initial())
	assert.Equal(t, before+1, failures(reasonProgress))
}

func TestProject_BendNeedsLooseBeta(t *testing.T) {
	y := math.Sqrt(1.25)
	p := straight(t, []float64{-1, y}, []float64{1, y}, path.Interval{Second: 1}, bend(t))

	before := failures(reasonProgress)
	_, ok := newProjector(t, 0.5).Project(context.Background(), p)
	assert.False(t, ok)
	assert.Equal(t, before+1, failures(reasonProgress))

	res, ok := newProjector(t, 0.9).Project(context.Background(), p)
	require.True(t, ok)
	assert.Equal(t, []float64{1, y}, res.End())
	v := res.(*path.Vector)
	for i := 0; i < v.NumberPaths(); i++ {
		h := v.PathAtRank(i).(*path.Hermite)
		assert.Less(t, h.HermiteLength(), 2*1e-4/10)
	}
}

func TestProject_MaxDepth(t *testing.T) {
	before := failures(reasonMaxDepth)
	p := straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, circle(t, 40))

	res, ok := newProjector(t, 0.8, WithMaxDepth(2)).Project(context.Background(), p)
	assert.False(t, ok)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.Length())
	assert.Equal(t, before+1, failures(reasonMaxDepth))
}

func TestProject_MidpointProjectionFails(t *testing.T) {
	before := failures(reasonMidpoint)
	p := straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, circle(t, 1))

	_, ok := newProjector(t, 0.8).Project(context.Background(), p)
	assert.False(t, ok)
	assert.Equal(t, before+1, failures(reasonMidpoint))
}

func TestProject_PartialInterpolated(t *testing.T) {
	cs := kink(t)
	one, err := path.NewInterpolated(r2, []path.Waypoint{
		{Time: 0, Config: []float64{-2, 2}},
		{Time: 1, Config: []float64{-1, 1}},
		{Time: 2, Config: []float64{1, 1}},
	}, cs)
	require.NoError(t, err)

	res, ok := newProjector(t, 0.5).Project(context.Background(), one)
	assert.False(t, ok)
	h, isHermite := res.(*path.Hermite)
	require.True(t, isHermite)
	assert.Equal(t, path.Interval{First: 0, Second: 1}, h.TimeRange())

	two, err := path.NewInterpolated(r2, []path.Waypoint{
		{Time: 0, Config: []float64{-3, 3}},
		{Time: 1, Config: []float64{-2, 2}},
		{Time: 2, Config: []float64{-1, 1}},
		{Time: 3, Config: []float64{1, 1}},
	}, cs)
	require.NoError(t, err)

	res, ok = newProjector(t, 0.5).Project(context.Background(), two)
	assert.False(t, ok)
	v, isVector := res.(*path.Vector)
	require.True(t, isVector)
	assert.Equal(t, 2, v.NumberPaths())
	assert.Equal(t, []float64{-1, 1}, v.End())
}

func TestApply_Vector(t *testing.T) {
	cs := circle(t, 40)
	v := path.NewVector(r2)
	require.NoError(t, v.AppendPath(straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, cs)))
	require.NoError(t, v.AppendPath(straight(t, []float64{0, 1}, []float64{-1, 0}, path.Interval{Second: 1}, cs)))

	res, ok := newProjector(t, 0.8).Apply(context.Background(), v)
	require.True(t, ok)
	out, isVector := res.(*path.Vector)
	require.True(t, isVector)
	assert.Greater(t, out.NumberPaths(), 2)
	assert.Equal(t, path.Interval{First: 0, Second: 2}, out.TimeRange())
	assert.Equal(t, []float64{-1, 0}, out.End())
}

func TestApply_VectorStopsAtFirstFailure(t *testing.T) {
	cs := circle(t, 40)
	v := path.NewVector(r2)
	require.NoError(t, v.AppendPath(straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, cs)))
	require.NoError(t, v.AppendPath(straight(t, []float64{0, 1}, []float64{-2, 0}, path.Interval{Second: 1}, cs)))
	require.NoError(t, v.AppendPath(straight(t, []float64{-2, 0}, []float64{0, -1}, path.Interval{Second: 1}, cs)))

	res, ok := newProjector(t, 0.8).Apply(context.Background(), v)
	assert.False(t, ok)
	require.NotNil(t, res)
	assert.Equal(t, 1.0, res.Length())
	assert.Equal(t, []float64{0, 1}, res.End())
}

func TestApply_InfeasibleFirstPart(t *testing.T) {
	v := path.NewVector(r2)
	require.NoError(t, v.AppendPath(straight(t, []float64{1, 0}, []float64{0, 2}, path.Interval{Second: 1}, circle(t, 40))))

	res, ok := newProjector(t, 0.8).Apply(context.Background(), v)
	assert.False(t, ok)
	require.NotNil(t, res)
	empty, isVector := res.(*path.Vector)
	require.True(t, isVector)
	assert.Zero(t, empty.NumberPaths())
	assert.Equal(t, path.Interval{}, empty.TimeRange())
	assert.Nil(t, empty.Initial())
}

func TestApply_LogsAndSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(sdktrace.NewTracerProvider())

	core, logs := observer.New(zapcore.DebugLevel)
	rh := newProjector(t, 0.5, WithLogger(zap.New(core)))

	ok := straight(t, []float64{0, 0.5}, []float64{1, 0.5}, path.Interval{Second: 1}, horizontal(t))
	_, success := rh.Apply(context.Background(), ok)
	require.True(t, success)
	bad := straight(t, []float64{-1, 1}, []float64{1, 1}, path.Interval{Second: 1}, kink(t))
	_, success = rh.Apply(context.Background(), bad)
	require.False(t, success)

	projected := logs.FilterMessage("path projected").All()
	require.Len(t, projected, 1)
	assert.Equal(t, "pathprojector", projected[0].LoggerName)
	fields := projected[0].ContextMap()
	assert.Equal(t, int64(1), fields["segments"])
	assert.NotEmpty(t, fields["query.id"])
	assert.InDelta(t, 1.0, fields["distance.max"], 1e-12)

	failed := logs.FilterMessage("path projection failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, reasonProgress, failed[0].ContextMap()["reason"])
	assert.NotEqual(t, fields["query.id"], failed[0].ContextMap()["query.id"])

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pathprojector.Apply", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, reasonProgress, spans[1].Status().Description)
}

func TestProject_TracesSplits(t *testing.T) {
	tl := logging.NewTestLogger()
	rh := newProjector(t, 0.8, WithLogger(tl.Underlying()))
	p := straight(t, []float64{1, 0}, []float64{0, 1}, path.Interval{Second: 1}, circle(t, 40))

	ctx := logging.WithQueryID(context.Background(), "q_split")
	res, ok := rh.Project(ctx, p)
	require.True(t, ok)

	splits := tl.FilterMessage("segment split").All()
	require.NotEmpty(t, splits)
	assert.Equal(t, logging.TraceLevel, splits[0].Level)
	assert.Equal(t, int64(0), splits[0].ContextMap()["depth"])
	assert.InDelta(t, 0.5, splits[0].ContextMap()["time"], 1e-12)
	tl.AssertQueryID(t, "segment split", "q_split")
	tl.AssertQueryID(t, "path projected", "q_split")
	assert.GreaterOrEqual(t, res.(*path.Vector).NumberPaths(), 2)

	quiet, quietLogs := observer.New(zapcore.DebugLevel)
	_, ok = newProjector(t, 0.8, WithLogger(zap.New(quiet))).Project(ctx, p)
	require.True(t, ok)
	assert.Zero(t, quietLogs.FilterMessage("segment split").Len())
}

func TestWithDistance(t *testing.T) {
	calls := 0
	rh := newProjector(t, 0.8, WithDistance(func(space liegroup.Space, q0, q1 []float64) float64 {
		calls++
		return liegroup.Distance(space, q0, q1)
	}))
	p := straight(t, []float64{0, 0.5}, []float64{1, 0.5}, path.Interval{Second: 1}, horizontal(t))
	_, ok := rh.Apply(context.Background(), p)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
}
