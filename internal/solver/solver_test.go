package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/constraints"
	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

func affine(t *testing.T, name string, row ...float64) *constraints.Implicit {
	t.Helper()
	f, err := constraints.NewAffine(name, mat.NewDense(1, len(row), row), nil)
	require.NoError(t, err)
	c, err := constraints.NewImplicit(f)
	require.NoError(t, err)
	return c
}

func add(t *testing.T, s *constraints.Stack, c *constraints.Implicit, priority int, rhs ...float64) {
	t.Helper()
	added, err := s.Add(c, priority)
	require.NoError(t, err)
	require.True(t, added)
	if rhs != nil {
		require.NoError(t, s.SetRightHandSideOf(c, rhs))
	}
}

func square(t *testing.T) *constraints.Implicit {
	t.Helper()
	c, err := constraints.NewImplicit(&constraints.FuncAdapter{
		FuncName:     "x^2",
		NQ:           1,
		NV:           1,
		NO:           1,
		ValueFunc:    func(q []float64) []float64 { return []float64{q[0] * q[0]} },
		JacobianFunc: func(q []float64) *mat.Dense { return mat.NewDense(1, 1, []float64{2 * q[0]}) },
	})
	require.NoError(t, err)
	return c
}

func TestPseudoInverse(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	pinv, rank, smallest := pseudoInverse(a)
	assert.Equal(t, 1, rank)
	assert.InDelta(t, 5, smallest, 1e-12)

	want := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	want.Scale(1.0/25, want)
	assert.True(t, mat.EqualApprox(want, pinv, 1e-12))

	_, rank, _ = pseudoInverse(mat.NewDense(1, 3, nil))
	assert.Equal(t, 0, rank)
}

func TestKernelProjector(t *testing.T) {
	p := KernelProjector(mat.NewDense(1, 2, []float64{1, 1}), 2)
	assert.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{0.5, -0.5, -0.5, 0.5}), p, 1e-12))
	assert.True(t, mat.Equal(identity(3), KernelProjector(nil, 3)))
}

func TestSolve_LinearOneStep(t *testing.T) {
	s := constraints.NewStack(liegroup.NewVector(2))
	add(t, s, affine(t, "x+y", 1, 1), 0, 1)

	sol, err := New(s, Config{ErrorThreshold: 1e-8, MaxIterations: 10, LineSearch: Constant})
	require.NoError(t, err)

	q := []float64{0, 0}
	res := sol.Solve(q)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, res.Config, 1e-12)
	assert.Equal(t, []float64{0, 0}, q)
	assert.True(t, res.OptionalSatisfied)

	// Already on the manifold: no step.
	res = sol.Solve(res.Config)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, 0, res.Iterations)
	assert.True(t, math.IsInf(res.Sigma, 1))
}

func TestSolve_LineSearches(t *testing.T) {
	space := liegroup.NewVector(2)
	segment := liegroup.Segment{Start: 0, Size: 2}

	for _, ls := range []LineSearch{Backtracking, ErrorNormBased, FixedSequence, Constant} {
		t.Run(ls.String(), func(t *testing.T) {
			f, err := constraints.NewSquaredDistance("circle", space, segment, segment, []float64{0, 0})
			require.NoError(t, err)
			c, err := constraints.NewImplicit(f)
			require.NoError(t, err)
			s := constraints.NewStack(space)
			add(t, s, c, 0, 1)

			sol, err := New(s, Config{ErrorThreshold: 1e-6, MaxIterations: 60, LineSearch: ls})
			require.NoError(t, err)
			res := sol.Solve([]float64{2, 0.5})
			require.Equal(t, Success, res.Status)
			assert.Less(t, res.ResidualError, 1e-6)
			assert.InDelta(t, 1, math.Hypot(res.Config[0], res.Config[1]), 1e-6)
		})
	}
}

func TestSolve_FixedSequenceValues(t *testing.T) {
	s := constraints.NewStack(liegroup.NewVector(1))
	add(t, s, affine(t, "x", 1), 0, 1)

	sol, err := New(s, Config{ErrorThreshold: 1e-3, MaxIterations: 10, LineSearch: FixedSequence, FixedSequence: []float64{0.5}})
	require.NoError(t, err)
	res := sol.Solve([]float64{0})
	// Each step halves the distance to 1.
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, 10, res.Iterations)
}

func TestSolve_Degenerate(t *testing.T) {
	s := constraints.NewStack(liegroup.NewVector(1))
	add(t, s, square(t), 0, 1)

	sol, err := New(s, DefaultConfig())
	require.NoError(t, err)
	res := sol.Solve([]float64{0})
	assert.Equal(t, Degenerate, res.Status)
	assert.Equal(t, 0, res.Iterations)
}

func TestSolve_MaxIterations(t *testing.T) {
	s := constraints.NewStack(liegroup.NewVector(1))
	add(t, s, square(t), 0, -1)

	sol, err := New(s, Config{ErrorThreshold: 1e-4, MaxIterations: 5, LineSearch: Constant})
	require.NoError(t, err)
	res := sol.Solve([]float64{2})
	assert.Equal(t, MaxIterationReached, res.Status)
	assert.Equal(t, 5, res.Iterations)
	assert.Greater(t, res.ResidualError, 1e-4)
}

func TestSolve_Hierarchy(t *testing.T) {
	build := func(t *testing.T, optional bool, lowRHS float64, lowRow ...float64) *Solver {
		s := constraints.NewStack(liegroup.NewVector(2))
		add(t, s, affine(t, "x", 1, 0), 0, 1)
		add(t, s, affine(t, "low", lowRow...), 1, lowRHS)
		s.LastIsOptional(optional)
		sol, err := New(s, Config{ErrorThreshold: 1e-8, MaxIterations: 8, LineSearch: Constant})
		require.NoError(t, err)
		return sol
	}

	t.Run("optional level satisfied", func(t *testing.T) {
		res := build(t, true, 3, 0, 1).Solve([]float64{0, 0})
		assert.Equal(t, Success, res.Status)
		assert.True(t, res.OptionalSatisfied)
		assert.InDeltaSlice(t, []float64{1, 3}, res.Config, 1e-12)
	})

	t.Run("optional level in conflict", func(t *testing.T) {
		res := build(t, true, 2, 1, 0).Solve([]float64{0, 0})
		assert.Equal(t, Success, res.Status)
		assert.False(t, res.OptionalSatisfied)
		assert.Equal(t, 8, res.Iterations)
		assert.InDeltaSlice(t, []float64{1, 0}, res.Config, 1e-12)
	})

	t.Run("required level in conflict", func(t *testing.T) {
		res := build(t, false, 2, 1, 0).Solve([]float64{0, 0})
		assert.Equal(t, Degenerate, res.Status)
	})
}

func TestSolve_Explicit(t *testing.T) {
	space := liegroup.NewVector(2)
	g := &constraints.FuncAdapter{
		FuncName:     "y=2x",
		NQ:           2,
		NV:           2,
		NO:           1,
		ValueFunc:    func(q []float64) []float64 { return []float64{2 * q[0]} },
		JacobianFunc: func([]float64) *mat.Dense { return mat.NewDense(1, 2, []float64{2, 0}) },
	}
	explicit, err := constraints.NewExplicit(space, constraints.Output{
		Space:   liegroup.NewVector(1),
		Config:  liegroup.Segment{Start: 1, Size: 1},
		Tangent: liegroup.Segment{Start: 1, Size: 1},
	}, []liegroup.Segment{{Start: 0, Size: 1}}, g)
	require.NoError(t, err)

	s := constraints.NewStack(space)
	add(t, s, explicit, 0)
	add(t, s, affine(t, "x+y", 1, 1), 0, 3)

	sol, err := New(s, Config{ErrorThreshold: 1e-10, MaxIterations: 5, LineSearch: Constant})
	require.NoError(t, err)
	res := sol.Solve([]float64{10, -10})
	require.Equal(t, Success, res.Status)
	assert.InDeltaSlice(t, []float64{1, 2}, res.Config, 1e-12)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		cfg  Config
		err  error
	}{
		{"zero threshold", Config{ErrorThreshold: 0, MaxIterations: 1}, ErrInvalidThreshold},
		{"no iterations", Config{ErrorThreshold: 1, MaxIterations: 0}, ErrInvalidIterations},
		{"bad line search", Config{ErrorThreshold: 1, MaxIterations: 1, LineSearch: LineSearch(9)}, ErrUnknownLineSearch},
		{"bad sequence", Config{ErrorThreshold: 1, MaxIterations: 1, FixedSequence: []float64{1.5}}, ErrInvalidSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.cfg.Validate(), tt.err)
		})
	}

	_, err := New(nil, DefaultConfig())
	require.ErrorIs(t, err, ErrNilStack)
}

func TestParseLineSearch(t *testing.T) {
	for in, want := range map[string]LineSearch{
		"backtracking":     Backtracking,
		"ErrorNormBased":   ErrorNormBased,
		"fixed_sequence":   FixedSequence,
		"CONSTANT":         Constant,
		"error_norm_based": ErrorNormBased,
	} {
		got, err := ParseLineSearch(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLineSearch("newton")
	require.ErrorIs(t, err, ErrUnknownLineSearch)
}

func TestSequence(t *testing.T) {
	seq := newSequence(nil)
	assert.InDelta(t, 0.2, seq.step(), 1e-12)
	assert.InDelta(t, 0.35, seq.step(), 1e-12)
	assert.InDelta(t, 0.47, seq.step(), 1e-12)

	seq = newSequence([]float64{0.3, 0.6})
	assert.Equal(t, 0.3, seq.step())
	assert.Equal(t, 0.6, seq.step())
	assert.Equal(t, 0.6, seq.step())

	assert.Equal(t, 1.0, errorNormAlpha(2, 1))
	assert.Equal(t, 0.5, errorNormAlpha(1, 2))
	assert.Equal(t, 0.2, errorNormAlpha(1, 100))
}
