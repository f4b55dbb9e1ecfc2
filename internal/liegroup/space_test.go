package liegroup

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_DifferenceIntegrate(t *testing.T) {
	r3 := NewVector(3)
	q0 := []float64{1, 2, 3}
	q1 := []float64{-1, 0.5, 4}

	v := r3.Difference(q1, q0)
	assert.Equal(t, []float64{-2, -1.5, 1}, v)
	assert.Equal(t, q1, r3.Integrate(q0, v))
	assert.Equal(t, "R^3", r3.Name())
	assert.Equal(t, []float64{0, 0, 0}, r3.Neutral())
}

func TestSO2_DifferenceWrapsAngle(t *testing.T) {
	so2 := NewSO2()
	q0 := so2.FromAngle(3.0)
	q1 := so2.FromAngle(-3.0)

	v := so2.Difference(q1, q0)
	require.Len(t, v, 1)
	// Going from 3 to -3 rad is shorter through π.
	assert.InDelta(t, 2*math.Pi-6, v[0], 1e-12)
}

func TestSO2_IntegrateStaysOnCircle(t *testing.T) {
	so2 := NewSO2()
	q := so2.FromAngle(0.3)
	for i := 0; i < 100; i++ {
		q = so2.Integrate(q, []float64{0.1})
	}
	assert.InDelta(t, 1.0, math.Hypot(q[0], q[1]), 1e-12)
	assert.InDelta(t, math.Remainder(10.3, 2*math.Pi), so2.Angle(q), 1e-9)
}

func TestProduct_RoundTrip(t *testing.T) {
	space := NewProduct(NewSO2(), NewVector(2), NewSO2())
	require.Equal(t, 6, space.ConfigSize())
	require.Equal(t, 4, space.TangentSize())
	assert.Equal(t, "SO(2)xR^2xSO(2)", space.Name())
	assert.Equal(t, Segment{Start: 4, Size: 2}, space.ConfigSegment(2))
	assert.Equal(t, Segment{Start: 3, Size: 1}, space.TangentSegment(2))

	rng := rand.New(rand.NewSource(7))
	so2 := NewSO2()
	random := func() []float64 {
		q := so2.FromAngle(rng.Float64()*2*math.Pi - math.Pi)
		q = append(q, rng.NormFloat64(), rng.NormFloat64())
		return append(q, so2.FromAngle(rng.Float64()*2*math.Pi-math.Pi)...)
	}
	for i := 0; i < 50; i++ {
		q0, q1 := random(), random()
		got := space.Integrate(q0, space.Difference(q1, q0))
		for j := range q1 {
			assert.InDelta(t, q1[j], got[j], 1e-9)
		}
	}
}

func TestDistance(t *testing.T) {
	r2 := NewVector(2)
	assert.InDelta(t, 5.0, Distance(r2, []float64{0, 0}, []float64{3, 4}), 1e-12)
}

func TestCheckSizes(t *testing.T) {
	space := NewProduct(NewSO2(), NewVector(1))
	require.NoError(t, CheckConfig(space, []float64{1, 0, 2}))
	require.ErrorIs(t, CheckConfig(space, []float64{1, 0}), ErrSizeMismatch)
	require.NoError(t, CheckTangent(space, []float64{1, 2}))
	require.ErrorIs(t, CheckTangent(space, []float64{1, 2, 3}), ErrSizeMismatch)
}

func TestSegment(t *testing.T) {
	s := Segment{Start: 2, Size: 3}
	assert.Equal(t, 5, s.End())
	assert.True(t, s.Contains(2))
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(5))
	assert.False(t, s.Contains(1))
}
