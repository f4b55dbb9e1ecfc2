// Package kinematics provides a planar serial arm, the robot model used by
// the command line tool and the end-to-end tests.
package kinematics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/kinproj/internal/liegroup"
)

// ErrNoLinks is returned for an arm without links.
var ErrNoLinks = errors.New("arm needs at least one link")

// PlanarArm is a chain of revolute joints in the plane. Joint i rotates
// link i relative to link i-1.
type PlanarArm struct {
	lengths []float64
	space   *liegroup.Product
	so2     *liegroup.SO2
}

// NewPlanarArm returns an arm with the given link lengths.
func NewPlanarArm(lengths ...float64) (*PlanarArm, error) {
	if len(lengths) == 0 {
		return nil, ErrNoLinks
	}
	factors := make([]liegroup.Space, len(lengths))
	for i := range factors {
		factors[i] = liegroup.NewSO2()
	}
	return &PlanarArm{
		lengths: append([]float64(nil), lengths...),
		space:   liegroup.NewProduct(factors...),
		so2:     liegroup.NewSO2(),
	}, nil
}

// Space is SO(2)^n.
func (a *PlanarArm) Space() *liegroup.Product { return a.space }

// Links returns the number of joints.
func (a *PlanarArm) Links() int { return len(a.lengths) }

// Reach is the sum of the link lengths.
func (a *PlanarArm) Reach() float64 {
	r := 0.0
	for _, l := range a.lengths {
		r += l
	}
	return r
}

// JointAngles decodes q into joint angles.
func (a *PlanarArm) JointAngles(q []float64) []float64 {
	out := make([]float64, len(a.lengths))
	for i := range out {
		out[i] = a.so2.Angle(q[2*i : 2*i+2])
	}
	return out
}

// ConfigFromAngles encodes joint angles into a configuration.
func (a *PlanarArm) ConfigFromAngles(theta ...float64) ([]float64, error) {
	if len(theta) != len(a.lengths) {
		return nil, fmt.Errorf("%w: %d angles for %d joints", liegroup.ErrSizeMismatch, len(theta), len(a.lengths))
	}
	q := make([]float64, 0, 2*len(theta))
	for _, th := range theta {
		q = append(q, a.so2.FromAngle(th)...)
	}
	return q, nil
}

// absolute returns the cumulative link orientations.
func (a *PlanarArm) absolute(q []float64) []float64 {
	phi := a.JointAngles(q)
	for i := 1; i < len(phi); i++ {
		phi[i] += phi[i-1]
	}
	return phi
}

// Forward returns the end-effector position.
func (a *PlanarArm) Forward(q []float64) (x, y float64) {
	for i, phi := range a.absolute(q) {
		x += a.lengths[i] * math.Cos(phi)
		y += a.lengths[i] * math.Sin(phi)
	}
	return x, y
}

// EndEffectorPosition is the function q -> (x, y) of the arm tip.
type EndEffectorPosition struct {
	arm *PlanarArm
}

// NewEndEffectorPosition returns the tip position function of arm.
func NewEndEffectorPosition(arm *PlanarArm) *EndEffectorPosition {
	return &EndEffectorPosition{arm: arm}
}

func (f *EndEffectorPosition) Name() string     { return "end-effector position" }
func (f *EndEffectorPosition) ConfigSize() int  { return f.arm.space.ConfigSize() }
func (f *EndEffectorPosition) TangentSize() int { return f.arm.space.TangentSize() }
func (f *EndEffectorPosition) OutputSize() int  { return 2 }

func (f *EndEffectorPosition) Value(q []float64) []float64 {
	x, y := f.arm.Forward(q)
	return []float64{x, y}
}

// Jacobian differentiates with respect to the joint angles. Joint j moves
// every link k >= j.
func (f *EndEffectorPosition) Jacobian(q []float64) *mat.Dense {
	phi := f.arm.absolute(q)
	n := len(phi)
	j := mat.NewDense(2, n, nil)
	var sx, sy float64
	for k := n - 1; k >= 0; k-- {
		sx -= f.arm.lengths[k] * math.Sin(phi[k])
		sy += f.arm.lengths[k] * math.Cos(phi[k])
		j.Set(0, k, sx)
		j.Set(1, k, sy)
	}
	return j
}
