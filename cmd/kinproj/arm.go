package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/kinproj/internal/constraints"
	"github.com/fyrsmithlabs/kinproj/internal/kinematics"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
)

// armFlags are the robot description flags shared by solve and refine.
type armFlags struct {
	links []float64
}

func (f *armFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64SliceVar(&f.links, "links", []float64{1, 1, 1}, "link lengths of the planar arm")
}

// tipProblem is a planar arm with its end effector pinned to a target.
type tipProblem struct {
	arm *kinematics.PlanarArm
	tip *constraints.Implicit
	cp  *projector.ConfigProjector
}

// newTipProblem builds the projector for the end-effector constraint. The
// target is left at zero; callers set it.
func (a *app) newTipProblem(name string, links []float64) (*tipProblem, error) {
	arm, err := kinematics.NewPlanarArm(links...)
	if err != nil {
		return nil, err
	}
	tip, err := constraints.NewImplicit(kinematics.NewEndEffectorPosition(arm))
	if err != nil {
		return nil, err
	}
	cp, err := projector.NewFromConfig(arm.Space(), name, a.cfg.Projector,
		projector.WithLogger(a.logger.Underlying()),
		projector.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	if _, err := cp.Add(tip, 0); err != nil {
		return nil, err
	}
	return &tipProblem{arm: arm, tip: tip, cp: cp}, nil
}

// setTarget pins the end effector at (x, y).
func (p *tipProblem) setTarget(target []float64) error {
	if len(target) != 2 {
		return fmt.Errorf("target needs 2 coordinates, got %d", len(target))
	}
	return p.cp.SetRightHandSideOf(p.tip, target)
}

func (p *tipProblem) config(angles []float64) ([]float64, error) {
	return p.arm.ConfigFromAngles(angles...)
}

func (p *tipProblem) forward(q []float64) []float64 {
	x, y := p.arm.Forward(q)
	return []float64{x, y}
}
