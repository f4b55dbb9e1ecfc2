package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kinproj/internal/logging"
)

type solveOptions struct {
	arm    armFlags
	angles []float64
	target []float64
}

// solveReport is the result of kinproj solve.
type solveReport struct {
	Success     bool      `json:"success"`
	Links       []float64 `json:"links"`
	Target      []float64 `json:"target"`
	Initial     []float64 `json:"initial_angles"`
	Angles      []float64 `json:"angles"`
	EndEffector []float64 `json:"end_effector"`
	Residual    float64   `json:"residual"`
}

func newSolveCmd(a *app) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Project an arm configuration onto an end-effector target",
		Long: `Project the planar arm configuration given by --angles onto the set of
configurations whose end effector is at --target.

Examples:
  # Three-link arm reaching (1.5, 1)
  kinproj solve --angles 0.1,0.2,0.3 --target 1.5,1

  # Two-link arm, JSON report
  kinproj solve --links 1,0.5 --angles 0.3,0.3 --target 1,0.6 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.runSolve(cmd, opts)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), a.format, report); err != nil {
				return err
			}
			if !report.Success {
				return fmt.Errorf("projection failed (residual %.3g)", report.Residual)
			}
			return nil
		},
	}
	opts.arm.register(cmd)
	cmd.Flags().Float64SliceVar(&opts.angles, "angles", nil, "initial joint angles in radians")
	cmd.Flags().Float64SliceVar(&opts.target, "target", nil, "end-effector target x,y")
	_ = cmd.MarkFlagRequired("angles")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (a *app) runSolve(cmd *cobra.Command, opts *solveOptions) (*solveReport, error) {
	prob, err := a.newTipProblem("solve", opts.arm.links)
	if err != nil {
		return nil, err
	}
	if err := prob.setTarget(opts.target); err != nil {
		return nil, err
	}
	q0, err := prob.config(opts.angles)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	q, ok := prob.cp.ApplyContext(ctx, q0)
	logging.FromContext(ctx).Debug(ctx, "solve finished",
		zap.Bool("success", ok),
		zap.Float64("residual", prob.cp.ResidualError()),
	)
	return &solveReport{
		Success:     ok,
		Links:       opts.arm.links,
		Target:      opts.target,
		Initial:     opts.angles,
		Angles:      prob.arm.JointAngles(q),
		EndEffector: prob.forward(q),
		Residual:    prob.cp.ResidualError(),
	}, nil
}

func (r *solveReport) title() string { return "solve" }

func (r *solveReport) ok() bool { return r.Success }

func (r *solveReport) rows() []row {
	return []row{
		{"links", formatVector(r.Links)},
		{"target", formatVector(r.Target)},
		{"initial angles", formatVector(r.Initial)},
		{"angles", formatVector(r.Angles)},
		{"end effector", formatVector(r.EndEffector)},
		{"residual", fmt.Sprintf("%.3g", r.Residual)},
	}
}
