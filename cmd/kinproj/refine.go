package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/fyrsmithlabs/kinproj/internal/logging"
	"github.com/fyrsmithlabs/kinproj/internal/path"
	"github.com/fyrsmithlabs/kinproj/internal/pathprojector"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
	"github.com/fyrsmithlabs/kinproj/internal/steering"
)

// refineSamples is the number of points checked along the projected path.
const refineSamples = 64

type refineOptions struct {
	arm    armFlags
	from   []float64
	to     []float64
	target []float64
}

// refineReport is the result of kinproj refine.
type refineReport struct {
	Success  bool      `json:"success"`
	Links    []float64 `json:"links"`
	Target   []float64 `json:"target"`
	From     []float64 `json:"from_angles"`
	To       []float64 `json:"to_angles"`
	Segments int       `json:"segments"`
	Length   float64   `json:"length"`
	// Reached is the end configuration of the projected path, which is
	// short of To when the projection failed part way.
	Reached      []float64 `json:"reached_angles"`
	EndError     float64   `json:"end_error"`
	MaxDeviation float64   `json:"max_deviation"`
}

func newRefineCmd(a *app) *cobra.Command {
	opts := &refineOptions{}
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Project a straight arm motion onto an end-effector target",
		Long: `Project --from and --to onto the configurations whose end effector is at
--target, join them with a straight path and refine it into a continuous
constrained path with the recursive Hermite projector.

Without --target the end effector stays where --from puts it.

Examples:
  # Self-motion of a three-link arm
  kinproj refine --from 0.2,0.8,0.4 --to 0.6,0.1,0.9

  # Explicit target, TOML configuration
  kinproj refine --config kinproj.toml --from 0,1,1 --to 0.5,0.5,1 --target 1.2,1.4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.runRefine(cmd, opts)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), a.format, report); err != nil {
				return err
			}
			if !report.Success {
				return errors.New("path projection failed")
			}
			return nil
		},
	}
	opts.arm.register(cmd)
	cmd.Flags().Float64SliceVar(&opts.from, "from", nil, "start joint angles in radians")
	cmd.Flags().Float64SliceVar(&opts.to, "to", nil, "goal joint angles in radians")
	cmd.Flags().Float64SliceVar(&opts.target, "target", nil, "end-effector target x,y (default: tip of --from)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) runRefine(cmd *cobra.Command, opts *refineOptions) (*refineReport, error) {
	ctx := cmd.Context()
	prob, err := a.newTipProblem("refine", opts.arm.links)
	if err != nil {
		return nil, err
	}
	qFrom, err := prob.config(opts.from)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	qTo, err := prob.config(opts.to)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}

	target := opts.target
	if target == nil {
		prob.cp.RightHandSideFromConfig(qFrom)
		target = prob.forward(qFrom)
	} else if err := prob.setTarget(target); err != nil {
		return nil, err
	}

	start, ok := prob.cp.ApplyContext(ctx, qFrom)
	if !ok {
		return nil, fmt.Errorf("--from cannot be projected onto target %v", target)
	}
	goal, ok := prob.cp.ApplyContext(ctx, qTo)
	if !ok {
		return nil, fmt.Errorf("--to cannot be projected onto target %v", target)
	}

	cs, err := projector.NewConstraintSet("end-effector target", prob.cp)
	if err != nil {
		return nil, err
	}
	space := prob.arm.Space()
	straight, ok := steering.NewStraight(space, cs).Steer(start, goal)
	if !ok {
		return nil, errors.New("cannot build a straight path between the projected endpoints")
	}

	rh, err := pathprojector.NewFromConfig(steering.NewHermite(space, nil), a.cfg.Hermite,
		pathprojector.WithLogger(a.logger.Underlying()),
	)
	if err != nil {
		return nil, err
	}
	out, ok := rh.Apply(ctx, straight)
	logging.FromContext(ctx).Debug(ctx, "refine finished", zap.Bool("success", ok))

	report := &refineReport{
		Success: ok,
		Links:   opts.arm.links,
		Target:  target,
		From:    opts.from,
		To:      opts.to,
	}
	if out == nil {
		return report, nil
	}
	report.Segments = countSegments(out)
	report.Length = out.Length()
	report.Reached = prob.arm.JointAngles(out.End())
	report.EndError = floats.Distance(prob.forward(out.End()), target, 2)
	report.MaxDeviation = maxDeviation(prob, out, target)
	return report, nil
}

func countSegments(p path.Path) int {
	if v, ok := p.(*path.Vector); ok {
		return v.NumberPaths()
	}
	return 1
}

// maxDeviation samples p and returns the largest tip distance to target.
func maxDeviation(prob *tipProblem, p path.Path, target []float64) float64 {
	tr := p.TimeRange()
	worst := 0.0
	for i := 0; i <= refineSamples; i++ {
		t := tr.First + tr.Length()*float64(i)/refineSamples
		q, ok := p.Eval(t)
		if !ok {
			continue
		}
		if d := floats.Distance(prob.forward(q), target, 2); d > worst {
			worst = d
		}
	}
	return worst
}

func (r *refineReport) title() string { return "refine" }

func (r *refineReport) ok() bool { return r.Success }

func (r *refineReport) rows() []row {
	rows := []row{
		{"links", formatVector(r.Links)},
		{"target", formatVector(r.Target)},
		{"from", formatVector(r.From)},
		{"to", formatVector(r.To)},
		{"segments", fmt.Sprintf("%d", r.Segments)},
		{"length", fmt.Sprintf("%.4g", r.Length)},
	}
	if r.Reached != nil {
		rows = append(rows,
			row{"reached", formatVector(r.Reached)},
			row{"end error", fmt.Sprintf("%.3g", r.EndError)},
			row{"max deviation", fmt.Sprintf("%.3g", r.MaxDeviation)},
		)
	}
	return rows
}
