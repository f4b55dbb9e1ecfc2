// Package main implements the kinproj CLI: constrained configuration
// projection and adaptive path projection on a planar arm.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kinproj/internal/config"
	"github.com/fyrsmithlabs/kinproj/internal/logging"
	"github.com/fyrsmithlabs/kinproj/internal/projector"
	"github.com/fyrsmithlabs/kinproj/internal/telemetry"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once PersistentPreRunE ran.
type app struct {
	configPath string
	logLevel   string
	format     string

	cfg     *config.Config
	logger  *logging.Logger
	tel     *telemetry.Telemetry
	metrics *projector.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kinproj",
		Short: "Project configurations and paths onto kinematic constraints",
		Long: `kinproj projects configurations of a planar serial arm onto constraint
manifolds with a hierarchical Newton solver, and turns straight paths into
continuous constrained paths with the recursive Hermite projector.

Configuration is read from a YAML or TOML file (--config) and overridden
by KINPROJ_* environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.format, "format", "text", "output format (text or json)")

	root.AddCommand(newSolveCmd(a))
	root.AddCommand(newRefineCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads configuration and starts logging and telemetry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.format != "text" && a.format != "json" {
		return fmt.Errorf("--format must be text or json, got %q", a.format)
	}

	cfg, err := config.LoadWithFile(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// One query ID per invocation, shared by every projection it runs.
	ctx = logging.WithQueryID(ctx, uuid.NewString())

	a.tel, err = telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	// stdout carries the report.
	logCfg.Output.Stdout = false
	logCfg.Output.Stderr = true
	a.logger, err = logging.NewLogger(logCfg, a.tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx = logging.WithLogger(ctx, a.logger)
	cmd.SetContext(ctx)

	a.metrics, err = projector.NewMetrics(a.tel.Meter(projector.InstrumentationName))
	if err != nil {
		return fmt.Errorf("failed to create projector metrics: %w", err)
	}

	if h := a.tel.Health(); h.Degraded {
		a.logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if a.tel != nil {
		err = a.tel.Shutdown(ctx)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kinproj by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
