package logging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestIntegration_FullLoggingPipeline(t *testing.T) {
	// Create config
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Format = "json"
	cfg.Output.Stdout = true
	cfg.Output.OTEL = false
	cfg.Sampling.Enabled = false // Disable for predictable test

	// Create logger (no OTEL provider)
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	defer func() {
		// Ignore sync errors on stdout/stderr (common on some systems)
		_ = logger.Sync()
	}()

	ctx := WithQueryID(context.Background(), "q_integration_123")

	// Log at all levels with various fields
	logger.Trace(ctx, "trace message", zap.String("detail", "ultra-verbose"))
	logger.Debug(ctx, "debug message", zap.String("cache", "hit"))
	logger.Info(ctx, "info message", zap.Duration("duration", 45*time.Millisecond))
	logger.Warn(ctx, "warn message", zap.Int("retry_attempt", 2))
	logger.Error(ctx, "error message", zap.Error(fmt.Errorf("test error")))

	logger.Info(ctx, "projection summary",
		zap.Object("stats", &testStats{Segments: 12, MaxDistance: 1.5e-5}),
	)

	// Test child logger
	child := logger.With(zap.String("component", "pathprojector"))
	child.Info(ctx, "child log")

	// Test named logger
	named := logger.Named("subsystem")
	named.Info(ctx, "named log")

	// Sync may fail on stdout/stderr in some environments (e.g., CI, testing frameworks)
	// This is expected behavior - zap's Sync() attempts to fsync stdout which fails
	// when stdout is not a regular file. We just ensure no panic occurs.
	_ = logger.Sync()
}

type testStats struct {
	Segments    int
	MaxDistance float64
}

func (s *testStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("segments", s.Segments)
	enc.AddFloat64("distance.max", s.MaxDistance)
	return nil
}

func TestIntegration_ContextFieldInjection(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithQueryID(context.Background(), "q_123")

	tl.Info(ctx, "projection", zap.String("solver", "hierarchical"))

	tl.AssertLogged(t, zapcore.InfoLevel, "projection")
	tl.AssertField(t, "projection", "query.id", "q_123")
	tl.AssertField(t, "projection", "solver", "hierarchical")
	tl.AssertQueryID(t, "projection", "q_123")
}
