// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Outputs to stdout, stderr and OpenTelemetry, in any combination
//   - Automatic context field injection (trace_id, span_id, query.id)
//   - Per-level sampling (errors never sampled)
//
// # Usage
//
// Create logger from the loaded configuration:
//
//	cfg, err := logging.FromConfig(appCfg.Logging)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, tel.LoggerProvider())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Projection queries tag their context so every line can be correlated:
//
//	ctx = logging.WithQueryID(ctx, uuid.NewString())
//	logger.Info(ctx, "path projected", zap.Int("segments", n))
//
// Output:
//
//	{
//	  "ts": "2026-03-02T10:15:30Z",
//	  "level": "info",
//	  "msg": "path projected",
//	  "trace_id": "abc123",
//	  "query.id": "5f0c...",
//	  "segments": 12
//	}
//
// Packages that only need a *zap.Logger take Underlying() and derive
// their own Named child.
//
// # Sampling
//
// Each configured level below Error gets its own sampler, keyed by message
// within the tick. The defaults are:
//   - Trace: first 1 per second, drop rest
//   - Debug: first 10 per second, drop rest
//   - Info: first 100, then 1 every 10
//   - Warn: first 100, then 1 every 100
//   - Error+: never sampled
//
// Levels missing from SamplingConfig.Levels pass through unsampled.
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// The projectors take a *zap.Logger, so pass tl.Underlying() to
// projector.WithLogger or pathprojector.WithLogger.
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
