package projector

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kinproj/internal/solver"
)

// Logger wraps zap.Logger with projection events.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("projector")}
}

// Solved logs the outcome of a projection. Failures are warnings.
func (l *Logger) Solved(ctx context.Context, name string, res solver.Result) {
	if l == nil || l.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("projector", name),
		zap.String("status", res.Status.String()),
		zap.Int("iterations", res.Iterations),
		zap.Float64("residual", res.ResidualError),
		zap.Bool("optional_satisfied", res.OptionalSatisfied),
	}
	fields = append(fields, traceFields(ctx)...)
	if res.Status != solver.Success {
		l.logger.Warn("projection failed", fields...)
		return
	}
	l.logger.Debug("projection succeeded", fields...)
}

// Optimized logs the end of Optimize.
func (l *Logger) Optimized(name string, improved bool, cost float64) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug("optimization finished",
		zap.String("projector", name),
		zap.Bool("improved", improved),
		zap.Float64("cost", cost),
	)
}

// traceFields extracts trace context from the context.
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
