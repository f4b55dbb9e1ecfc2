package pathprojector

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kinproj/internal/logging"
)

// Logger wraps zap.Logger with path projection events.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("pathprojector")}
}

// Projected logs the outcome of a projection with its segment statistics.
func (l *Logger) Projected(ctx context.Context, o *outcome) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.Bool("success", o.ok),
		zap.Int("segments", o.segments),
		zap.Int("depth", o.depth),
		zap.Float64("distance.min", o.distances.minimum()),
		zap.Float64("distance.mean", o.distances.mean()),
		zap.Float64("distance.max", o.distances.max),
	)
	if !o.ok {
		fields = append(fields,
			zap.String("reason", o.reason),
			zap.Float64("failed_at", o.failedAt),
		)
		l.logger.Warn("path projection failed", fields...)
		return
	}
	l.logger.Debug("path projected", fields...)
}

// RightHandSideFailed logs a right-hand side that could not be evaluated.
func (l *Logger) RightHandSideFailed(ctx context.Context, t float64, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx), zap.Float64("time", t), zap.Error(err))
	l.logger.Debug("right-hand side evaluation failed", fields...)
}

// Split traces one midpoint subdivision.
func (l *Logger) Split(ctx context.Context, depth int, t, length float64) {
	if l == nil || l.logger == nil {
		return
	}
	ce := l.logger.Check(logging.TraceLevel, "segment split")
	if ce == nil {
		return
	}
	ce.Write(append(logging.ContextFields(ctx),
		zap.Int("depth", depth),
		zap.Float64("time", t),
		zap.Float64("length", length),
	)...)
}
