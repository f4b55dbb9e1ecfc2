package projector

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/kinproj/internal/solver"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/kinproj/internal/projector"
)

// Metrics provides OpenTelemetry metrics for configuration projection.
type Metrics struct {
	solveTotal metric.Int64Counter
	iterations metric.Int64Histogram
	residual   metric.Float64Histogram

	initialized bool
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.solveTotal, err = meter.Int64Counter(
		"projector.solve.total",
		metric.WithDescription("Total number of projections by outcome"),
		metric.WithUnit("{solve}"),
	)
	if err != nil {
		return nil, err
	}

	m.iterations, err = meter.Int64Histogram(
		"projector.solve.iterations",
		metric.WithDescription("Newton iterations per projection"),
		metric.WithUnit("{iteration}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 13, 20, 30, 50),
	)
	if err != nil {
		return nil, err
	}

	m.residual, err = meter.Float64Histogram(
		"projector.solve.residual",
		metric.WithDescription("Residual error norm at the end of a projection"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(1e-12, 1e-10, 1e-8, 1e-6, 1e-4, 1e-2, 1),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordSolve records one projection.
func (m *Metrics) RecordSolve(ctx context.Context, status solver.Status, iterations int, residual float64) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status.String()))
	m.solveTotal.Add(ctx, 1, attrs)
	m.iterations.Record(ctx, int64(iterations), attrs)
	m.residual.Record(ctx, residual, attrs)
}
