// Package telemetry sets up the OpenTelemetry SDK for kinproj.
//
// # Overview
//
// New installs a TracerProvider and, when metrics are enabled, a
// MeterProvider as the otel globals. The projector and pathprojector
// packages resolve their tracers and meters through those globals, so a
// projection started after New is exported without further wiring, over
// OTLP (gRPC or HTTP/protobuf) or as pretty-printed JSON on stderr with the
// stdout protocol. Shutdown puts the previous globals back.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	metrics, err := projector.NewMetrics(tel.Meter(projector.InstrumentationName))
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  service_name: "kinproj"
//	  sampling_rate: 1.0
//	  metrics: true
//	  export_interval: "15s"
//
// Insecure connections are only accepted for local endpoints. The stdout
// protocol ignores endpoint and insecure.
//
// # Error Handling
//
// Exporter failures never fail New. The instance degrades to no-op
// providers and Health reports the first cause.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "pathprojector.Apply")
//	span.End()
//	tt.AssertSpanExists(t, "pathprojector.Apply")
//
//	metrics, _ := projector.NewMetrics(tt.Meter(projector.InstrumentationName))
//	// ... run projections ...
//	byStatus := tt.Counter(t, "projector.solve.total", "status")
package telemetry
