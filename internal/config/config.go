// Package config provides configuration loading for kinproj.
//
// Configuration is layered: built-in defaults, then an optional YAML or
// TOML file, then KINPROJ_* environment variables. Each section maps onto
// one component: the Newton projector, the recursive Hermite path
// projector, logging and telemetry.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete kinproj configuration.
type Config struct {
	Projector ProjectorConfig `koanf:"projector"`
	Hermite   HermiteConfig   `koanf:"hermite"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ProjectorConfig holds the Newton solver settings of a ConfigProjector.
type ProjectorConfig struct {
	ErrorThreshold float64 `koanf:"error_threshold" validate:"gt=0"`
	MaxIterations  int     `koanf:"max_iterations" validate:"gte=1"`
	// LineSearch is one of backtracking, error_norm_based, fixed_sequence
	// or constant.
	LineSearch string `koanf:"line_search" validate:"oneof=backtracking error_norm_based fixed_sequence constant"`
	// FixedSequence overrides the generated step sequence of the
	// fixed_sequence line search.
	FixedSequence []float64 `koanf:"fixed_sequence" validate:"dive,gt=0,lte=1"`
}

// HermiteConfig holds the recursive Hermite path projector settings.
type HermiteConfig struct {
	M        float64 `koanf:"m" validate:"gt=0"`
	Beta     float64 `koanf:"beta" validate:"gte=0.5,lte=1"`
	MaxDepth int     `koanf:"max_depth" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format   string `koanf:"format" validate:"oneof=json console"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint" validate:"required_if=Enabled true"`
	Protocol        string   `koanf:"protocol" validate:"oneof=grpc http/protobuf stdout"`
	Insecure        bool     `koanf:"insecure"`
	TLSSkipVerify   bool     `koanf:"tls_skip_verify"`
	ServiceName     string   `koanf:"service_name" validate:"required"`
	SamplingRate    float64  `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	Metrics         bool     `koanf:"metrics"`
	ExportInterval  Duration `koanf:"export_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Projector: ProjectorConfig{
			ErrorThreshold: 1e-4,
			MaxIterations:  40,
			LineSearch:     "backtracking",
		},
		Hermite: HermiteConfig{
			M:        1,
			Beta:     0.9,
			MaxDepth: 32,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Sampling: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			ServiceName:     "kinproj",
			SamplingRate:    1.0,
			Metrics:         true,
			ExportInterval:  Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// ErrInvalidConfig is returned by Validate for field-level failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = newValidator()

// newValidator reports fields by their koanf keys.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate validates the configuration.
//
// Returns an error if:
//   - a field is out of range (ErrInvalidConfig, every failing key listed)
//   - projector.fixed_sequence is set but empty
//   - telemetry is enabled with a non-positive export interval or shutdown
//     timeout
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs)
		}
		return err
	}

	if c.Projector.FixedSequence != nil && len(c.Projector.FixedSequence) == 0 {
		return errors.New("projector.fixed_sequence must not be empty when set")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Metrics && c.Telemetry.ExportInterval.Duration() <= 0 {
			return errors.New("telemetry.export_interval must be positive when metrics are enabled")
		}
		if c.Telemetry.ShutdownTimeout.Duration() <= 0 {
			return errors.New("telemetry.shutdown_timeout must be positive")
		}
	}

	return nil
}

// fieldErrors flattens validator errors into one error naming each key.
func fieldErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", key, fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
