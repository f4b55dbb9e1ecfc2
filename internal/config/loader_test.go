package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Projector.MaxIterations != Default().Projector.MaxIterations {
		t.Errorf("Projector.MaxIterations = %d, want default", cfg.Projector.MaxIterations)
	}
}

func TestLoadWithFile_YAML(t *testing.T) {
	path := writeConfig(t, "kinproj.yaml", `projector:
  error_threshold: 1.0e-6
  line_search: fixed_sequence
  fixed_sequence: [0.2, 0.5, 1]
hermite:
  m: 4
  beta: 0.75
telemetry:
  shutdown_timeout: 2s
`)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}
	if cfg.Projector.ErrorThreshold != 1e-6 {
		t.Errorf("Projector.ErrorThreshold = %g, want 1e-6", cfg.Projector.ErrorThreshold)
	}
	if cfg.Projector.LineSearch != "fixed_sequence" {
		t.Errorf("Projector.LineSearch = %q, want fixed_sequence", cfg.Projector.LineSearch)
	}
	if got := cfg.Projector.FixedSequence; len(got) != 3 || got[1] != 0.5 {
		t.Errorf("Projector.FixedSequence = %v, want [0.2 0.5 1]", got)
	}
	if cfg.Hermite.M != 4 || cfg.Hermite.Beta != 0.75 {
		t.Errorf("Hermite = %+v, want M=4 Beta=0.75", cfg.Hermite)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Projector.MaxIterations != 40 {
		t.Errorf("Projector.MaxIterations = %d, want 40", cfg.Projector.MaxIterations)
	}
	if cfg.Hermite.MaxDepth != 32 {
		t.Errorf("Hermite.MaxDepth = %d, want 32", cfg.Hermite.MaxDepth)
	}
	if cfg.Telemetry.ShutdownTimeout.Duration() != 2*time.Second {
		t.Errorf("Telemetry.ShutdownTimeout = %v, want 2s", cfg.Telemetry.ShutdownTimeout.Duration())
	}
}

func TestLoadWithFile_TOML(t *testing.T) {
	path := writeConfig(t, "kinproj.toml", `[projector]
max_iterations = 12
line_search = "error_norm_based"

[hermite]
m = 10
max_depth = 0

[logging]
level = "debug"
format = "json"
`)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}
	if cfg.Projector.MaxIterations != 12 {
		t.Errorf("Projector.MaxIterations = %d, want 12", cfg.Projector.MaxIterations)
	}
	if cfg.Projector.LineSearch != "error_norm_based" {
		t.Errorf("Projector.LineSearch = %q, want error_norm_based", cfg.Projector.LineSearch)
	}
	if cfg.Hermite.M != 10 {
		t.Errorf("Hermite.M = %g, want 10", cfg.Hermite.M)
	}
	if cfg.Hermite.MaxDepth != 0 {
		t.Errorf("Hermite.MaxDepth = %d, want 0", cfg.Hermite.MaxDepth)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "kinproj.yaml", "hermite:\n  beta: 0.75\n")
	t.Setenv("KINPROJ_HERMITE_BETA", "0.6")
	t.Setenv("KINPROJ_PROJECTOR_MAX_ITERATIONS", "7")
	t.Setenv("KINPROJ_TELEMETRY_SERVICE_NAME", "kinproj-test")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}
	if cfg.Hermite.Beta != 0.6 {
		t.Errorf("Hermite.Beta = %g, want 0.6 from environment", cfg.Hermite.Beta)
	}
	if cfg.Projector.MaxIterations != 7 {
		t.Errorf("Projector.MaxIterations = %d, want 7", cfg.Projector.MaxIterations)
	}
	if cfg.Telemetry.ServiceName != "kinproj-test" {
		t.Errorf("Telemetry.ServiceName = %q, want kinproj-test", cfg.Telemetry.ServiceName)
	}
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	path := writeConfig(t, "kinproj.yaml", "hermite:\n  beta: 0.2\n")

	_, err := LoadWithFile(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("LoadWithFile() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadWithFile_Errors(t *testing.T) {
	dir := t.TempDir()
	large := filepath.Join(dir, "large.yaml")
	if err := os.WriteFile(large, bytes.Repeat([]byte("#"), maxConfigFileSize+1), 0600); err != nil {
		t.Fatalf("Failed to write large config: %v", err)
	}
	asDir := filepath.Join(dir, "conf.yaml")
	if err := os.Mkdir(asDir, 0700); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	broken := writeConfig(t, "broken.toml", "[projector\nmax_iterations = ")

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.yaml"), wantErr: "failed to open"},
		{name: "unsupported extension", path: filepath.Join(dir, "kinproj.json"), wantErr: "unsupported"},
		{name: "too large", path: large, wantErr: "too large"},
		{name: "directory", path: asDir, wantErr: "is a directory"},
		{name: "malformed toml", path: broken, wantErr: "failed to load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithFile(tt.path)
			if err == nil {
				t.Fatal("LoadWithFile() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadWithFile() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"KINPROJ_PROJECTOR_ERROR_THRESHOLD": "projector.error_threshold",
		"KINPROJ_HERMITE_M":                 "hermite.m",
		"KINPROJ_LOGGING":                   "logging",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
