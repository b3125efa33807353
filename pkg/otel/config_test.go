package otel_test

import (
	"errors"
	"testing"
	"time"

	"github.com/easyops/advisorctx-go/pkg/otel"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := otel.Config{}.WithDefaults()

	if cfg.ServiceName != "advisorctx" {
		t.Errorf("ServiceName = %q, want advisorctx", cfg.ServiceName)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.Tracing.SampleRate)
	}
	if cfg.Metrics.Interval != 60*time.Second {
		t.Errorf("Interval = %v, want 60s", cfg.Metrics.Interval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestConfig_WithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := otel.Config{
		ServiceName: "custom-service",
		Tracing:     otel.TracingConfig{Endpoint: "collector:4317", SampleRate: 0.25},
		Logging:     otel.LoggingConfig{Level: "debug"},
	}.WithDefaults()

	if cfg.ServiceName != "custom-service" {
		t.Errorf("ServiceName = %q, explicit value must survive", cfg.ServiceName)
	}
	if cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("Endpoint = %q, explicit value must survive", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("SampleRate = %v, explicit value must survive", cfg.Tracing.SampleRate)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, explicit value must survive", cfg.Logging.Level)
	}
}

func TestConfig_ValidateSampleRate(t *testing.T) {
	cfg := otel.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cfg.Tracing.SampleRate = 1.5
	if err := cfg.Validate(); !errors.Is(err, otel.ErrInvalidSampleRate) {
		t.Errorf("err = %v, want ErrInvalidSampleRate", err)
	}
}
