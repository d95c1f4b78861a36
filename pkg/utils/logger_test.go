package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		logger, err := NewLogger(debug)
		if err != nil {
			t.Fatalf("NewLogger(%v) error: %v", debug, err)
		}
		if got := logger.Core().Enabled(zapcore.DebugLevel); got != debug {
			t.Errorf("NewLogger(%v): debug enabled = %v", debug, got)
		}
		_ = logger.Sync()
	}
}

func TestLoggerConfig(t *testing.T) {
	prod := loggerConfig(false)
	if prod.Encoding != "json" || prod.EncoderConfig.TimeKey != "time" {
		t.Errorf("production config: encoding %q, time key %q", prod.Encoding, prod.EncoderConfig.TimeKey)
	}
	if prod.Sampling != nil {
		t.Error("build logs must not be sampled")
	}
	if dev := loggerConfig(true); dev.Encoding != "console" {
		t.Errorf("development encoding = %q, want console", dev.Encoding)
	}
}
