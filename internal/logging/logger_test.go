// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		enabled   zapcore.Level
		disabled  zapcore.Level
		wantError bool
	}{
		{name: "development defaults to debug", cfg: Config{Development: true}, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel},
		{name: "production defaults to info", cfg: Config{}, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "explicit warn", cfg: Config{Development: true, Level: "WARN"}, enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.cfg)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error for invalid level")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			if !logger.Core().Enabled(tt.enabled) {
				t.Fatalf("expected %v to be enabled", tt.enabled)
			}
			if tt.disabled != tt.enabled && logger.Core().Enabled(tt.disabled) {
				t.Fatalf("expected %v to be disabled", tt.disabled)
			}
		})
	}
}
