package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func emitAll(logger zerolog.Logger) {
	logger.Trace().Msg("trace line")
	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")
	logger.Warn().Msg("warn line")
	logger.Error().Msg("error line")
}

func TestNew_FiltersBelowConfiguredLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    []string
		dropped []string
	}{
		{"trace", []string{"trace line", "debug line", "error line"}, nil},
		{"debug", []string{"debug line", "info line"}, []string{"trace line"}},
		{"info", []string{"info line", "warn line"}, []string{"trace line", "debug line"}},
		{"warn", []string{"warn line", "error line"}, []string{"info line"}},
		{"error", []string{"error line"}, []string{"warn line"}},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tc.level, Output: &buf})
			emitAll(logger)

			out := buf.String()
			for _, s := range tc.want {
				if !strings.Contains(out, s) {
					t.Errorf("level %s dropped %q", tc.level, s)
				}
			}
			for _, s := range tc.dropped {
				if strings.Contains(out, s) {
					t.Errorf("level %s let %q through", tc.level, s)
				}
			}
		})
	}
}

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel}, // levels are case-insensitive
		{"loud", zerolog.InfoLevel}, // unknown levels fall back to info
		{"", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger := New(Config{Level: tc.level, Output: &bytes.Buffer{}})
			if logger.GetLevel() != tc.want {
				t.Errorf("level %q parsed to %v, want %v", tc.level, logger.GetLevel(), tc.want)
			}
		})
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Output: &buf}, "widget")

	logger.Info().Msg("instance created")

	out := buf.String()
	if !strings.Contains(out, `"component":"widget"`) {
		t.Errorf("missing component field: %s", out)
	}
	if !strings.Contains(out, "instance created") {
		t.Errorf("missing message: %s", out)
	}
}

func TestNew_PrettyIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Msg("channel open")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("pretty output is raw JSON: %s", out)
	}
	if !strings.Contains(out, "channel open") {
		t.Errorf("missing message: %s", out)
	}
}

func TestNew_NilOutputDefaultsToStderr(t *testing.T) {
	logger := New(Config{Level: "info"})
	logger.Info().Msg("probe")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("default config is not pretty")
	}
	if cfg.Output == nil {
		t.Error("default config has no output")
	}
}
