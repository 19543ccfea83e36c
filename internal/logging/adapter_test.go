package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewSlogAdapterWithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil {
		t.Fatal("NewSlogAdapter returned nil")
	}
	if adapter.Logger() == nil {
		t.Error("adapter should fall back to slog.Default() when created with nil")
	}
}

func TestSlogAdapterForwardsLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(logger)

	adapter.Debug("debug msg", "key", "v1")
	adapter.Info("info msg", "key", "v2")
	adapter.Warn("warn msg", "key", "v3")
	adapter.Error("error msg", "key", "v4")

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "debug msg", "key=v1",
		"level=INFO", "info msg", "key=v2",
		"level=WARN", "warn msg", "key=v3",
		"level=ERROR", "error msg", "key=v4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterLoggerAccessor(t *testing.T) {
	logger := slog.Default()
	if got := NewSlogAdapter(logger).Logger(); got != logger {
		t.Error("Logger() should return the wrapped logger")
	}
}

func TestDefaultLogger(t *testing.T) {
	if DefaultLogger() == nil {
		t.Fatal("DefaultLogger returned nil")
	}
}

var _ Logger = (*SlogAdapter)(nil)
