package common

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestNewLogger_ReturnsNonNil(t *testing.T) {
	logger := NewLogger("info")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNewLoggerFromConfig_DefaultsLevel(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{})
	if logger == nil {
		t.Fatal("NewLoggerFromConfig returned nil")
	}
	logger.Info().Str("key", "value").Msg("default level")
}

func TestNewLoggerFromConfig_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logger := NewLoggerFromConfig(LoggingConfig{
		Level:    "info",
		Outputs:  []string{"file"},
		FilePath: dir + "/test.log",
	})
	logger.Info().Msg("written to file")
}

func TestNewSilentLogger_DoesNotWriteToGlobalWriters(t *testing.T) {
	var buf bytes.Buffer
	_ = NewLoggerWithOutput("info", &buf)
	buf.Reset()

	silent := NewSilentLogger()
	silent.Info().Str("key", "value").Msg("this should NOT appear")
	silent.Warn().Msg("this should NOT appear either")

	if buf.Len() > 0 {
		t.Errorf("silent logger wrote %d bytes to global writer: %s", buf.Len(), buf.String())
	}
}

func TestNewLogger_DoesNotWriteToStdout(t *testing.T) {
	// stdout carries the MCP stdio stream.
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	logger := NewLogger("info")
	logger.Info().Str("tool", "API-getTest").Msg("this must not go to stdout")
	logger.Error().Msg("neither should this")

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	r.Close()

	if buf.Len() > 0 {
		t.Errorf("logger wrote %d bytes to stdout: %s", buf.Len(), buf.String())
	}
}

func TestLogLevel_WarnVisibleAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.Warn().Str("value", "ftp://x").Msg("ignoring base URL override")

	if !strings.Contains(buf.String(), "ignoring base URL override") {
		t.Errorf("warn message not visible at info level, got: %s", buf.String())
	}
}

func TestLogLevel_DebugFilteredAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.Debug().Msg("debug message should not appear")

	if strings.Contains(buf.String(), "debug message should not appear") {
		t.Error("debug message appeared at info level")
	}
}

func TestWithCorrelationId_ReturnsNewLogger(t *testing.T) {
	logger := NewSilentLogger()
	correlated := logger.WithCorrelationId("call-123")
	if correlated == nil {
		t.Fatal("WithCorrelationId returned nil")
	}
	if correlated == logger {
		t.Error("WithCorrelationId should return a new Logger instance")
	}
	correlated.Info().Str("tool", "API-getTest").Msg("handler start")
}

func TestConcurrentLogging_SilentLoggerSafe(t *testing.T) {
	logger := NewSilentLogger()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				logger.Info().Int("id", id).Int("j", j).Msg("concurrent silent")
			}
		}(i)
	}
	wg.Wait()
}

func TestNewLoggerWithOutput_FieldsInKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("info", &buf)

	logger.Info().Str("zeta", "2").Str("alpha", "1").Msg("ordered")

	out := buf.String()
	if !strings.Contains(out, "ordered") {
		t.Fatalf("expected message in output, got %q", out)
	}
	a, z := strings.Index(out, "alpha=1"), strings.Index(out, "zeta=2")
	if a < 0 || z < 0 || a > z {
		t.Errorf("expected fields sorted by key, got %q", out)
	}
}

func TestLoggingConfig_WithDefaults(t *testing.T) {
	cfg := LoggingConfig{}.withDefaults()
	if cfg.Level != "info" || len(cfg.Outputs) != 1 || cfg.Outputs[0] != "console" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.FilePath == "" || cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 {
		t.Errorf("expected file defaults, got %+v", cfg)
	}

	kept := LoggingConfig{Level: "debug", MaxSizeMB: 5}.withDefaults()
	if kept.Level != "debug" || kept.MaxSizeMB != 5 {
		t.Errorf("explicit values overwritten: %+v", kept)
	}
}
