// Package common provides logging shared by the openapi-mcp packages.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const logTimeFormat = "2006-01-02T15:04:05Z07:00"

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// withDefaults fills the zero values of cfg.
func (cfg LoggingConfig) withDefaults() LoggingConfig {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []string{"console"}
	}
	if cfg.FilePath == "" {
		cfg.FilePath = "logs/openapi-mcp.log"
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	return cfg
}

// Logger embeds arbor.ILogger so callers use the fluent event API directly.
type Logger struct {
	arbor.ILogger
}

// NewLogger creates a console logger at the given level.
func NewLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level})
}

// NewLoggerFromConfig builds a logger with the configured outputs.
// "console" always targets stderr: in stdio mode stdout carries the
// MCP JSON-RPC stream. Unknown outputs are ignored.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	cfg = cfg.withDefaults()

	l := arbor.NewLogger()
	for _, out := range cfg.Outputs {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: logTimeFormat,
			})
		case "file":
			l = l.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.FilePath,
				MaxSize:    int64(cfg.MaxSizeMB) << 20,
				MaxBackups: cfg.MaxBackups,
				TimeFormat: logTimeFormat,
			})
		}
	}
	return &Logger{ILogger: l.WithLevelFromString(cfg.Level)}
}

// NewLoggerWithOutput creates a logger that renders events as plain
// "message key=value" lines on w. Tests use it to assert on log output.
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	l := arbor.NewLogger().
		WithWriters([]writers.IWriter{&lineWriter{out: w, level: log.TraceLevel}}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{discard{}})}
}

// WithCorrelationId returns a child logger tagged with id. Tool handlers
// use it to trace one call through dispatch and the upstream request.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

// discard is an arbor writer that drops every event.
type discard struct{}

func (discard) Write(p []byte) (int, error)           { return len(p), nil }
func (discard) WithLevel(_ log.Level) writers.IWriter { return discard{} }
func (discard) GetFilePath() string                   { return "" }
func (discard) Close() error                          { return nil }

// lineWriter decodes arbor's JSON events and writes one text line per
// event, with fields in key order.
type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}

	var b strings.Builder
	b.WriteString(evt.Message)
	for _, k := range slices.Sorted(maps.Keys(evt.Fields)) {
		fmt.Fprintf(&b, " %s=%v", k, evt.Fields[k])
	}
	if evt.Error != "" {
		fmt.Fprintf(&b, " error=%s", evt.Error)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }
