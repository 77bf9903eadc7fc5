package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON Format = "json"

	// FormatText emits key=value text.
	FormatText Format = "text"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level: debug, info, warn, error. Default info.
	Level string `yaml:"level"`

	// Format is json or text. Default json.
	Format string `yaml:"format"`

	// AddSource includes file:line in every record.
	AddSource bool `yaml:"add_source"`

	// RedactPHI masks clinical identifiers in messages and attribute
	// values. Default on; set off only in local development.
	RedactPHI bool `yaml:"redact_phi"`

	// RedactPatterns adds site-specific redaction patterns on top of the
	// built-in set.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`

	// Writer is the output sink. Defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns JSON logging at info level with PHI redaction on.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", RedactPHI: true}
}

// New builds a logger from configuration.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	if cfg.RedactPHI {
		redactor, err := NewRedactor(cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
		handler = &redactingHandler{inner: handler, redactor: redactor}
	}

	return slog.New(handler), nil
}

// parseLevel maps a level name to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// parseFormat maps a format name. Empty means JSON.
func parseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("invalid log format %q", s)
}
