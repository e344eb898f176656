package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"search-online-mcp/internal/infra/config"
)

// New creates a configured *slog.Logger. Records go to the configured output
// and, when diagnostics are enabled, also to the rotating diagnostic file.
// The returned closer function should be deferred to flush/close file handles.
func New(cfg config.LoggerConfig, diag config.DiagnosticsConfig) (*slog.Logger, func() error, error) {
	writer, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	closers := []func() error{closeOut}
	if diag.Enabled {
		file, err := openDiagnostics(diag)
		if err != nil {
			// The diagnostic log is best effort; run without it.
			slog.New(handler).Warn("diagnostic log disabled", "path", diag.Path, "error", err)
		} else {
			handler = Fanout(handler, NewDiagnosticHandler(file, slog.LevelDebug))
			closers = append(closers, file.Close)
		}
	}

	closer := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return slog.New(handler), closer, nil
}

// parseLevel converts a string level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutput returns an io.Writer for the specified output target. Stdout
// carries the MCP stream, so it is refused.
func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return nil, nil, fmt.Errorf("stdout is reserved for the MCP stream")
	case "stderr", "":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}

// openDiagnostics prepares the rotating diagnostic log file.
func openDiagnostics(diag config.DiagnosticsConfig) (*lumberjack.Logger, error) {
	if diag.Path == "" {
		return nil, fmt.Errorf("empty diagnostic log path")
	}
	if err := os.MkdirAll(filepath.Dir(diag.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create diagnostic log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   diag.Path,
		MaxSize:    diag.MaxSizeMB,
		MaxBackups: diag.MaxBackups,
	}, nil
}

// fanoutHandler sends each record to every handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

// Fanout combines handlers into one.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
