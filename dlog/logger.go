// Package dlog provides the structured logger used by sqldsl.  Records are
// written by log/slog through a BufferedWriter over stderr.
package dlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dropbox/sqldsl/errors"
)

type Options struct {
	// Level is one of debug, info, warn or error.  Empty means info.
	Level string

	// Format is text or json.  Empty means text.
	Format string

	// BufferSize is the console buffer size in bytes.  Zero disables
	// buffering.
	BufferSize int

	// FlushInterval bounds how long a buffered record may wait before it
	// is written.
	FlushInterval time.Duration

	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, nil))
	console *BufferedWriter
)

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Newf("Unknown log level: %s", level)
}

// New builds a logger from opts.  The returned writer must be closed to
// flush buffered records.
func New(opts Options) (*slog.Logger, *BufferedWriter, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	wr := NewBufferedWriter(out, opts.BufferSize, opts.FlushInterval)

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(wr, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(wr, handlerOpts)
	default:
		return nil, nil, errors.Newf("Unknown log format: %s", opts.Format)
	}

	return slog.New(handler), wr, nil
}

// Init replaces the package logger.  The previous console, if any, is
// flushed and stopped.
func Init(opts Options) error {
	l, wr, err := New(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := console
	logger = l
	console = wr
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Close flushes the package console.
func Close() error {
	mu.RLock()
	wr := console
	mu.RUnlock()

	if wr == nil {
		return nil
	}
	return wr.Close()
}

func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}
