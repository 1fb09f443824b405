// Package logging wires log/slog to a rotating debug log and an in-memory
// ring buffer. Nothing is ever written to the terminal.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used with ForComponent and Aggregate.
const (
	CompSync   = "sync"
	CompParser = "parser"
	CompStore  = "store"
	CompSearch = "search"
	CompUI     = "ui"
	CompPack   = "pack"
	CompGit    = "git"
	CompCLI    = "cli"
	CompWatch  = "watch"
)

// LogFileName is the name of the log file inside Config.LogDir.
const LogFileName = "debug.log"

// Config holds logging configuration.
type Config struct {
	// Enabled turns logging on. When false every record is discarded.
	Enabled bool

	// LogDir is the directory holding debug.log (e.g. ~/.codex-user)
	LogDir string

	// Level is "debug", "info" (default), "warn" or "error"
	Level string

	// Format is "json" (default) or "text"
	Format string

	MaxSizeMB  int // default 10
	MaxBackups int // default 3
	MaxAgeDays int // default 14
	Compress   bool

	// RingBufferSize is the crash-dump buffer size in bytes (default 2MB)
	RingBufferSize int

	// AggregateIntervalSecs is how often event_summary records are flushed (default 30)
	AggregateIntervalSecs int
}

type state struct {
	logger *slog.Logger
	ring   *RingBuffer
	agg    *Aggregator
	file   *lumberjack.Logger
}

var (
	mu      sync.RWMutex
	current state
	discard = slog.New(slog.NewJSONHandler(io.Discard, nil))
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Init installs the global logger. Calling it again replaces the previous
// setup after flushing it.
func Init(cfg Config) error {
	Shutdown()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 14
	}
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = 2 * 1024 * 1024
	}

	if !cfg.Enabled || cfg.LogDir == "" {
		mu.Lock()
		current = state{logger: discard, agg: NewAggregator(nil, cfg.AggregateIntervalSecs)}
		mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	ring := NewRingBuffer(cfg.RingBufferSize)
	out := io.MultiWriter(file, ring)

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	logger := slog.New(handler)

	agg := NewAggregator(logger, cfg.AggregateIntervalSecs)
	agg.Start()

	mu.Lock()
	current = state{logger: logger, ring: ring, agg: agg, file: file}
	mu.Unlock()
	return nil
}

// Logger returns the global logger. Safe to call before Init.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current.logger == nil {
		return discard
	}
	return current.logger
}

// ForComponent returns a logger tagged with component=name. The handler is
// resolved on every record, so package-level loggers created before Init
// still reach the configured output.
func ForComponent(name string) *slog.Logger {
	return slog.New(&componentHandler{component: name})
}

type componentHandler struct {
	component string
	attrs     []slog.Attr
	groups    []string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		handler = handler.WithGroup(g)
	}
	return handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &componentHandler{component: h.component, groups: h.groups}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	next := &componentHandler{component: h.component, attrs: h.attrs}
	next.groups = append(append([]string{}, h.groups...), name)
	return next
}

// Aggregate counts a high-frequency event; the counts are emitted as one
// event_summary record per flush interval.
func Aggregate(component, event string, fields ...slog.Attr) {
	mu.RLock()
	agg := current.agg
	mu.RUnlock()
	if agg != nil {
		agg.Record(component, event, fields...)
	}
}

// DumpRingBuffer writes the most recent log output to path. It is a no-op
// when logging is disabled.
func DumpRingBuffer(path string) error {
	mu.RLock()
	ring := current.ring
	mu.RUnlock()
	if ring == nil {
		return nil
	}
	return ring.DumpToFile(path)
}

// Shutdown flushes pending summaries and closes the log file.
func Shutdown() {
	mu.Lock()
	prev := current
	current = state{}
	mu.Unlock()

	if prev.agg != nil {
		prev.agg.Stop()
	}
	if prev.file != nil {
		_ = prev.file.Close()
	}
}
