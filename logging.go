package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/exp/slog"
)

// LogHandler writes one line per record:
// "2006/01/02 15:04:05 LEVEL message key=value ...".
type LogHandler struct {
	level slog.Leveler
	mu    *sync.Mutex
	out   io.Writer
	attrs []string
	group string
}

func NewLogHandler(o io.Writer, opts *slog.HandlerOptions) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{
		out:   o,
		level: level,
		mu:    &sync.Mutex{},
	}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	strs := make([]string, 0, len(h.attrs)+len(attrs))
	strs = append(strs, h.attrs...)
	for _, a := range attrs {
		strs = append(strs, h._FormatAttr(a))
	}
	return &LogHandler{level: h.level, out: h.out, mu: h.mu, attrs: strs, group: h.group}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &LogHandler{level: h.level, out: h.out, mu: h.mu, attrs: h.attrs, group: group}
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, r.Level.String(), r.Message}
	strs = append(strs, h.attrs...)
	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			strs = append(strs, h._FormatAttr(a))
			return true
		})
	}

	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(b)
	return err
}

func (h *LogHandler) _FormatAttr(a slog.Attr) string {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	value := a.Value.Resolve().String()
	if strings.ContainsAny(value, " \t\"") {
		value = fmt.Sprintf("%q", value)
	}
	return key + "=" + value
}

//**********************************************************
// loggers
//**********************************************************

func NewLogger(out io.Writer, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelWarn
	}
	return slog.New(NewLogHandler(out, &slog.HandlerOptions{Level: level}))
}

// Creates the logger of a city writing to <results>/<city>/receipt.txt and,
// unless quiet, to the console.
func NewCityLogger(results_path, city string, quiet bool) (*slog.Logger, io.Closer, error) {
	dir := filepath.Join(results_path, city)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(filepath.Join(dir, "receipt.txt"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	// the receipt keeps info records, quiet only drops the console
	var out io.Writer = file
	if !quiet {
		out = io.MultiWriter(os.Stdout, file)
	}
	logger := NewLogger(out, false).With("city", city)
	return logger, file, nil
}
