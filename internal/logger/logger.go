// Package logger provides levelled, printf-style logging to stderr.
//
// Debug output is suppressed unless verbose mode is enabled. Standard output
// is left untouched so commands can stream records on it.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	output = io.Writer(os.Stderr)
	attrs  []slog.Attr
	base   = newLogger(os.Stderr)
)

func init() {
	level.Set(slog.LevelInfo)
}

func newLogger(w io.Writer, with ...slog.Attr) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h.WithAttrs(with))
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput redirects log output. Intended for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger(output, attrs...)
}

// With attaches key-value attributes to every subsequent message, such as a
// sync run id. A key that is already attached has its value replaced.
func With(args ...any) {
	mu.Lock()
	defer mu.Unlock()
	for _, a := range toAttrs(args) {
		attrs = setAttr(attrs, a)
	}
	base = newLogger(output, attrs...)
}

// Reset drops every attribute added with With.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	attrs = nil
	base = newLogger(output)
}

func toAttrs(args []any) []slog.Attr {
	var out []slog.Attr
	for len(args) > 0 {
		switch a := args[0].(type) {
		case slog.Attr:
			out = append(out, a)
			args = args[1:]
		case string:
			if len(args) == 1 {
				out = append(out, slog.String("!BADKEY", a))
				return out
			}
			out = append(out, slog.Any(a, args[1]))
			args = args[2:]
		default:
			out = append(out, slog.Any("!BADKEY", a))
			args = args[1:]
		}
	}
	return out
}

func setAttr(list []slog.Attr, a slog.Attr) []slog.Attr {
	for i := range list {
		if list[i].Key == a.Key {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

func logf(lvl slog.Level, format string, args ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, fmt.Sprintf(format, args...))
}

// Debug logs a message when verbose mode is on.
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

// Info logs an informational message.
func Info(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

// Warn logs a recoverable problem.
func Warn(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

// Error logs a failure.
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }
