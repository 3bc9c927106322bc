// Package logger is the process-wide leveled log facade. Every package logs
// through the printf-style helpers here; the level and destination are set
// once at boot from the app config.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var std = func() *facade {
	f := &facade{}
	f.level.Set(slog.LevelInfo)
	f.swap(os.Stdout)
	return f
}()

type facade struct {
	level slog.LevelVar
	mu    sync.RWMutex
	out   *slog.Logger
}

func (f *facade) swap(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &f.level}))
	f.mu.Lock()
	f.out = l
	f.mu.Unlock()
}

func (f *facade) log(level slog.Level, format string, v []any) {
	f.mu.RLock()
	l := f.out
	f.mu.RUnlock()
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

// SetOutput redirects all subsequent log lines, typically to a MultiWriter
// teeing stdout into the configured log file.
func SetOutput(w io.Writer) { std.swap(w) }

// SetLevel applies a config-file level name. Unknown names mean info.
func SetLevel(level string) { std.level.Set(parseLevel(level)) }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func Debugf(format string, v ...any) { std.log(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { std.log(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { std.log(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { std.log(slog.LevelError, format, v) }
