package pocketvec

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with index-specific helpers. It is the optional
// debug callback of the library: the default is a no-op, so an index is
// silent unless a logger is injected at construction.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// A nil handler falls back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger writing human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))
}

// LogAdd logs a single-vector insertion.
func (l *Logger) LogAdd(key int64, err error) {
	if err != nil {
		l.Error("add failed", "key", key, "error", err)
		return
	}
	l.Debug("add completed", "key", key)
}

// LogRemove logs a removal.
func (l *Logger) LogRemove(key int64, err error) {
	if err != nil {
		l.Error("remove failed", "key", key, "error", err)
		return
	}
	l.Debug("remove completed", "key", key)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(k, found int, err error) {
	if err != nil {
		l.Error("search failed", "k", k, "error", err)
		return
	}
	l.Debug("search completed", "k", k, "results", found)
}

// LogBatchProgress logs background-indexing progress.
func (l *Logger) LogBatchProgress(current, total int) {
	l.Debug("indexing progress", "current", current, "total", total)
}

// LogBatchDone logs background-operation completion.
func (l *Logger) LogBatchDone(count int, err error) {
	if err != nil {
		l.Error("background operation failed", "count", count, "error", err)
		return
	}
	l.Info("background operation completed", "count", count)
}

// LogSnapshot logs a save or load.
func (l *Logger) LogSnapshot(op, target string, err error) {
	if err != nil {
		l.Error("snapshot failed", "op", op, "target", target, "error", err)
		return
	}
	l.Info("snapshot completed", "op", op, "target", target)
}
