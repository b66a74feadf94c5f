package scripting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// HostLogger is the host's structured logger. Records are kept in a bounded
// in-memory ring for later inspection and optionally mirrored as JSON lines
// to a writer (typically a RotatingFileWriter).
type HostLogger struct {
	logger  *slog.Logger
	handler *HostLogHandler
}

// LogEntry represents a single log entry with metadata.
type LogEntry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
	Source  string            `json:"source,omitempty"`
}

// LogLevel represents the available log levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLogLevel converts a configured level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return slog.LevelDebug, nil
	case LogLevelInfo, "":
		return slog.LevelInfo, nil
	case LogLevelWarn, "warning":
		return slog.LevelWarn, nil
	case LogLevelError:
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
}

// NewHostLogger creates a logger retaining up to maxEntries records at or
// above level. If mirror is non-nil every retained record is also written to
// it as JSON.
func NewHostLogger(mirror io.Writer, level slog.Level, maxEntries int) *HostLogger {
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	handler := &HostLogHandler{
		ring: &logRing{
			entries: make([]LogEntry, 0, maxEntries),
			maxSize: maxEntries,
		},
		level: levelVar,
	}
	if mirror != nil {
		handler.mirror = slog.NewJSONHandler(mirror, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &HostLogger{
		logger:  slog.New(handler),
		handler: handler,
	}
}

type logRing struct {
	mutex   sync.RWMutex
	entries []LogEntry
	maxSize int
}

// HostLogHandler implements slog.Handler over the ring buffer.
type HostLogHandler struct {
	ring   *logRing
	level  *slog.LevelVar
	mirror slog.Handler
	attrs  []slog.Attr
	group  string
}

// Enabled implements slog.Handler.
func (h *HostLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler. Attrs bound through WithAttrs already
// carry their group prefix; only the record's own attrs take the current
// group.
func (h *HostLogHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		flattenAttr(attrs, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(attrs, h.group, attr)
		return true
	})

	entry := LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
		Source:  attrs["source"],
	}

	h.ring.mutex.Lock()
	h.ring.entries = append(h.ring.entries, entry)
	if len(h.ring.entries) > h.ring.maxSize {
		h.ring.entries = h.ring.entries[1:]
	}
	h.ring.mutex.Unlock()

	if h.mirror != nil {
		return h.mirror.Handle(ctx, record)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *HostLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	if h.mirror != nil {
		clone.mirror = h.mirror.WithAttrs(attrs)
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *HostLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	if h.mirror != nil {
		clone.mirror = h.mirror.WithGroup(name)
	}
	return &clone
}

// flattenAttr stores attr under prefix, expanding groups into dotted keys.
func flattenAttr(dst map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if attr.Value.Kind() == slog.KindGroup {
		for _, child := range attr.Value.Group() {
			flattenAttr(dst, key, child)
		}
		return
	}
	dst[key] = attr.Value.String()
}

// Slog returns the underlying slog.Logger.
func (l *HostLogger) Slog() *slog.Logger {
	return l.logger
}

// SetLevel changes the minimum retained level.
func (l *HostLogger) SetLevel(level slog.Level) {
	l.handler.level.Set(level)
}

// Debug logs a debug message.
func (l *HostLogger) Debug(msg string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

// Info logs an info message.
func (l *HostLogger) Info(msg string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// Warn logs a warning message.
func (l *HostLogger) Warn(msg string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// Error logs an error message.
func (l *HostLogger) Error(msg string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// Printf logs a formatted message at info level.
func (l *HostLogger) Printf(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// GetLogs returns all log entries.
func (l *HostLogger) GetLogs() []LogEntry {
	l.handler.ring.mutex.RLock()
	defer l.handler.ring.mutex.RUnlock()

	logs := make([]LogEntry, len(l.handler.ring.entries))
	copy(logs, l.handler.ring.entries)
	return logs
}

// GetRecentLogs returns the most recent N log entries.
func (l *HostLogger) GetRecentLogs(count int) []LogEntry {
	l.handler.ring.mutex.RLock()
	defer l.handler.ring.mutex.RUnlock()

	entries := l.handler.ring.entries
	if count <= 0 || count > len(entries) {
		count = len(entries)
	}

	logs := make([]LogEntry, count)
	copy(logs, entries[len(entries)-count:])
	return logs
}

// SearchLogs searches for log entries containing the given text.
func (l *HostLogger) SearchLogs(query string) []LogEntry {
	l.handler.ring.mutex.RLock()
	defer l.handler.ring.mutex.RUnlock()

	query = strings.ToLower(query)
	var matches []LogEntry

	for _, entry := range l.handler.ring.entries {
		if strings.Contains(strings.ToLower(entry.Message), query) {
			matches = append(matches, entry)
			continue
		}

		// Also search in attributes
		for key, value := range entry.Attrs {
			if strings.Contains(strings.ToLower(key), query) ||
				strings.Contains(strings.ToLower(value), query) {
				matches = append(matches, entry)
				break
			}
		}
	}

	return matches
}

// ClearLogs removes all log entries.
func (l *HostLogger) ClearLogs() {
	l.handler.ring.mutex.Lock()
	defer l.handler.ring.mutex.Unlock()

	l.handler.ring.entries = l.handler.ring.entries[:0]
}
