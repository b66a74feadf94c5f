package scripting

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLogger_LevelFilter(t *testing.T) {
	t.Parallel()
	l := NewHostLogger(nil, slog.LevelInfo, 10)

	l.Debug("hidden")
	l.Info("shown", slog.String("k", "v"))
	l.Error("bad")

	logs := l.GetLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "shown", logs[0].Message)
	assert.Equal(t, "v", logs[0].Attrs["k"])
	assert.Equal(t, slog.LevelError, logs[1].Level)

	l.SetLevel(slog.LevelDebug)
	l.Debug("now visible")
	assert.Len(t, l.GetLogs(), 3)
}

func TestHostLogger_RingBound(t *testing.T) {
	t.Parallel()
	l := NewHostLogger(nil, slog.LevelDebug, 3)
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		l.Info(m)
	}
	logs := l.GetLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, "c", logs[0].Message)
	assert.Equal(t, "e", logs[2].Message)

	recent := l.GetRecentLogs(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].Message)
	assert.Len(t, l.GetRecentLogs(0), 3)

	l.ClearLogs()
	assert.Empty(t, l.GetLogs())
}

func TestHostLogger_Search(t *testing.T) {
	t.Parallel()
	l := NewHostLogger(nil, slog.LevelDebug, 10)
	l.Info("snippet executed", slog.String("id", "abc"))
	l.Info("store saved")
	l.Printf("console %s", "line")

	assert.Len(t, l.SearchLogs("SNIPPET"), 1)
	assert.Len(t, l.SearchLogs("abc"), 1)
	assert.Len(t, l.SearchLogs("console line"), 1)
	assert.Empty(t, l.SearchLogs("missing"))
}

func TestHostLogger_SourceAndWithAttrs(t *testing.T) {
	t.Parallel()
	l := NewHostLogger(nil, slog.LevelDebug, 10)
	l.Slog().With("source", "console").WithGroup("call").Info("hi", "n", 1)

	logs := l.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "console", logs[0].Source)
	assert.Equal(t, "1", logs[0].Attrs["call.n"])
	assert.NotContains(t, logs[0].Attrs, "call.source")
}

func TestHostLogger_GroupsQualifyLaterAttrs(t *testing.T) {
	t.Parallel()
	l := NewHostLogger(nil, slog.LevelDebug, 10)
	l.Slog().WithGroup("run").With("id", "r1").WithGroup("fetch").Info("done",
		"status", 200, slog.Group("req", "method", "GET"))

	logs := l.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, map[string]string{
		"run.id":               "r1",
		"run.fetch.status":     "200",
		"run.fetch.req.method": "GET",
	}, logs[0].Attrs)
}

func TestHostLogger_Mirror(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewHostLogger(&buf, slog.LevelInfo, 10)
	l.Debug("filtered")
	l.Warn("mirrored", slog.Int("code", 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "mirrored", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.EqualValues(t, 7, rec["code"])
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
