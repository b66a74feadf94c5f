package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joeycumines/snipbox/internal/config"
	"github.com/joeycumines/snipbox/internal/scripting"
)

// followInterval is how often a followed log file is polled.
var followInterval = 200 * time.Millisecond

// waitForFileTimeout bounds how long a follow waits for a missing file.
var waitForFileTimeout = 30 * time.Second

// LogCommand prints and follows the host log file that runs write when
// log.file is set.
type LogCommand struct {
	*BaseCommand
	env    *Env
	follow bool
	lines  int
	file   string
	level  string
	raw    bool
}

// NewLogCommand creates a new log command.
func NewLogCommand(env *Env) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "View and follow the host log file", "log [tail] [options]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file (like tail -f)")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file (like tail -f)")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Path to log file (overrides config log.file)")
	fs.StringVar(&c.level, "level", "", "Only show records at or above this level (debug, info, warn, error)")
	fs.BoolVar(&c.raw, "raw", false, "Print records as stored (JSON) instead of formatted")
}

// Execute runs the log command.
func (c *LogCommand) Execute(args []string, stdout, stderr io.Writer) error {
	// "log tail" is an alias for "log -follow".
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		return usageErrorf(stderr, "unknown subcommand: %s", args[0])
	}

	var minLevel *slog.Level
	if c.level != "" {
		l, err := scripting.ParseLogLevel(c.level)
		if err != nil {
			return usageErrorf(stderr, "%v", err)
		}
		minLevel = &l
	}
	emit := func(line string) {
		if out, ok := formatLogLine(line, minLevel, c.raw); ok {
			_, _ = fmt.Fprintln(stdout, out)
		}
	}

	logPath := c.file
	if logPath == "" {
		logPath = c.env.Settings.LogFile
	}
	if logPath == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use -file or set log.file in config.")
		return fmt.Errorf("no log file configured")
	}
	logPath = config.ExpandHome(logPath)

	if c.follow {
		ctx, cancel := c.env.context()
		defer cancel()
		return c.tailFollow(ctx, logPath, emit, stderr)
	}
	return c.tailLines(logPath, emit, stderr)
}

// formatLogLine renders one JSON log record as "time LEVEL msg key=value".
// Lines that are not JSON records pass through unfiltered.
func formatLogLine(line string, minLevel *slog.Level, raw bool) (string, bool) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return line, true
	}
	levelName, _ := rec[slog.LevelKey].(string)
	if minLevel != nil {
		var l slog.Level
		if err := l.UnmarshalText([]byte(levelName)); err == nil && l < *minLevel {
			return "", false
		}
	}
	if raw {
		return line, true
	}

	var b strings.Builder
	if ts, ok := rec[slog.TimeKey].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ts = t.Format("15:04:05.000")
		}
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", levelName)
	if msg, ok := rec[slog.MessageKey]; ok {
		fmt.Fprintf(&b, " %v", msg)
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		switch k {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rec[k]
		if s, ok := v.(string); ok {
			fmt.Fprintf(&b, " %s=%q", k, s)
			continue
		}
		data, _ := json.Marshal(v)
		fmt.Fprintf(&b, " %s=%s", k, data)
	}
	return b.String(), true
}

// tailLines prints the last N lines of the log file.
func (c *LogCommand) tailLines(logPath string, emit func(string), stderr io.Writer) error {
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", logPath)
			return fmt.Errorf("log file not found: %s", logPath)
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	for _, line := range readLastNLines(f, c.lines) {
		emit(line)
	}
	return nil
}

// readLastNLines reads the last n lines from a reader, keeping only n lines
// in memory.
func readLastNLines(r io.Reader, n int) []string {
	if n <= 0 {
		return nil
	}

	ring := make([]string, n)
	count := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if count == 0 {
		return nil
	}

	total := min(count, n)
	result := make([]string, total)
	start := count - total
	for i := range total {
		result[i] = ring[(start+i)%n]
	}
	return result
}

// tailFollow prints the last N lines, then new lines as they are written
// until ctx is done. Rotation by rename or truncation reopens the file.
func (c *LogCommand) tailFollow(ctx context.Context, logPath string, emit func(string), stderr io.Writer) error {
	f, err := os.Open(logPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		_, _ = fmt.Fprintf(stderr, "Waiting for log file: %s\n", logPath)
		if f, err = waitForFile(ctx, logPath); err != nil {
			return followDone(err)
		}
	}

	for _, line := range readLastNLines(f, c.lines) {
		emit(line)
	}

	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	return followDone(followFile(ctx, f, logPath, pos, emit, stderr))
}

// followDone treats cancellation (Ctrl-C) as a normal end of a follow.
func followDone(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// followFile polls the file for new data, emitting complete lines.
func followFile(ctx context.Context, f *os.File, logPath string, pos int64, emit func(string), stderr io.Writer) error {
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	defer func() { _ = f.Close() }()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		rotated, err := detectRotation(logPath, pos)
		if err != nil {
			_ = f.Close()
			_, _ = fmt.Fprintln(stderr, "Log file rotated, waiting for new file...")
			newF, err := waitForFile(ctx, logPath)
			if err != nil {
				return err
			}
			f, reader, pos, partial = newF, bufio.NewReader(newF), 0, ""
			continue
		}
		if rotated {
			newF, err := os.Open(logPath)
			if err != nil {
				continue
			}
			_ = f.Close()
			f, reader, pos, partial = newF, bufio.NewReader(newF), 0, ""
		}

		for {
			chunk, err := reader.ReadString('\n')
			pos += int64(len(chunk))
			if err != nil {
				// Hold an unterminated line until the writer finishes it.
				partial += chunk
				break
			}
			emit(strings.TrimSuffix(partial+chunk, "\n"))
			partial = ""
		}
	}
}

// detectRotation reports whether the file at logPath is smaller than what
// has been read, meaning it was truncated or replaced. An error means the
// path is gone.
func detectRotation(logPath string, pos int64) (bool, error) {
	info, err := os.Stat(logPath)
	if err != nil {
		return false, err
	}
	return info.Size() < pos, nil
}

// waitForFile polls for path to appear, until ctx is done or
// waitForFileTimeout passes.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	ctx, cancel := context.WithTimeout(ctx, waitForFileTimeout)
	defer cancel()
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("timed out waiting for log file: %s", path)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
