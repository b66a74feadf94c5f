package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/snipbox/internal/builtin"
	"github.com/joeycumines/snipbox/internal/builtin/fetch"
	"github.com/joeycumines/snipbox/internal/scripting"
	"github.com/joeycumines/snipbox/internal/snippets"
	"github.com/joeycumines/snipbox/internal/storage"
)

// RunCommand executes a snippet and prints its console output, then
// optionally the inspector tree of every captured object.
type RunCommand struct {
	*BaseCommand
	env     *Env
	lang    string
	code    string
	inspect bool
	depth   int
	timeout time.Duration
	linger  time.Duration
	logs    logFlags
}

// NewRunCommand creates a new run command.
func NewRunCommand(env *Env) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run a snippet and show its console output",
			"run [options] [snippet-id | file | -]",
		),
		env: env,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.lang, "lang", "", "Source language: javascript or typescript (default: snippet's language, or by file extension)")
	fs.StringVar(&c.code, "e", "", "Run this code instead of a stored snippet")
	fs.BoolVar(&c.inspect, "inspect", c.env.Schema.Bool(c.env.Config, "run", "inspect"), "Print the inspector tree of captured objects")
	fs.IntVar(&c.depth, "depth", c.env.Schema.Int(c.env.Config, "run", "depth"), "Inspector tree expansion depth")
	fs.DurationVar(&c.timeout, "timeout", c.env.Settings.RunTimeout, "Safety timeout while awaiting an async result")
	fs.DurationVar(&c.linger, "linger", 0, "Keep the runtime alive this long after the run settles, for late timers")
	fs.StringVar(&c.logs.file, "log-file", "", "Host log file path (JSON output)")
	fs.StringVar(&c.logs.level, "log-level", "", "Host log level (debug, info, warn, error)")
}

// Execute runs the command.
func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		return usageErrorf(stderr, "run takes at most one snippet, file or '-', got %d", len(args))
	}
	var ref string
	if len(args) == 1 {
		ref = args[0]
	}

	snippet, err := c.source(ref)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return err
	}

	ctx, cancel := c.env.context()
	defer cancel()

	hl, err := openHostLog(c.logs, c.env.Settings, stderr)
	if err != nil {
		return err
	}
	defer hl.Close()
	logger := hl.logger.Slog()

	registry := require.NewRegistry()
	builtin.Register(registry)
	rt, err := scripting.NewRuntimeWithRegistry(ctx, registry, scripting.WithHostLogger(hl.logger))
	if err != nil {
		return fmt.Errorf("failed to start runtime: %w", err)
	}
	defer rt.Close()

	if c.env.Settings.RunFetch {
		fetcher := fetch.New(rt, fetch.WithContext(ctx), fetch.WithLogger(logger.With("source", "fetch")))
		if err := rt.RunOnLoopSync(func(vm *goja.Runtime) error { return fetcher.Install(vm) }); err != nil {
			return err
		}
	}

	ctrl := scripting.NewController(rt, scripting.WithSafetyTimeout(c.timeout))
	defer ctrl.Close()

	st := newStyles(colorEnabled(c.env.Settings.Color, stdout))
	unsubscribe := ctrl.Subscribe(func(ev scripting.Event) {
		if ev.Kind == scripting.EventAppend && ev.HasLine {
			_, _ = fmt.Fprintln(stdout, st.consoleLine(ev.Line))
		}
	})
	defer unsubscribe()

	logger.Debug("run starting", "snippet", snippet.ID, "language", string(snippet.Language))
	exec, err := ctrl.RunCode(ctx, snippet)
	if err != nil {
		return err
	}
	runErr := exec.Wait(context.Background())
	if runErr == nil && c.linger > 0 {
		select {
		case <-time.After(c.linger):
		case <-ctx.Done():
		}
	}
	unsubscribe()

	if c.inspect {
		c.printInspector(ctrl, st, stdout)
	}

	if runErr != nil {
		return c.reportFailure(runErr, stderr)
	}
	return nil
}

// reportFailure explains failures that left no console line and wraps the
// error so main exits non-zero without printing it again.
func (c *RunCommand) reportFailure(err error, stderr io.Writer) error {
	switch {
	case errors.Is(err, scripting.ErrTimeout):
		_, _ = fmt.Fprintf(stderr, "run timed out after %v waiting for an async result\n", c.timeout)
	case errors.Is(err, scripting.ErrCanceled):
		_, _ = fmt.Fprintln(stderr, "run canceled")
	case errors.Is(err, scripting.ErrRuntimeStopped):
		_, _ = fmt.Fprintln(stderr, "runtime stopped before the run finished")
	}
	return &ExitError{Code: 1, Err: err}
}

func (c *RunCommand) printInspector(ctrl *scripting.Controller, st styles, stdout io.Writer) {
	entries := ctrl.InspectorObjects()
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stdout, st.render(st.heading, fmt.Sprintf("Inspector (%d)", len(entries))))
	for i, e := range entries {
		label := e.Label
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		tree, err := ctrl.InspectTree(e.ID, c.depth)
		if err != nil {
			tree = err.Error()
		}
		ts := time.UnixMilli(e.Timestamp).Format("15:04:05.000")
		_, _ = fmt.Fprintf(stdout, "%s %s\n", st.render(st.marker, label), st.render(st.dim, ts))
		_, _ = fmt.Fprintln(stdout, tree)
	}
}

// source resolves what to run: -e code, stdin ("-"), a file path, a stored
// snippet reference, or the selected snippet.
func (c *RunCommand) source(ref string) (snippets.Snippet, error) {
	var lang storage.Language
	if c.lang != "" {
		l, err := storage.ParseLanguage(c.lang)
		if err != nil {
			return snippets.Snippet{}, err
		}
		lang = l
	}
	adhoc := func(title, content string) snippets.Snippet {
		if lang == "" {
			lang = languageForPath(title)
		}
		now := c.env.now()
		return snippets.Snippet{ID: "adhoc", Title: title, Content: content, Language: lang, CreatedAt: now, UpdatedAt: now}
	}

	switch {
	case c.code != "":
		if ref != "" {
			return snippets.Snippet{}, fmt.Errorf("%w: -e cannot be combined with %q", ErrUsage, ref)
		}
		return adhoc("-e", c.code), nil
	case ref == "-":
		data, err := io.ReadAll(c.env.Stdin)
		if err != nil {
			return snippets.Snippet{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return adhoc("stdin", string(data)), nil
	case ref != "" && isFile(ref):
		data, err := os.ReadFile(ref)
		if err != nil {
			return snippets.Snippet{}, err
		}
		return adhoc(ref, string(data)), nil
	}

	var s snippets.Snippet
	err := c.env.withManager(func(m *snippets.Manager) error {
		var err error
		s, err = resolveSnippet(m, ref)
		return err
	})
	if err != nil {
		return snippets.Snippet{}, err
	}
	if lang != "" {
		s.Language = lang
	}
	return s, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// languageForPath infers TypeScript from .ts, .mts and .cts files.
func languageForPath(path string) storage.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return storage.LanguageTypeScript
	}
	return storage.LanguageJavaScript
}
