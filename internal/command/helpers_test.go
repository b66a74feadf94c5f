package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/snipbox/internal/config"
	"github.com/joeycumines/snipbox/internal/snippets"
	"github.com/joeycumines/snipbox/internal/storage"
	"github.com/joeycumines/snipbox/internal/testutil"
)

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// testNow is the fixed clock of test environments.
var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv returns an Env backed by a private in-memory store, with colour
// off, a fixed clock and sequential snippet IDs ("00000001-test", ...).
func newTestEnv(t *testing.T) *Env {
	t.Helper()
	env := NewEnv(config.NewConfig(), filepath.Join(t.TempDir(), "config"))
	env.Settings.StoreBackend = "memory"
	env.Settings.StoreDir = testutil.NewStoreKey("command", t.Name())
	env.Settings.Color = "never"
	env.Settings.Verbose = false
	env.Settings.LogFile = ""
	env.Settings.LogLevel = "info"
	env.Settings.RunFetch = true
	env.Settings.RunTimeout = 5 * time.Second
	env.Stdin = strings.NewReader("")
	env.now = func() time.Time { return testNow }
	env.ctxFactory = func() (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	var mu sync.Mutex
	n := 0
	env.managerOpts = []snippets.Option{
		snippets.WithClock(func() time.Time { return testNow }),
		snippets.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("%08d-test", n)
		}),
	}
	return env
}

// seed replaces the store contents with the given snippets, the first one
// selected.
func seed(t *testing.T, env *Env, list ...snippets.Snippet) {
	t.Helper()
	for i := range list {
		if list[i].Language == "" {
			list[i].Language = storage.LanguageJavaScript
		}
		if list[i].CreatedAt.IsZero() {
			list[i].CreatedAt = testNow.Add(-time.Hour)
			list[i].UpdatedAt = list[i].CreatedAt
		}
	}
	doc := &storage.Document{Version: storage.CurrentSchemaVersion, Snippets: list}
	if len(list) > 0 {
		doc.Selected = list[0].ID
	}
	if err := storage.NewInMemoryBackend(env.Settings.StoreDir).Save(doc); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// stored returns the current store document.
func stored(t *testing.T, env *Env) *storage.Document {
	t.Helper()
	doc, err := storage.NewInMemoryBackend(env.Settings.StoreDir).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc == nil {
		t.Fatal("store is empty")
	}
	return doc
}

// execute runs cmd with flag parsing, the way main does.
func execute(t *testing.T, cmd Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	fs := NewFlagSet(cmd, io.Discard)
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	var out, errOut bytes.Buffer
	err = cmd.Execute(fs.Args(), &out, &errOut)
	return out.String(), errOut.String(), err
}

// syncBuffer is a thread-safe bytes.Buffer for use in concurrent follow tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
