package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/snipbox/internal/command"
)

// isolate points the config and store at a temp dir and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SNIPBOX_CONFIG", filepath.Join(dir, "config"))
	t.Setenv("SNIPBOX_STORE_DIR", filepath.Join(dir, "store"))
	t.Setenv("SNIPBOX_COLOR", "never")
	t.Setenv("SNIPBOX_LOG_FILE", "")
	t.Setenv("SNIPBOX_LOG_LEVEL", "")
	return dir
}

func runArgs(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun(t *testing.T) {
	isolate(t)

	t.Run("help command", func(t *testing.T) {
		stdout, _, err := runArgs(t, "", "help")
		if err != nil {
			t.Errorf("Expected no error for help command, got: %v", err)
		}
		if !strings.Contains(stdout, "ls") || !strings.Contains(stdout, "import") {
			t.Errorf("expected every command listed, got:\n%s", stdout)
		}
	})

	t.Run("version command", func(t *testing.T) {
		stdout, _, err := runArgs(t, "", "version")
		if err != nil || stdout != "snip version "+version+"\n" {
			t.Errorf("unexpected version output %q, err %v", stdout, err)
		}
	})

	for _, args := range [][]string{nil, {"-h"}, {"--help"}} {
		stdout, _, err := runArgs(t, "", args...)
		if err != nil || !strings.Contains(stdout, "Usage: snip <command>") {
			t.Errorf("%v: expected general help, got %q, err %v", args, stdout, err)
		}
	}

	t.Run("unknown command", func(t *testing.T) {
		_, stderr, err := runArgs(t, "", "nonexistent")
		if !errors.Is(err, command.ErrUsage) {
			t.Errorf("Expected a usage error for unknown command, got %v", err)
		}
		if !strings.Contains(stderr, "Unknown command: nonexistent") {
			t.Errorf("unexpected stderr %q", stderr)
		}
	})

	t.Run("bad flag", func(t *testing.T) {
		_, stderr, err := runArgs(t, "", "list", "-bogus")
		if !errors.Is(err, command.ErrUsage) {
			t.Errorf("expected a usage error, got %v", err)
		}
		if !strings.Contains(stderr, "Usage: snip list") {
			t.Errorf("expected command usage on stderr, got %q", stderr)
		}
	})

	t.Run("command help flag", func(t *testing.T) {
		if _, _, err := runArgs(t, "", "run", "-h"); err != nil {
			t.Errorf("expected -h to succeed, got %v", err)
		}
	})
}

func TestRun_SnippetLifecycle(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := runArgs(t, "", "new", "-title", "Sum", "-content", "return 40 + 2")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	id := strings.TrimSpace(stdout)

	stdout, _, err = runArgs(t, "", "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "→ 42\n" {
		t.Errorf("unexpected run output %q", stdout)
	}

	stdout, _, err = runArgs(t, "", "ls", "-ids")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if lines := strings.Fields(stdout); len(lines) != 2 || lines[0] != id {
		t.Errorf("expected the new snippet first after the default one was created, got %q", stdout)
	}

	exported, _, err := runArgs(t, "", "export", id)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if _, _, err := runArgs(t, "", "rm", id[:8]); err != nil {
		t.Fatalf("rm: %v", err)
	}
	stdout, _, err = runArgs(t, exported, "import", "-")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stdout != "Imported 1 snippet(s): 1 added, 0 replaced\n" {
		t.Errorf("unexpected import output %q", stdout)
	}

	if _, err := os.Stat(filepath.Join(dir, "store")); err != nil {
		t.Errorf("expected the store under SNIPBOX_STORE_DIR: %v", err)
	}
}

func TestRun_FailedSnippetExitCode(t *testing.T) {
	isolate(t)

	_, _, err := runArgs(t, "", "run", "-e", `throw new Error("nope")`)
	var exit *command.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
}

func TestRun_ConfigFileIsHonoured(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config"), []byte("[export]\nformat yaml\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runArgs(t, "", "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(stdout, "version: ") {
		t.Errorf("expected YAML export, got:\n%s", stdout)
	}
}
