package command

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
)

// TestCommand implements Command interface for testing
type TestCommand struct {
	*BaseCommand
	verbose bool
}

func NewTestCommand(name, description, usage string) *TestCommand {
	return &TestCommand{
		BaseCommand: NewBaseCommand(name, description, usage),
	}
}

func (c *TestCommand) Execute(args []string, stdout, stderr io.Writer) error {
	return nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()

	registry.Register(NewTestCommand("test", "Test command", "test [options]"))
	registry.Register(NewTestCommand("another", "Another command", "another"))

	cmd, err := registry.Get("test")
	if err != nil {
		t.Fatalf("Expected to find test command, got error: %v", err)
	}
	if cmd.Name() != "test" {
		t.Errorf("Expected command name 'test', got '%s'", cmd.Name())
	}
	if cmd.Description() != "Test command" {
		t.Errorf("Expected description 'Test command', got '%s'", cmd.Description())
	}

	if got := strings.Join(registry.List(), ","); got != "another,test" {
		t.Errorf("Expected sorted list 'another,test', got %q", got)
	}

	if _, err := registry.Get("nonexistent"); err == nil {
		t.Error("Expected error for nonexistent command")
	} else if !strings.Contains(err.Error(), "command not found: nonexistent") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(NewTestCommand("test", "first", "test"))
	registry.Register(NewTestCommand("test", "second", "test"))

	cmd, err := registry.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Description() != "second" {
		t.Errorf("expected the later registration to win, got %q", cmd.Description())
	}
	if n := len(registry.List()); n != 1 {
		t.Errorf("expected 1 command, got %d", n)
	}
}

func TestRegistry_Aliases(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(NewTestCommand("delete", "Delete", "delete"))
	registry.Alias("rm", "delete")
	registry.Alias("del", "delete")
	registry.Alias("gone", "missing")

	cmd, err := registry.Get("rm")
	if err != nil {
		t.Fatalf("alias lookup failed: %v", err)
	}
	if cmd.Name() != "delete" {
		t.Errorf("expected alias to resolve to delete, got %s", cmd.Name())
	}
	if got := strings.Join(registry.AliasesOf("delete"), ","); got != "del,rm" {
		t.Errorf("AliasesOf = %q, want del,rm", got)
	}
	if _, err := registry.Get("gone"); err == nil {
		t.Error("expected an alias of an unregistered command to fail")
	}
	if got := strings.Join(registry.List(), ","); got != "delete" {
		t.Errorf("aliases must not be listed as commands, got %q", got)
	}
}

func TestNewFlagSet(t *testing.T) {
	t.Parallel()
	cmd := &flagCommand{TestCommand: NewTestCommand("flags", "Has flags", "flags [-v]")}
	var out bytes.Buffer
	fs := NewFlagSet(cmd, &out)

	if err := fs.Parse([]string{"-v", "rest"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cmd.verbose {
		t.Error("expected -v to be set")
	}
	if got := fs.Args(); len(got) != 1 || got[0] != "rest" {
		t.Errorf("unexpected args %v", got)
	}

	if err := fs.Parse([]string{"-nope"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
	if !strings.Contains(out.String(), "Usage: snip flags [-v]") {
		t.Errorf("expected usage output, got %q", out.String())
	}
}

type flagCommand struct {
	*TestCommand
}

func (c *flagCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "Verbose")
}

func TestUsageErrorf(t *testing.T) {
	t.Parallel()
	var stderr bytes.Buffer
	err := usageErrorf(&stderr, "bad %s", "thing")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
	if stderr.String() != "bad thing\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()
	inner := errors.New("boom")
	var err error = &ExitError{Code: 3, Err: inner}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected ExitError to unwrap")
	}
	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 3 {
		t.Errorf("expected code 3, got %+v", exit)
	}
}
