// Package command implements the snip CLI: a registry of named commands,
// each with its own flag set, sharing one Env for configuration, the
// snippet store and terminal output.
package command

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// Command represents a command that can be executed.
type Command interface {
	// Name returns the command name.
	Name() string

	// Description returns a short description of the command.
	Description() string

	// Usage returns the usage string for the command.
	Usage() string

	// SetupFlags configures the flag.FlagSet for this command.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the arguments left after flag parsing.
	Execute(args []string, stdout, stderr io.Writer) error
}

// BaseCommand provides a basic implementation that other commands can embed.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand creates a new BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{
		name:        name,
		description: description,
		usage:       usage,
	}
}

// Name returns the command name.
func (c *BaseCommand) Name() string {
	return c.name
}

// Description returns the command description.
func (c *BaseCommand) Description() string {
	return c.description
}

// Usage returns the command usage.
func (c *BaseCommand) Usage() string {
	return c.usage
}

// SetupFlags is a default implementation that does nothing.
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}

// ErrUsage marks errors caused by bad arguments rather than failed work.
var ErrUsage = errors.New("usage")

// usageErrorf reports a bad invocation on stderr and returns an ErrUsage
// error.
func usageErrorf(stderr io.Writer, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(stderr, msg)
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}

// ExitError carries a process exit code for failures that have already been
// reported to the user, such as a snippet that threw.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// NewFlagSet returns a FlagSet configured by cmd. Parse errors are returned
// rather than exiting, and usage goes to output.
func NewFlagSet(cmd Command, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(output, "Usage: snip %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(output, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(output, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	return fs
}
