package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/snipbox/internal/command"
	"github.com/joeycumines/snipbox/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		var exit *command.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		if !errors.Is(err, command.ErrUsage) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.NewConfig()
	}

	env := command.NewEnv(cfg, configPath)
	env.Stdin = stdin
	registry := newRegistry(env)

	helpCmd, _ := registry.Get("help")
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return helpCmd.Execute(nil, stdout, stderr)
	}

	cmd, err := registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		_, _ = fmt.Fprintln(stderr, "Use 'snip help' to see available commands.")
		return fmt.Errorf("%w: %v", command.ErrUsage, err)
	}

	fs := command.NewFlagSet(cmd, stderr)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", command.ErrUsage, err)
	}
	return cmd.Execute(fs.Args(), stdout, stderr)
}

func newRegistry(env *command.Env) *command.Registry {
	registry := command.NewRegistry()
	registry.Register(command.NewHelpCommand(registry))
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(env))
	registry.Register(command.NewInitCommand(env))
	registry.Register(command.NewLogCommand(env))

	registry.Register(command.NewRunCommand(env))
	registry.Register(command.NewListCommand(env))
	registry.Register(command.NewNewCommand(env))
	registry.Register(command.NewShowCommand(env))
	registry.Register(command.NewEditCommand(env))
	registry.Register(command.NewSelectCommand(env))
	registry.Register(command.NewDeleteCommand(env))
	registry.Register(command.NewExportCommand(env))
	registry.Register(command.NewImportCommand(env))

	registry.Alias("ls", "list")
	registry.Alias("cat", "show")
	registry.Alias("rm", "delete")
	return registry
}
