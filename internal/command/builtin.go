package command

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/snipbox/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "snip - run and inspect JavaScript and TypeScript snippets")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: snip <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			cmd, err := c.registry.Get(name)
			if err != nil {
				continue
			}
			label := name
			if aliases := c.registry.AliasesOf(name); len(aliases) > 0 {
				label += " (" + strings.Join(aliases, ", ") + ")"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", label, cmd.Description())
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'snip help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmdName := args[0]
	cmd, err := c.registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: snip %s\n", cmd.Usage())
	if aliases := c.registry.AliasesOf(cmd.Name()); len(aliases) > 0 {
		_, _ = fmt.Fprintf(stdout, "Aliases: %s\n", strings.Join(aliases, ", "))
	}

	// Flags are discovered by setting them up on a scratch FlagSet.
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return usageErrorf(stderr, "unexpected arguments: %v", args)
	}
	_, _ = fmt.Fprintf(stdout, "snip version %s\n", c.version)
	return nil
}

// ConfigCommand shows, validates and edits configuration.
type ConfigCommand struct {
	*BaseCommand
	env     *Env
	section string
}

// NewConfigCommand creates a new config command.
func NewConfigCommand(env *Env) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show, validate and edit configuration",
			"config [options] [validate | schema | path | <key> [value]]",
		),
		env: env,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Command section to read or write, e.g. run (default: global)")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stdout, c.env.Settings.Format())
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(args[1:], stdout, stderr)
	case "schema":
		_, _ = fmt.Fprint(stdout, c.env.Schema.FormatHelp())
		return nil
	case "path":
		path, err := c.path()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, path)
		return nil
	}

	key := args[0]
	opt := c.env.Schema.Lookup(c.section, key)
	if opt == nil && c.section != "" {
		opt = c.env.Schema.Lookup("", key)
	}
	if opt == nil {
		if c.section != "" {
			return usageErrorf(stderr, "unknown option %q in [%s]", key, c.section)
		}
		return usageErrorf(stderr, "unknown option %q (see 'snip config schema')", key)
	}

	switch len(args) {
	case 1:
		value := c.env.Schema.ResolveCommand(c.env.Config, c.section, key)
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, value)
		return nil
	case 2:
		value := args[1]
		if err := opt.Validate(value); err != nil {
			return usageErrorf(stderr, "invalid value for %s: %v", key, err)
		}
		path, err := c.path()
		if err != nil {
			return err
		}
		if err := config.SetKeyInFile(path, c.section, key, value); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		if c.section == "" {
			c.env.Config.SetGlobalOption(key, value)
		} else {
			c.env.Config.SetCommandOption(c.section, key, value)
		}
		_, _ = fmt.Fprintf(stdout, "Set %s = %s in %s\n", qualifiedKey(c.section, key), value, path)
		return nil
	}
	return usageErrorf(stderr, "too many arguments: %v", args[2:])
}

func qualifiedKey(section, key string) string {
	if section == "" {
		return key
	}
	return "[" + section + "] " + key
}

func (c *ConfigCommand) path() (string, error) {
	if c.env.ConfigPath != "" {
		return c.env.ConfigPath, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return path, nil
}

// executeValidate validates the current config against the schema. Issues
// are reported and the command fails so scripts can check the exit code.
func (c *ConfigCommand) executeValidate(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return usageErrorf(stderr, "unexpected arguments: %v", args)
	}
	issues := config.ValidateConfig(c.env.Config, c.env.Schema)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return &ExitError{Code: 1, Err: fmt.Errorf("configuration has %d issue(s)", len(issues))}
}

// InitCommand writes a starter config file.
type InitCommand struct {
	*BaseCommand
	env   *Env
	force bool
}

// NewInitCommand creates a new init command.
func NewInitCommand(env *Env) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Write a starter configuration file",
			"init [options]",
		),
		env: env,
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing configuration file")
}

// Execute writes the config file.
func (c *InitCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return usageErrorf(stderr, "unexpected arguments: %v", args)
	}
	configPath := c.env.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if _, err := os.Stat(configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", configPath)
		_, _ = fmt.Fprintln(stdout, "Use -force to overwrite existing configuration")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig(c.env.Schema)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The file must round-trip through the loader cleanly.
	written, err := config.LoadFromPath(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: failed to load created config: %v\n", err)
	} else if issues := config.ValidateConfig(written, c.env.Schema); len(issues) > 0 {
		_, _ = fmt.Fprintf(stderr, "Warning: created config has %d issue(s)\n", len(issues))
	}

	_, _ = fmt.Fprintf(stdout, "Initialized snip configuration at: %s\n", configPath)
	return nil
}

// starterConfig renders every option in s as a commented default, so the
// file documents itself and changes nothing until edited.
func starterConfig(s *config.ConfigSchema) string {
	var b strings.Builder
	b.WriteString("# snip configuration file\n")
	b.WriteString("# Format: optionName remainingLineIsTheValue\n")
	b.WriteString("# Use [command_name] sections for command-specific options\n")
	b.WriteString("# Uncomment a line to change its value.\n")
	writeOpts := func(opts []config.ConfigOption) {
		for _, o := range opts {
			fmt.Fprintf(&b, "\n# %s\n", o.Description)
			if o.EnvVar != "" {
				fmt.Fprintf(&b, "# (overridden by $%s)\n", o.EnvVar)
			}
			fmt.Fprintf(&b, "# %s\n", strings.TrimSpace(o.Key+" "+o.Default))
		}
	}
	writeOpts(s.Options(""))
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s]\n", sec)
		writeOpts(s.Options(sec))
	}
	return b.String()
}
