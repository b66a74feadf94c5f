package command

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/snipbox/internal/snippets"
	"github.com/joeycumines/snipbox/internal/storage"
)

// exportDocument is the interchange format shared by export and import.
type exportDocument struct {
	Version  string             `json:"version" yaml:"version"`
	Snippets []snippets.Snippet `json:"snippets" yaml:"snippets"`
}

// ExportCommand writes snippets as JSON or YAML.
type ExportCommand struct {
	*BaseCommand
	env    *Env
	format string
	output string
}

// NewExportCommand creates a new export command.
func NewExportCommand(env *Env) *ExportCommand {
	return &ExportCommand{
		BaseCommand: NewBaseCommand("export", "Export snippets as JSON or YAML", "export [options] [snippet-id]..."),
		env:         env,
	}
}

// SetupFlags configures the flags for the export command.
func (c *ExportCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", c.env.Schema.String(c.env.Config, "export", "format"), "Output format: json or yaml")
	fs.StringVar(&c.output, "o", "", "Write to this file instead of stdout")
}

// Execute exports the named snippets, or all of them.
func (c *ExportCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if c.format != "json" && c.format != "yaml" {
		return usageErrorf(stderr, "unknown format %q (want json or yaml)", c.format)
	}

	var doc exportDocument
	err := c.env.withManager(func(m *snippets.Manager) error {
		doc.Version = storage.CurrentSchemaVersion
		if len(args) == 0 {
			doc.Snippets = m.Snippets()
			return nil
		}
		for _, ref := range args {
			s, err := m.Find(ref)
			if err != nil {
				return err
			}
			doc.Snippets = append(doc.Snippets, s)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if doc.Snippets == nil {
		doc.Snippets = []snippets.Snippet{}
	}

	data, err := encodeDocument(doc, c.format)
	if err != nil {
		return err
	}
	if c.output == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := storage.AtomicWriteFile(c.output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.output, err)
	}
	_, _ = fmt.Fprintf(stderr, "Exported %d snippet(s) to %s\n", len(doc.Snippets), c.output)
	return nil
}

func encodeDocument(doc exportDocument, format string) ([]byte, error) {
	if format == "yaml" {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeSnippets accepts either an exported document or a bare list, in
// JSON or YAML. Input whose first non-space byte is '[' or '{' is JSON.
func decodeSnippets(data []byte) ([]snippets.Snippet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no snippets to import: input is empty")
	}

	if trimmed[0] == '[' || trimmed[0] == '{' {
		if trimmed[0] == '[' {
			var list []snippets.Snippet
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("invalid JSON: %w", err)
			}
			return list, nil
		}
		var doc exportDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return doc.Snippets, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(node.Content) == 1 && node.Content[0].Kind == yaml.SequenceNode {
		var list []snippets.Snippet
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		return list, nil
	}
	var doc exportDocument
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return doc.Snippets, nil
}

// ImportCommand merges snippets from an export file.
type ImportCommand struct {
	*BaseCommand
	env *Env
}

// NewImportCommand creates a new import command.
func NewImportCommand(env *Env) *ImportCommand {
	return &ImportCommand{
		BaseCommand: NewBaseCommand("import", "Import snippets from a JSON or YAML export", "import <file | ->"),
		env:         env,
	}
}

// Execute imports the snippets. Snippets whose ID is already stored are
// replaced.
func (c *ImportCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return usageErrorf(stderr, "import takes exactly one file, or '-' for stdin")
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(c.env.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}

	list, err := decodeSnippets(data)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].Language == "" {
			continue
		}
		lang, err := storage.ParseLanguage(string(list[i].Language))
		if err != nil {
			return fmt.Errorf("snippet %d (%q): %w", i+1, list[i].Title, err)
		}
		list[i].Language = lang
	}

	return c.env.withManager(func(m *snippets.Manager) error {
		added, replaced, err := m.Import(list)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Imported %d snippet(s): %d added, %d replaced\n", added+replaced, added, replaced)
		return nil
	})
}
