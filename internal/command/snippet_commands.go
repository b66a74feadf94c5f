package command

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/snipbox/internal/snippets"
	"github.com/joeycumines/snipbox/internal/storage"
)

// shortIDLen is how much of a snippet ID listings print. Any unique prefix
// is accepted as a reference.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// readContent returns text, or the contents of path ("-" for stdin).
func (e *Env) readContent(text, path string) (string, bool, error) {
	switch {
	case text != "" && path != "":
		return "", false, fmt.Errorf("%w: give content inline or from a file, not both", ErrUsage)
	case text != "":
		return text, true, nil
	case path == "-":
		data, err := io.ReadAll(e.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	}
	return "", false, nil
}

// ListCommand lists stored snippets, newest first.
type ListCommand struct {
	*BaseCommand
	env   *Env
	query string
	limit int
	quiet bool
}

// NewListCommand creates a new list command.
func NewListCommand(env *Env) *ListCommand {
	return &ListCommand{
		BaseCommand: NewBaseCommand("list", "List stored snippets", "list [options]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the list command.
func (c *ListCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.query, "q", "", "Only show snippets whose title or content contains this text (case-insensitive)")
	fs.IntVar(&c.limit, "n", c.env.Schema.Int(c.env.Config, "list", "limit"), "Show at most this many snippets (0 for all)")
	fs.BoolVar(&c.quiet, "ids", false, "Print only full snippet IDs")
}

// Execute lists snippets.
func (c *ListCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return usageErrorf(stderr, "unexpected arguments: %v", args)
	}
	return c.env.withManager(func(m *snippets.Manager) error {
		list := m.Filter(c.query)
		if c.limit > 0 && len(list) > c.limit {
			list = list[:c.limit]
		}
		if c.quiet {
			for _, s := range list {
				_, _ = fmt.Fprintln(stdout, s.ID)
			}
			return nil
		}
		if len(list) == 0 {
			_, _ = fmt.Fprintln(stdout, "No snippets found.")
			return nil
		}

		st := newStyles(colorEnabled(c.env.Settings.Color, stdout))
		now := c.env.now()
		selected := m.SelectedID()
		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, s := range list {
			mark := " "
			if s.ID == selected {
				mark = st.render(st.marker, "*")
			}
			_, _ = fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\n",
				mark,
				shortID(s.ID),
				languageTag(s.Language),
				s.Title,
				snippets.FormatDistanceToNow(s.UpdatedAt, now),
			)
		}
		return w.Flush()
	})
}

func languageTag(l storage.Language) string {
	if l == storage.LanguageTypeScript {
		return "ts"
	}
	return "js"
}

// NewCommand creates a snippet and selects it.
type NewCommand struct {
	*BaseCommand
	env     *Env
	title   string
	lang    string
	content string
	file    string
}

// NewNewCommand creates a new "new" command.
func NewNewCommand(env *Env) *NewCommand {
	return &NewCommand{
		BaseCommand: NewBaseCommand("new", "Create a snippet and select it", "new [options]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the new command.
func (c *NewCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", snippets.DefaultTitle, "Snippet title")
	fs.StringVar(&c.lang, "lang", "", "Source language: javascript or typescript (default: by file extension, else javascript)")
	fs.StringVar(&c.content, "content", "", "Snippet content")
	fs.StringVar(&c.file, "file", "", "Read content from this file ('-' for stdin)")
}

// Execute creates the snippet and prints its ID.
func (c *NewCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return usageErrorf(stderr, "unexpected arguments: %v", args)
	}
	lang := languageForPath(c.file)
	if c.lang != "" {
		var err error
		if lang, err = storage.ParseLanguage(c.lang); err != nil {
			return usageErrorf(stderr, "%v", err)
		}
	}
	content, ok, err := c.env.readContent(c.content, c.file)
	if err != nil {
		return err
	}
	if !ok {
		content = snippets.DefaultContent
	}
	return c.env.withManager(func(m *snippets.Manager) error {
		s, err := m.CreateWith(c.title, content, lang)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, s.ID)
		return nil
	})
}

// ShowCommand prints a snippet.
type ShowCommand struct {
	*BaseCommand
	env *Env
	raw bool
}

// NewShowCommand creates a new show command.
func NewShowCommand(env *Env) *ShowCommand {
	return &ShowCommand{
		BaseCommand: NewBaseCommand("show", "Print a snippet (default: the selected one)", "show [options] [snippet-id]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the show command.
func (c *ShowCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.raw, "raw", false, "Print only the content")
}

// Execute prints the snippet.
func (c *ShowCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		return usageErrorf(stderr, "show takes at most one snippet, got %d", len(args))
	}
	var ref string
	if len(args) == 1 {
		ref = args[0]
	}
	return c.env.withManager(func(m *snippets.Manager) error {
		s, err := resolveSnippet(m, ref)
		if err != nil {
			return err
		}
		if c.raw {
			_, _ = fmt.Fprint(stdout, s.Content)
			if !strings.HasSuffix(s.Content, "\n") {
				_, _ = fmt.Fprintln(stdout)
			}
			return nil
		}
		st := newStyles(colorEnabled(c.env.Settings.Color, stdout))
		now := c.env.now()
		_, _ = fmt.Fprintln(stdout, st.render(st.heading, s.Title))
		_, _ = fmt.Fprintln(stdout, st.render(st.dim, fmt.Sprintf("%s · %s · created %s · updated %s",
			s.ID, s.Language,
			snippets.FormatDistanceToNow(s.CreatedAt, now),
			snippets.FormatDistanceToNow(s.UpdatedAt, now),
		)))
		_, _ = fmt.Fprintln(stdout)
		_, _ = fmt.Fprintln(stdout, strings.TrimSuffix(s.Content, "\n"))
		return nil
	})
}

// EditCommand changes a snippet's title, content or language.
type EditCommand struct {
	*BaseCommand
	env     *Env
	title   string
	content string
	file    string
	lang    string
}

// NewEditCommand creates a new edit command.
func NewEditCommand(env *Env) *EditCommand {
	return &EditCommand{
		BaseCommand: NewBaseCommand("edit", "Change a snippet's title, content or language", "edit [options] [snippet-id]"),
		env:         env,
	}
}

// SetupFlags configures the flags for the edit command.
func (c *EditCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "New title")
	fs.StringVar(&c.content, "content", "", "New content")
	fs.StringVar(&c.file, "file", "", "Read new content from this file ('-' for stdin)")
	fs.StringVar(&c.lang, "lang", "", "New language: javascript or typescript")
}

// Execute applies the edit.
func (c *EditCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 1 {
		return usageErrorf(stderr, "edit takes at most one snippet, got %d", len(args))
	}
	var ref string
	if len(args) == 1 {
		ref = args[0]
	}
	content, hasContent, err := c.env.readContent(c.content, c.file)
	if err != nil {
		return err
	}
	var lang storage.Language
	if c.lang != "" {
		if lang, err = storage.ParseLanguage(c.lang); err != nil {
			return usageErrorf(stderr, "%v", err)
		}
	}
	if c.title == "" && !hasContent && lang == "" {
		return usageErrorf(stderr, "nothing to change: give -title, -content, -file or -lang")
	}

	return c.env.withManager(func(m *snippets.Manager) error {
		s, err := resolveSnippet(m, ref)
		if err != nil {
			return err
		}
		if c.title != "" {
			s.Title = c.title
		}
		if hasContent {
			s.Content = content
		}
		if lang != "" {
			s.Language = lang
		}
		updated, err := m.Update(s)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Updated %s (%s)\n", shortID(updated.ID), updated.Title)
		return nil
	})
}

// SelectCommand changes the selected snippet, which run and show use by
// default.
type SelectCommand struct {
	*BaseCommand
	env *Env
}

// NewSelectCommand creates a new select command.
func NewSelectCommand(env *Env) *SelectCommand {
	return &SelectCommand{
		BaseCommand: NewBaseCommand("select", "Select the snippet run and show use by default", "select <snippet-id>"),
		env:         env,
	}
}

// Execute selects the snippet. Leaving a snippet that holds only whitespace
// deletes it.
func (c *SelectCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return usageErrorf(stderr, "select takes exactly one snippet")
	}
	return c.env.withManager(func(m *snippets.Manager) error {
		s, err := m.Find(args[0])
		if err != nil {
			return err
		}
		if err := m.Select(s.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Selected %s (%s)\n", shortID(s.ID), s.Title)
		return nil
	})
}

// DeleteCommand removes snippets.
type DeleteCommand struct {
	*BaseCommand
	env *Env
}

// NewDeleteCommand creates a new delete command.
func NewDeleteCommand(env *Env) *DeleteCommand {
	return &DeleteCommand{
		BaseCommand: NewBaseCommand("delete", "Delete snippets", "delete <snippet-id>..."),
		env:         env,
	}
}

// Execute deletes every referenced snippet. References are all resolved
// before anything is deleted, so a bad reference changes nothing.
func (c *DeleteCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageErrorf(stderr, "delete needs at least one snippet")
	}
	return c.env.withManager(func(m *snippets.Manager) error {
		found := make([]snippets.Snippet, 0, len(args))
		for _, ref := range args {
			s, err := m.Find(ref)
			if err != nil {
				return err
			}
			found = append(found, s)
		}
		for _, s := range found {
			if err := m.Delete(s.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "Deleted %s (%s)\n", shortID(s.ID), s.Title)
		}
		return nil
	})
}
