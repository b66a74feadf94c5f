package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/snipbox/internal/config"
	"github.com/joeycumines/snipbox/internal/snippets"
	"github.com/joeycumines/snipbox/internal/storage"
)

// Env holds what commands share: resolved configuration, process I/O and
// factories that tests replace.
type Env struct {
	Config     *config.Config
	Schema     *config.ConfigSchema
	Settings   config.Settings
	ConfigPath string
	Stdin      io.Reader

	// openBackend opens the snippet store; defaults to storage.GetBackend.
	openBackend func(name, dir string) (storage.Backend, error)
	// managerOpts are appended when opening the snippet manager.
	managerOpts []snippets.Option
	// now is the clock for relative times in listings.
	now func() time.Time
	// ctxFactory creates the execution context. If nil, a context cancelled
	// by SIGINT or SIGTERM is used. Tests set it to avoid signal handling.
	ctxFactory func() (context.Context, context.CancelFunc)
}

// NewEnv resolves cfg (which may be nil) through the default schema.
func NewEnv(cfg *config.Config, configPath string) *Env {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()
	return &Env{
		Config:      cfg,
		Schema:      schema,
		Settings:    schema.Settings(cfg),
		ConfigPath:  configPath,
		Stdin:       os.Stdin,
		openBackend: storage.GetBackend,
		now:         time.Now,
	}
}

func (e *Env) context() (context.Context, context.CancelFunc) {
	if e.ctxFactory != nil {
		return e.ctxFactory()
	}
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openManager opens the configured snippet store. The returned close func
// releases the store and must be called.
func (e *Env) openManager(logger *slog.Logger) (*snippets.Manager, func() error, error) {
	dir := e.Settings.StoreDir
	if e.Settings.StoreBackend == "fs" {
		resolved, err := storage.ResolveDirectory(dir)
		if err != nil {
			return nil, nil, err
		}
		dir = resolved
	} else if dir == "" {
		dir = "default"
	}

	backend, err := e.openBackend(e.Settings.StoreBackend, dir)
	if err != nil {
		if errors.Is(err, storage.ErrStoreLocked) {
			return nil, nil, fmt.Errorf("snippet store %s is in use by another snip process: %w", dir, err)
		}
		return nil, nil, fmt.Errorf("failed to open snippet store: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := append([]snippets.Option{snippets.WithLogger(logger)}, e.managerOpts...)
	m, err := snippets.Open(backend, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return m, backend.Close, nil
}

// withManager opens the store, runs fn and closes the store, joining any
// close error into the result.
func (e *Env) withManager(fn func(m *snippets.Manager) error) (err error) {
	m, closeStore, err := e.openManager(nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeStore())
	}()
	return fn(m)
}

// resolveSnippet finds ref, or the selected snippet when ref is empty.
func resolveSnippet(m *snippets.Manager, ref string) (snippets.Snippet, error) {
	if ref == "" {
		s, ok := m.Selected()
		if !ok {
			return snippets.Snippet{}, fmt.Errorf("no snippet selected: %w", snippets.ErrNotFound)
		}
		return s, nil
	}
	return m.Find(ref)
}
