// Package snippets manages the user's snippet collection: creation, editing,
// selection and search, persisted through a storage.Backend.
package snippets

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/joeycumines/snipbox/internal/storage"
)

// Snippet is the persisted snippet type.
type Snippet = storage.Snippet

const (
	DefaultTitle   = "Untitled snippet"
	DefaultContent = "// Write your code here"
)

var (
	// ErrNotFound is returned when no snippet matches an ID or reference.
	ErrNotFound = errors.New("snippet not found")
	// ErrAmbiguous is returned when an ID prefix matches more than one snippet.
	ErrAmbiguous = errors.New("snippet reference is ambiguous")
)

// Manager owns the in-memory snippet list and selection, writing every
// mutation through to its backend. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	backend  storage.Backend
	snippets []Snippet
	selected string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the snippet ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithLogger sets the logger used for recoverable load problems.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Open loads the collection from backend. A missing, empty or unreadable
// store is replaced by a single default snippet, which is persisted.
func Open(backend storage.Backend, opts ...Option) (*Manager, error) {
	m := &Manager{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	doc, err := backend.Load()
	if err != nil {
		m.logger.Error("failed to load snippets, starting with a default snippet", "error", err)
		doc = nil
	}
	if doc == nil || len(doc.Snippets) == 0 {
		s := m.defaultSnippet()
		if err := m.commitLocked([]Snippet{s}, s.ID); err != nil {
			return nil, err
		}
		return m, nil
	}

	m.snippets = doc.Snippets
	m.selected = doc.Selected
	if m.indexLocked(m.selected) < 0 {
		m.selected = m.snippets[0].ID
	}
	return m, nil
}

func (m *Manager) defaultSnippet() Snippet {
	now := m.now()
	return Snippet{
		ID:        m.newID(),
		Title:     DefaultTitle,
		Content:   DefaultContent,
		Language:  storage.LanguageJavaScript,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// commitLocked persists snippets and selected, and only then makes them the
// in-memory state, so a failed save leaves the manager unchanged.
func (m *Manager) commitLocked(snippets []Snippet, selected string) error {
	err := m.backend.Save(&storage.Document{
		Selected: selected,
		Snippets: snippets,
	})
	if err != nil {
		return fmt.Errorf("failed to save snippets: %w", err)
	}
	m.snippets = snippets
	m.selected = selected
	return nil
}

func (m *Manager) indexLocked(id string) int {
	return indexOf(m.snippets, id)
}

func indexOf(list []Snippet, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(s Snippet) bool { return s.ID == id })
}

// Snippets returns a copy of the collection, newest first.
func (m *Manager) Snippets() []Snippet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.snippets)
}

// Get returns the snippet with the given ID.
func (m *Manager) Get(id string) (Snippet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.snippets[i], true
	}
	return Snippet{}, false
}

// Find resolves ref as a full ID or a unique ID prefix.
func (m *Manager) Find(ref string) (Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref == "" {
		return Snippet{}, ErrNotFound
	}
	if i := m.indexLocked(ref); i >= 0 {
		return m.snippets[i], nil
	}
	var (
		match Snippet
		found int
	)
	for _, s := range m.snippets {
		if strings.HasPrefix(s.ID, ref) {
			match = s
			found++
		}
	}
	switch found {
	case 0:
		return Snippet{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return match, nil
	}
	return Snippet{}, fmt.Errorf("%w: %q matches %d snippets", ErrAmbiguous, ref, found)
}

// SelectedID returns the ID of the selected snippet, or "".
func (m *Manager) SelectedID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Selected returns the selected snippet, if any.
func (m *Manager) Selected() (Snippet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(m.selected); i >= 0 {
		return m.snippets[i], true
	}
	return Snippet{}, false
}

// Create prepends a default snippet and selects it.
func (m *Manager) Create() (Snippet, error) {
	return m.CreateWith(DefaultTitle, DefaultContent, storage.LanguageJavaScript)
}

// CreateWith prepends a snippet with the given fields and selects it.
func (m *Manager) CreateWith(title, content string, lang storage.Language) (Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.defaultSnippet()
	s.Title = title
	s.Content = content
	if lang != "" {
		s.Language = lang
	}
	next := slices.Insert(slices.Clone(m.snippets), 0, s)
	if err := m.commitLocked(next, s.ID); err != nil {
		return Snippet{}, err
	}
	return s, nil
}

// Update replaces the snippet with s.ID, keeping its creation time and
// stamping a new modification time.
func (m *Manager) Update(s Snippet) (Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(s.ID)
	if i < 0 {
		return Snippet{}, fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	s.CreatedAt = m.snippets[i].CreatedAt
	s.UpdatedAt = m.now()
	if s.Language == "" {
		s.Language = m.snippets[i].Language
	}
	next := slices.Clone(m.snippets)
	next[i] = s
	if err := m.commitLocked(next, m.selected); err != nil {
		return Snippet{}, err
	}
	return s, nil
}

// Delete removes a snippet. Deleting the selected snippet selects the first
// remaining one, or nothing when the collection is empty.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := slices.Delete(slices.Clone(m.snippets), i, i+1)
	selected := m.selected
	switch {
	case len(next) == 0:
		selected = ""
	case selected == id:
		selected = next[0].ID
	}
	return m.commitLocked(next, selected)
}

// Select changes the selection to id ("" clears it). When the selection
// actually changes and the previously selected snippet holds only
// whitespace, that snippet is discarded.
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.selected {
		return nil
	}
	if id != "" && m.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := m.snippets
	if i := m.indexLocked(m.selected); i >= 0 && strings.TrimSpace(m.snippets[i].Content) == "" {
		m.logger.Debug("discarding empty snippet", "id", m.selected)
		next = slices.Delete(slices.Clone(m.snippets), i, i+1)
	}
	return m.commitLocked(next, id)
}

// Filter returns the snippets whose title or content contains query,
// ignoring case. An empty query matches everything.
func (m *Manager) Filter(query string) []Snippet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if query == "" {
		return slices.Clone(m.snippets)
	}
	fold := cases.Fold()
	q := fold.String(query)
	var out []Snippet
	for _, s := range m.snippets {
		if strings.Contains(fold.String(s.Title), q) || strings.Contains(fold.String(s.Content), q) {
			out = append(out, s)
		}
	}
	return out
}

// Import merges snippets into the collection. Snippets whose ID already
// exists replace the stored copy; new ones are prepended in the given order.
// Missing IDs, languages and timestamps are filled in. It returns the number
// of added and replaced snippets.
func (m *Manager) Import(in []Snippet) (added, replaced int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fresh []Snippet
	next := slices.Clone(m.snippets)
	for _, s := range in {
		if s.ID == "" {
			s.ID = m.newID()
		}
		if s.Language == "" {
			s.Language = storage.LanguageJavaScript
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = m.now()
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = s.CreatedAt
		}
		if i := indexOf(next, s.ID); i >= 0 {
			next[i] = s
			replaced++
			continue
		}
		fresh = append(fresh, s)
	}
	next = append(fresh, next...)
	selected := m.selected
	if selected == "" && len(next) > 0 {
		selected = next[0].ID
	}
	if err := m.commitLocked(next, selected); err != nil {
		return 0, 0, err
	}
	return len(fresh), replaced, nil
}
