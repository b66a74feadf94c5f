package storage

import (
	"fmt"
	"strings"
	"time"
)

// CurrentSchemaVersion is written to every persisted Document.
const CurrentSchemaVersion = "1.0.0"

// Language is the source language of a snippet.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// ParseLanguage accepts the language names and their common short forms.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "js", "javascript":
		return LanguageJavaScript, nil
	case "ts", "typescript":
		return LanguageTypeScript, nil
	}
	return "", fmt.Errorf("unknown language %q (want javascript or typescript)", s)
}

// Snippet is a persisted unit of user-authored source text.
type Snippet struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	Language  Language  `json:"language" yaml:"language"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Document is the complete persisted state of a snippet store.
type Document struct {
	Version  string    `json:"version"`
	Selected string    `json:"selected,omitempty"` // ID of the selected snippet, if any.
	Snippets []Snippet `json:"snippets"`
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Snippets = append([]Snippet(nil), d.Snippets...)
	return &c
}
