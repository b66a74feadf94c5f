package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileSystemBackend implements Backend as a single JSON document guarded by
// an exclusive lock file, both inside one directory.
type FileSystemBackend struct {
	dir      string
	lockFile *os.File
}

// NewFileSystemBackend opens the store in dir (or the default directory when
// dir is empty), creating the directory and taking the store lock.
func NewFileSystemBackend(dir string) (*FileSystemBackend, error) {
	dir, err := ResolveDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lockFile, err := acquireFileLock(LockFilePath(dir))
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return nil, fmt.Errorf("%w: %s", ErrStoreLocked, dir)
		}
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}

	return &FileSystemBackend{
		dir:      dir,
		lockFile: lockFile,
	}, nil
}

// Dir returns the directory the store lives in.
func (b *FileSystemBackend) Dir() string { return b.dir }

// Load reads the snippet document. It returns (nil, nil) if the store file
// does not exist.
func (b *FileSystemBackend) Load() (*Document, error) {
	if b.lockFile == nil {
		return nil, errors.New("store is closed")
	}

	data, err := os.ReadFile(StoreFilePath(b.dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store file: %w", err)
	}

	return &doc, nil
}

// Save atomically replaces the snippet document.
func (b *FileSystemBackend) Save(doc *Document) error {
	if b.lockFile == nil {
		return errors.New("store is closed")
	}
	if doc == nil {
		return errors.New("document cannot be nil")
	}

	out := doc.Clone()
	out.Version = CurrentSchemaVersion
	if out.Snippets == nil {
		out.Snippets = []Snippet{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	if err := AtomicWriteFile(StoreFilePath(b.dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	return nil
}

// Close releases the store lock. It is safe to call more than once.
func (b *FileSystemBackend) Close() error {
	if b.lockFile == nil {
		return nil
	}

	if err := releaseFileLock(b.lockFile); err != nil {
		return fmt.Errorf("failed to release store lock: %w", err)
	}

	b.lockFile = nil
	return nil
}

var _ Backend = (*FileSystemBackend)(nil)
