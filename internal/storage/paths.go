package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	storeFileName = "snippets.json"
	lockFileName  = "snippets.lock"
)

// defaultDirectory is a variable so tests can avoid the user's home directory.
var defaultDirectory = DefaultDirectory

// SetTestPaths overrides the default store directory.
// This should only be used in tests.
func SetTestPaths(dir string) {
	defaultDirectory = func() (string, error) { return dir, nil }
}

// ResetPaths restores the default store directory.
// This should only be used in tests.
func ResetPaths() {
	defaultDirectory = DefaultDirectory
}

// DefaultDirectory returns {UserConfigDir}/snipbox, the store directory used
// when none is configured.
func DefaultDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "snipbox"), nil
}

// ResolveDirectory returns dir, or the default directory when dir is empty.
func ResolveDirectory(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return defaultDirectory()
}

// StoreFilePath returns the path of the snippet document inside dir.
func StoreFilePath(dir string) string {
	return filepath.Join(dir, storeFileName)
}

// LockFilePath returns the path of the store lock file inside dir.
func LockFilePath(dir string) string {
	return filepath.Join(dir, lockFileName)
}
