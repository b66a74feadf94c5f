package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycumines/snipbox/internal/storage"
)

// SetKeyInFile sets key to value in section ("" for global) of the config
// file at path, creating the file if needed. Other lines, comments included,
// are preserved. An existing key is replaced in place; a new one is added
// at the end of its section, and a missing section is appended.
func SetKeyInFile(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}

	newLine := strings.TrimSpace(key + " " + value)
	lines = setLine(lines, section, key, newLine)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

func setLine(lines []string, section, key, newLine string) []string {
	current := ""
	// end is the index after the last non-blank line of the target section,
	// or -1 while the section has not been seen.
	end := -1
	if section == "" {
		end = 0
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			current = strings.TrimSpace(strings.Trim(trimmed, "[]"))
			if current == section {
				end = i + 1
			}
			continue
		}
		if current != section {
			continue
		}
		if trimmed == "" {
			continue
		}
		end = i + 1
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			return lines
		}
	}

	if end < 0 {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		return append(lines, "["+section+"]", newLine)
	}
	return append(lines[:end], append([]string{newLine}, lines[end:]...)...)
}
