package storage

import (
	"fmt"
	"sort"
)

// BackendFactory creates a Backend rooted at dir. Backends that do not touch
// the file system ignore dir.
type BackendFactory func(dir string) (Backend, error)

// BackendRegistry maps backend names to their factory functions.
var BackendRegistry = make(map[string]BackendFactory)

func init() {
	BackendRegistry["fs"] = func(dir string) (Backend, error) {
		return NewFileSystemBackend(dir)
	}

	// In-memory backend, shared process-wide; used by tests and dry runs.
	BackendRegistry["memory"] = func(dir string) (Backend, error) {
		return NewInMemoryBackend(dir), nil
	}
}

// GetBackend retrieves a backend by name and creates an instance.
func GetBackend(name, dir string) (Backend, error) {
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
	return factory(dir)
}

// BackendNames lists the registered backend names in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(BackendRegistry))
	for name := range BackendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
