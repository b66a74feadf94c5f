package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Settings is the typed, resolved view of the global options.
type Settings struct {
	Verbose bool
	Color   string

	RunTimeout time.Duration
	RunFetch   bool

	StoreBackend string
	StoreDir     string

	LogFile       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxFiles   int
	LogBufferSize int
}

// Settings resolves every global option of c (which may be nil) through the
// schema. Values that fail validation fall back to their defaults; the
// problem is already recorded in c.Warnings.
func (s *ConfigSchema) Settings(c *Config) Settings {
	return Settings{
		Verbose:       s.Bool(c, "", "verbose"),
		Color:         s.valid(c, "", "color"),
		RunTimeout:    s.Duration(c, "", "run.timeout"),
		RunFetch:      s.Bool(c, "", "run.fetch"),
		StoreBackend:  s.valid(c, "", "store.backend"),
		StoreDir:      s.Path(c, "", "store.dir"),
		LogFile:       s.Path(c, "", "log.file"),
		LogLevel:      s.valid(c, "", "log.level"),
		LogMaxSizeMB:  s.Int(c, "", "log.max-size-mb"),
		LogMaxFiles:   s.Int(c, "", "log.max-files"),
		LogBufferSize: s.Int(c, "", "log.buffer-size"),
	}
}

// valid resolves key and substitutes the default when the value is invalid.
func (s *ConfigSchema) valid(c *Config, command, key string) string {
	v := s.ResolveCommand(c, command, key)
	opt := s.Lookup(command, key)
	if opt == nil {
		opt = s.Lookup("", key)
	}
	if opt != nil && opt.Validate(v) != nil {
		return opt.Default
	}
	return v
}

// String resolves key, substituting the default for an invalid value.
func (s *ConfigSchema) String(c *Config, command, key string) string {
	return s.valid(c, command, key)
}

// Bool resolves key as a bool.
func (s *ConfigSchema) Bool(c *Config, command, key string) bool {
	b, _ := parseBool(s.valid(c, command, key))
	return b
}

// Int resolves key as a non-negative int.
func (s *ConfigSchema) Int(c *Config, command, key string) int {
	n, _ := strconv.Atoi(s.valid(c, command, key))
	return n
}

// Duration resolves key as a duration.
func (s *ConfigSchema) Duration(c *Config, command, key string) time.Duration {
	d, _ := time.ParseDuration(s.valid(c, command, key))
	return d
}

// Path resolves key as a path, expanding a leading ~.
func (s *ConfigSchema) Path(c *Config, command, key string) string {
	return ExpandHome(s.valid(c, command, key))
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Format renders the settings as "key value" lines in schema order, the
// format `snip config` prints.
func (st Settings) Format() string {
	var b strings.Builder
	for _, kv := range [...]struct {
		key   string
		value any
	}{
		{"verbose", st.Verbose},
		{"color", st.Color},
		{"run.timeout", st.RunTimeout},
		{"run.fetch", st.RunFetch},
		{"store.backend", st.StoreBackend},
		{"store.dir", st.StoreDir},
		{"log.file", st.LogFile},
		{"log.level", st.LogLevel},
		{"log.max-size-mb", st.LogMaxSizeMB},
		{"log.max-files", st.LogMaxFiles},
		{"log.buffer-size", st.LogBufferSize},
	} {
		fmt.Fprintf(&b, "%s %v\n", kv.key, kv.value)
	}
	return b.String()
}
