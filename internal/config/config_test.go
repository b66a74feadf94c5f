package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigParsing(t *testing.T) {
	configContent := `# Global options
verbose true
color   never
run.timeout 5s

[run]
inspect yes
depth 3

[export]
format yaml`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if value, ok := config.GetGlobalOption("verbose"); !ok || value != "true" {
		t.Errorf("Expected verbose=true, got %s (exists: %v)", value, ok)
	}
	if value, _ := config.GetGlobalOption("color"); value != "never" {
		t.Errorf("Expected value whitespace trimmed, got %q", value)
	}
	if value, ok := config.GetCommandOption("run", "depth"); !ok || value != "3" {
		t.Errorf("Expected run.depth=3, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("export", "verbose"); !ok || value != "true" {
		t.Errorf("Expected export falls back to global verbose, got %s (exists: %v)", value, ok)
	}
	if value, ok := config.GetCommandOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}
	if config.HasWarnings() {
		t.Errorf("Expected no warnings, got %v", config.Warnings)
	}
}

func TestEmptyConfig(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}
	if len(config.Global) != 0 || len(config.Commands) != 0 {
		t.Errorf("Expected empty config, got %+v", config)
	}
}

func TestConfigWarnings(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader(`mystery 1
run.fetch maybe
[run]
depth -1
bogus x
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	want := []string{
		`global option "run.fetch": expected bool, got "maybe"`,
		`option "depth" in [run]: expected non-negative int, got "-1"`,
		`unknown global option: "mystery" (value: "1")`,
		`unknown option for command "run": "bogus" (value: "x")`,
	}
	if strings.Join(config.Warnings, "\n") != strings.Join(want, "\n") {
		t.Errorf("warnings mismatch:\ngot:  %q\nwant: %q", config.Warnings, want)
	}
}

func TestOptionWithoutValue(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("verbose\n"))
	if err != nil {
		t.Fatal(err)
	}
	if value, ok := config.GetGlobalOption("verbose"); !ok || value != "" {
		t.Errorf("Expected empty value, got %q (exists: %v)", value, ok)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadFromPath(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("missing file should load empty config: %v", err)
	}
	if len(config.Global) != 0 {
		t.Errorf("expected empty config, got %v", config.Global)
	}

	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte("color always\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config, err = LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Global["color"] != "always" {
		t.Errorf("expected color=always, got %q", config.Global["color"])
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink(path, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := LoadFromPath(link); err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Errorf("expected symlink rejection, got %v", err)
	}
}

func TestLoad_UsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("verbose yes\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigEnvVar, path)

	config, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if config.Global["verbose"] != "yes" {
		t.Errorf("expected config from %s, got %v", path, config.Global)
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "YES": true, "1": true, "on": true, "false": false, "No": false, "0": false, "off": false} {
		got, err := parseBool(in)
		if err != nil || got != want {
			t.Errorf("parseBool(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseBool("maybe"); err == nil {
		t.Error("expected error for invalid bool")
	}
}
