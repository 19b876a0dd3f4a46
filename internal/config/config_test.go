package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdugen.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
}

func TestLoadTemplate(t *testing.T) {
	cfg, err := Load(writeConfig(t, Template()))
	if err != nil {
		t.Fatalf("Load(template) error: %v", err)
	}
	if cfg.Input != "pdus.xml" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.Backends) != 3 || cfg.Backends[2].Package != "pdu" {
		t.Errorf("Backends = %+v", cfg.Backends)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "input = \" in.xml \"\nclean = true\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	def := Default()
	if cfg.Input != "in.xml" || !cfg.Clean {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Output != def.Output || cfg.Workers != def.Workers || cfg.LogLevel != def.LogLevel {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if len(cfg.Backends) != len(def.Backends) {
		t.Errorf("Backends = %+v, want defaults", cfg.Backends)
	}
}

func TestLoadBackends(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[[backends]]
name = " GO "
package = "dis"
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Backends) != 1 {
		t.Fatalf("Backends = %+v, want one", cfg.Backends)
	}
	b := cfg.Backends[0]
	if b.Name != "go" || b.Dir != "go" || b.Package != "dis" {
		t.Errorf("backend = %+v", b)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "outptu = \"x\"\n", "unknown keys: outptu"},
		{"bad workers", "workers = 0\n", "workers must be at least 1"},
		{"bad level", "log_level = \"loud\"\n", "unknown log_level"},
		{"empty output", "output = \"\"\n", "output directory is required"},
		{"no backends", "backends = []\n", "at least one backend"},
		{"shared dir", "[[backends]]\nname = \"go\"\ndir = \"out\"\n[[backends]]\nname = \"python\"\ndir = \"out\"\n", "share dir"},
		{"syntax", "input = \n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdugen.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("WriteTemplate() error: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Error("expected error when config exists")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Errorf("WriteTemplate(overwrite) error: %v", err)
	}
}
