// Package config loads pdugen run settings from a TOML file.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/multierr"
)

// Backend selects one renderer and where its files go
type Backend struct {
	Name    string `toml:"name"`
	Dir     string `toml:"dir"`
	Package string `toml:"package"`
}

// Config is one generator run
type Config struct {
	Input                 string
	Output                string
	Clean                 bool
	Workers               int
	LogLevel              string
	PrimitiveDynamicLists bool
	Backends              []Backend
}

type fileConfig struct {
	Input                 string    `toml:"input"`
	Output                string    `toml:"output"`
	Clean                 bool      `toml:"clean"`
	Workers               int       `toml:"workers"`
	LogLevel              string    `toml:"log_level"`
	PrimitiveDynamicLists bool      `toml:"primitive_dynamic_lists"`
	Backends              []Backend `toml:"backends"`
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Output:   "./generated",
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
		Backends: []Backend{
			{Name: "objc", Dir: "objc"},
			{Name: "python", Dir: "python"},
			{Name: "go", Dir: "go", Package: "pdu"},
		},
	}
}

// Load reads path on top of Default. Keys absent from the file keep their
// defaults; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(expanded, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("clean") {
		cfg.Clean = raw.Clean
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("primitive_dynamic_lists") {
		cfg.PrimitiveDynamicLists = raw.PrimitiveDynamicLists
	}
	if meta.IsDefined("backends") {
		cfg.Backends = normalizeBackends(raw.Backends)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalizeBackends(in []Backend) []Backend {
	out := make([]Backend, 0, len(in))
	for _, b := range in {
		b.Name = strings.ToLower(strings.TrimSpace(b.Name))
		b.Dir = strings.TrimSpace(b.Dir)
		b.Package = strings.TrimSpace(b.Package)
		if b.Dir == "" {
			b.Dir = b.Name
		}
		out = append(out, b)
	}
	return out
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs error
	if c.Output == "" {
		errs = multierr.Append(errs, fmt.Errorf("output directory is required"))
	}
	if c.Workers < 1 {
		errs = multierr.Append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if !logLevels[c.LogLevel] {
		errs = multierr.Append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if len(c.Backends) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("at least one backend is required"))
	}

	dirs := make(map[string]string)
	for _, b := range c.Backends {
		if b.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("backend without name"))
			continue
		}
		if prev, dup := dirs[b.Dir]; dup {
			errs = multierr.Append(errs, fmt.Errorf("backends %s and %s share dir %q", prev, b.Name, b.Dir))
		}
		dirs[b.Dir] = b.Name
	}
	return errs
}
