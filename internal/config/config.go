// Package config loads notevault configuration from CUE files.
//
// A config file is unified with an embedded schema that carries defaults
// and constraints, so a missing file, an empty file and a partial file all
// yield a complete Config. Unknown fields are rejected.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Backend selects the remote store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
)

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendSQLite, BackendBadger, BackendMemory:
		return true
	}
	return false
}

// Config is the resolved configuration.
type Config struct {
	Backend         Backend
	Path            string
	Owner           string
	Subject         string
	ConfirmLatency  time.Duration
	SuccessWindow   time.Duration
	FailureWindow   time.Duration
	LoadConcurrency int
	LogLevel        slog.Level
}

// fileConfig mirrors #Config field names for decoding.
type fileConfig struct {
	Backend         string `json:"backend"`
	Path            string `json:"path"`
	Owner           string `json:"owner"`
	Subject         string `json:"subject"`
	ConfirmLatency  string `json:"confirm_latency"`
	SuccessWindow   string `json:"success_window"`
	FailureWindow   string `json:"failure_window"`
	LoadConcurrency int    `json:"load_concurrency"`
	LogLevel        string `json:"log_level"`
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		// The embedded schema is valid by construction.
		panic(fmt.Sprintf("config: embedded schema defaults: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema. filename is used in
// error positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	value := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		file := ctx.CompileBytes(src, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", filename, err)
		}
		value = value.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", filename, err)
	}

	var raw fileConfig
	if err := value.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", filename, err)
	}

	return raw.resolve()
}

// resolve converts decoded strings into typed values.
func (f fileConfig) resolve() (Config, error) {
	cfg := Config{
		Backend:         Backend(f.Backend),
		Path:            f.Path,
		Owner:           f.Owner,
		Subject:         f.Subject,
		LoadConcurrency: f.LoadConcurrency,
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"confirm_latency", f.ConfirmLatency, &cfg.ConfirmLatency},
		{"success_window", f.SuccessWindow, &cfg.SuccessWindow},
		{"failure_window", f.FailureWindow, &cfg.FailureWindow},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return Config{}, fmt.Errorf("config log_level: %w", err)
	}

	return cfg, nil
}

// Validate checks a Config after flag overrides have been applied.
func (c Config) Validate() error {
	if !c.Backend.Valid() {
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Backend != BackendMemory && c.Path == "" {
		return fmt.Errorf("config: path is required for backend %s", c.Backend)
	}
	if c.LoadConcurrency < 1 {
		return fmt.Errorf("config: load_concurrency must be at least 1, got %d", c.LoadConcurrency)
	}
	return nil
}
