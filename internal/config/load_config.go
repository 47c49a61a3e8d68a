package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default locations used when the config file does not override them.
const (
	DefaultSysfsRoot = "/sys"
	DefaultDevRoot   = "/dev"
)

// Default returns the configuration used when no --config file is given.
func Default() *Config {
	return &Config{
		SysfsRoot: DefaultSysfsRoot,
		DevRoot:   DefaultDevRoot,
	}
}

// LoadConfig reads the YAML file at path on top of Default.
// An empty path returns Default unchanged. Unknown keys are rejected so that
// typos in operation names do not go unnoticed.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Empty strings in the file mean "use the default"
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = DefaultSysfsRoot
	}
	if cfg.DevRoot == "" {
		cfg.DevRoot = DefaultDevRoot
	}
	return cfg, nil
}
