package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML document after expanding ${VAR} references.
// Keys that match no field are rejected so a misspelled setting fails loudly
// instead of silently falling back to its default.
func Parse(data []byte) (*MarketConfig, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var cfg MarketConfig
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// Load reads and parses the config file at path. No defaults are applied.
func Load(path string) (*MarketConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// LoadWithDefaults is Load followed by filling every unset field.
func LoadWithDefaults(path string) (*MarketConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate is what marketd runs on -config: load, fill defaults, and
// reject the first invalid setting.
func LoadAndValidate(path string) (*MarketConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Default is the configuration marketd runs with when no file is given.
func Default() *MarketConfig {
	cfg := &MarketConfig{Instance: InstanceConfig{ID: DefaultInstanceID}}
	cfg.applyDefaults()
	return cfg
}
