package leveldb

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config declares a store and the options applied to it.
//
//	library: /usr/lib/libleveldb.so
//	path: ./data/leveldb
//	open: [create_if_missing, paranoid_checks]
//	write: [sync]
//	read: [verify_checksums]
type Config struct {
	// Library is the shared library path. Empty means the default search.
	Library string        `yaml:"library,omitempty"`
	Path    string        `yaml:"path"`
	Open    []OpenOption  `yaml:"open,omitempty"`
	Write   []WriteOption `yaml:"write,omitempty"`
	Read    []ReadOption  `yaml:"read,omitempty"`
}

// DefaultConfig creates the store when it is missing.
func DefaultConfig() Config {
	return Config{
		Open: []OpenOption{CreateIfMissing},
	}
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: path is required")
	}
	return nil
}

// OpenConfig opens cfg.Path with cfg.Open and wraps it with the configured
// read and write options.
func (l *Library) OpenConfig(cfg Config) (*KVStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := l.Open(cfg.Path, cfg.Open...)
	if err != nil {
		return nil, err
	}
	return NewKVStore(d, cfg), nil
}
