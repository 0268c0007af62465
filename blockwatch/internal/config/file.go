// Package config handles blockwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level blockwatch configuration.
type Config struct {
	Page     PageConfig     `yaml:"page"`
	Debounce DebounceConfig `yaml:"debounce"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Sinks    []SinkConfig   `yaml:"sinks"`
	Inspect  InspectConfig  `yaml:"inspect"`
}

// PageConfig defines the page hosting the editor to observe.
type PageConfig struct {
	URL    string `yaml:"url"`
	Root   string `yaml:"root"`   // CSS selector of the watched subtree root
	Remote string `yaml:"remote"` // devtools websocket URL; empty = launch local Chrome
}

// DebounceConfig controls notification coalescing.
type DebounceConfig struct {
	Window time.Duration `yaml:"window"`
}

// WatcherConfig controls controller behaviour.
type WatcherConfig struct {
	SettleDelay  time.Duration `yaml:"settle_delay"`
	WrapperClass string        `yaml:"wrapper_class"`
	ReadOnly     bool          `yaml:"read_only"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | journal
	URL  string `yaml:"url"`  // for webhook
	Path string `yaml:"path"` // for journal
}

// InspectConfig enables the debug HTTP endpoint.
type InspectConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 450 * time.Millisecond
	}
	if c.Watcher.SettleDelay <= 0 {
		c.Watcher.SettleDelay = time.Second
	}
	if c.Watcher.WrapperClass == "" {
		c.Watcher.WrapperClass = "ce-block"
	}
	if c.Page.Root == "" {
		c.Page.Root = "body"
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}

// Validate rejects configurations that cannot be wired.
func (c *Config) Validate() error {
	for _, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: webhook sink requires url")
			}
		case "journal":
			if s.Path == "" {
				return fmt.Errorf("config: journal sink requires path")
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
	}
	return nil
}
