package blockwatch

import (
	"github.com/mbaranovski/editor.js/blockwatch/internal/config"
)

// Config is the top-level blockwatch configuration. Re-exported from internal.
type Config = config.Config

// PageConfig defines the page hosting the editor to observe.
type PageConfig = config.PageConfig

// DebounceConfig controls notification coalescing.
type DebounceConfig = config.DebounceConfig

// WatcherConfig controls controller behaviour.
type WatcherConfig = config.WatcherConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// InspectConfig enables the debug HTTP endpoint.
type InspectConfig = config.InspectConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
