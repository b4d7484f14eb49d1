package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/storagesim/core/metrics"
	"github.com/kilianp07/storagesim/infra/mqtt"
)

type Config struct {
	Component ComponentConfig `json:"component"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Storage   StorageConfig   `json:"storage"`
	Source    SourceConfig    `json:"source"`
	Metrics   metrics.Config  `json:"metrics"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Component.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Source.SetDefaults()
	cfg.Metrics.SetDefaults()
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Component.Name
	}
	if err := cfg.Component.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Source.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ComponentConfig identifies this component inside the simulation run.
type ComponentConfig struct {
	// Name is the component name used in topics and message envelopes.
	Name string `json:"name"`
	// SimulationID identifies the simulation run.
	SimulationID string `json:"simulation_id"`
}

// SetDefaults applies sane defaults.
func (c *ComponentConfig) SetDefaults() {
	if c.SimulationID == "" {
		c.SimulationID = "simulation"
	}
}

// Validate checks mandatory fields.
func (c ComponentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("component name is required")
	}
	return nil
}
