// Package config loads and validates the controller's YAML configuration,
// following the teacher's split-struct shape: one sub-struct per concern,
// each except CapabilitiesConfig with its own Validate, aggregated by
// Config.Validate.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete controller configuration.
type Config struct {
	Interface    InterfaceConfig    `yaml:"interface"`
	Entity       EntityConfig       `yaml:"entity"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Timeouts     TimeoutsConfig     `yaml:"timeouts"`
	Enumeration  EnumerationConfig  `yaml:"enumeration"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// InterfaceConfig selects how the controller reaches the AVB/TSN segment
// (spec section 6's Network Collaborator boundary).
type InterfaceConfig struct {
	Mode         string `yaml:"mode"` // "udp_multicast" or "loopback"
	GroupAddress string `yaml:"group_address"`
	Name         string `yaml:"name"`
	BufferSize   int    `yaml:"buffer_size"`
}

// EntityConfig describes this controller's own AVDECC identity, used as
// controller_entity_id in every AECP/ACMP command it originates. The
// controller sends no ENTITY_AVAILABLE of its own, so this identity is not
// advertised in ADP.
type EntityConfig struct {
	EntityID      uint64 `yaml:"entity_id"`
	EntityModelID uint64 `yaml:"entity_model_id"`
}

// CapabilitiesConfig gates which newly advertised entities the controller
// bothers inserting and enumerating (spec section 4.6's discovery filter).
// Zero-value masks require nothing and admit every entity.
type CapabilitiesConfig struct {
	RequiredEntityCapabilities   uint32 `yaml:"required_entity_capabilities"`
	RequiredTalkerCapabilities   uint16 `yaml:"required_talker_capabilities"`
	RequiredListenerCapabilities uint16 `yaml:"required_listener_capabilities"`
}

// TimeoutsConfig overrides the protocol-mandated timing the state machines
// otherwise hardcode, for test harnesses and unusually lossy segments. A
// zero field leaves the machine's built-in default in effect.
type TimeoutsConfig struct {
	AECPCommand     time.Duration `yaml:"aecp_command"`
	// ADPPurgeTick is validated but not applied: ADP purging runs on the
	// controller's event-loop tick.
	ADPPurgeTick    time.Duration `yaml:"adp_purge_tick"`
	DiscoveryProbe  time.Duration `yaml:"discovery_probe"`
}

// EnumerationConfig tunes the breadth-first descriptor walk.
type EnumerationConfig struct {
	MaxInflightReadDescriptor int `yaml:"max_inflight_read_descriptor"`
}

// LoggingConfig configures the slog handler the controller logs through.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus HTTP exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks every sub-config in turn.
func (c *Config) Validate() error {
	if err := c.Interface.Validate(); err != nil {
		return fmt.Errorf("interface config: %w", err)
	}
	if err := c.Entity.Validate(); err != nil {
		return fmt.Errorf("entity config: %w", err)
	}
	if err := c.Timeouts.Validate(); err != nil {
		return fmt.Errorf("timeouts config: %w", err)
	}
	if err := c.Enumeration.Validate(); err != nil {
		return fmt.Errorf("enumeration config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

func (i *InterfaceConfig) Validate() error {
	switch i.Mode {
	case "udp_multicast":
		if i.GroupAddress == "" {
			return fmt.Errorf("group_address cannot be empty for udp_multicast mode")
		}
	case "loopback":
		// no required fields
	default:
		return fmt.Errorf("mode must be one of [udp_multicast, loopback], got %q", i.Mode)
	}
	if i.BufferSize < 0 {
		return fmt.Errorf("buffer_size cannot be negative, got %d", i.BufferSize)
	}
	return nil
}

func (e *EntityConfig) Validate() error {
	if e.EntityID == 0 {
		return fmt.Errorf("entity_id cannot be zero")
	}
	if e.EntityModelID == 0 {
		return fmt.Errorf("entity_model_id cannot be zero")
	}
	return nil
}

func (t *TimeoutsConfig) Validate() error {
	if t.AECPCommand < 0 || t.ADPPurgeTick < 0 || t.DiscoveryProbe < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

func (e *EnumerationConfig) Validate() error {
	if e.MaxInflightReadDescriptor < 0 {
		return fmt.Errorf("max_inflight_read_descriptor cannot be negative, got %d", e.MaxInflightReadDescriptor)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if l.Level != "" && !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if l.Format != "" && !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got %q", l.Format)
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && (m.Port < 1 || m.Port > 65535) {
		return fmt.Errorf("metrics port must be between 1 and 65535, got %d", m.Port)
	}
	return nil
}
