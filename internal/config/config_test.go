package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid configuration",
			config: Config{
				Interface: InterfaceConfig{
					Mode:         "udp_multicast",
					GroupAddress: "239.1.2.3:17221",
					BufferSize:   65536,
				},
				Entity: EntityConfig{
					EntityID:      0x001B921000000001,
					EntityModelID: 0x001B92100000A001,
				},
				Enumeration: EnumerationConfig{
					MaxInflightReadDescriptor: 4,
				},
				Logging: LoggingConfig{
					Level:  "info",
					Format: "json",
					Output: "stdout",
				},
				Metrics: MetricsConfig{
					Enabled: false,
				},
			},
			expectError: false,
		},
		{
			name: "invalid interface mode",
			config: Config{
				Interface: InterfaceConfig{Mode: "raw_ethernet"},
				Entity:    EntityConfig{EntityID: 1, EntityModelID: 1},
				Logging:   LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "mode must be one of",
		},
		{
			name: "udp_multicast without group address",
			config: Config{
				Interface: InterfaceConfig{Mode: "udp_multicast"},
				Entity:    EntityConfig{EntityID: 1, EntityModelID: 1},
				Logging:   LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "group_address cannot be empty",
		},
		{
			name: "zero entity id",
			config: Config{
				Interface: InterfaceConfig{Mode: "loopback"},
				Entity:    EntityConfig{EntityID: 0, EntityModelID: 1},
				Logging:   LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "entity_id cannot be zero",
		},
		{
			name: "zero entity model id",
			config: Config{
				Interface: InterfaceConfig{Mode: "loopback"},
				Entity:    EntityConfig{EntityID: 1, EntityModelID: 0},
				Logging:   LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "entity_model_id cannot be zero",
		},
		{
			name: "negative max inflight",
			config: Config{
				Interface:   InterfaceConfig{Mode: "loopback"},
				Entity:      EntityConfig{EntityID: 1, EntityModelID: 1},
				Enumeration: EnumerationConfig{MaxInflightReadDescriptor: -1},
				Logging:     LoggingConfig{Level: "info", Format: "json"},
			},
			expectError: true,
			errorMsg:    "max_inflight_read_descriptor cannot be negative",
		},
		{
			name: "invalid log level",
			config: Config{
				Interface: InterfaceConfig{Mode: "loopback"},
				Entity:    EntityConfig{EntityID: 1, EntityModelID: 1},
				Logging:   LoggingConfig{Level: "trace", Format: "json"},
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name: "metrics enabled with invalid port",
			config: Config{
				Interface: InterfaceConfig{Mode: "loopback"},
				Entity:    EntityConfig{EntityID: 1, EntityModelID: 1},
				Logging:   LoggingConfig{Level: "info", Format: "json"},
				Metrics:   MetricsConfig{Enabled: true, Port: 0},
			},
			expectError: true,
			errorMsg:    "metrics port must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error to contain %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
interface:
  mode: udp_multicast
  group_address: "239.1.2.3:17221"
  buffer_size: 65536
entity:
  entity_id: 123456789
  entity_model_id: 987654321
enumeration:
  max_inflight_read_descriptor: 4
logging:
  level: "info"
  format: "json"
  output: "stdout"
metrics:
  enabled: false
`,
			expectError: false,
		},
		{
			name: "YAML value of the wrong type",
			configYAML: `
interface:
  mode: udp_multicast
  buffer_size: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "fails validation after parsing",
			configYAML: `
interface:
  mode: loopback
entity:
  entity_id: 0
  entity_model_id: 1
logging:
  level: info
  format: json
`,
			expectError: true,
			errorMsg:    "entity_id cannot be zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("failed to create test config file: %v", err)
			}

			cfg, err := Load(configPath)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error to contain %q, got %q", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				} else if cfg == nil {
					t.Errorf("expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("expected error about reading file, got: %v", err)
	}
}

func TestInterfaceConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config InterfaceConfig
		valid  bool
	}{
		{name: "valid udp_multicast", config: InterfaceConfig{Mode: "udp_multicast", GroupAddress: "239.1.2.3:17221"}, valid: true},
		{name: "valid loopback", config: InterfaceConfig{Mode: "loopback"}, valid: true},
		{name: "unknown mode", config: InterfaceConfig{Mode: "raw_ethernet"}, valid: false},
		{name: "udp_multicast missing group address", config: InterfaceConfig{Mode: "udp_multicast"}, valid: false},
		{name: "negative buffer size", config: InterfaceConfig{Mode: "loopback", BufferSize: -1}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected invalid config but got no error")
			}
		})
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{name: "valid json to stdout", config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, valid: true},
		{name: "valid text to stderr", config: LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, valid: true},
		{name: "empty level and format default to valid", config: LoggingConfig{}, valid: true},
		{name: "invalid log level", config: LoggingConfig{Level: "trace", Format: "json"}, valid: false},
		{name: "invalid format", config: LoggingConfig{Level: "info", Format: "xml"}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected invalid config but got no error")
			}
		})
	}
}

func TestMetricsConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config MetricsConfig
		valid  bool
	}{
		{name: "disabled ignores port", config: MetricsConfig{Enabled: false, Port: 0}, valid: true},
		{name: "enabled with valid port", config: MetricsConfig{Enabled: true, Port: 9090}, valid: true},
		{name: "enabled with zero port", config: MetricsConfig{Enabled: true, Port: 0}, valid: false},
		{name: "enabled with out-of-range port", config: MetricsConfig{Enabled: true, Port: 70000}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected invalid config but got no error")
			}
		})
	}
}

func contains(s, substr string) bool {
	return len(substr) == 0 || findSubstring(s, substr)
}

func findSubstring(s, substr string) bool {
	if len(substr) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
