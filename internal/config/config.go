package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

// DiscoveryConfig contains bridge discovery settings
type DiscoveryConfig struct {
	Timeout Duration             `yaml:"timeout"` // Overall bound for one discovery run
	Cloud   CloudDiscoveryConfig `yaml:"cloud"`
	SSDP    SSDPDiscoveryConfig  `yaml:"ssdp"`
	MDNS    MDNSDiscoveryConfig  `yaml:"mdns"`
}

// CloudDiscoveryConfig configures the Philips registry lookup
type CloudDiscoveryConfig struct {
	Enabled *bool    `yaml:"enabled"`
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// SSDPDiscoveryConfig configures the SSDP search
type SSDPDiscoveryConfig struct {
	Enabled *bool    `yaml:"enabled"`
	Address string   `yaml:"address"` // Multicast group, host:port
	Timeout Duration `yaml:"timeout"`
}

// MDNSDiscoveryConfig configures the mDNS browse
type MDNSDiscoveryConfig struct {
	Enabled   *bool    `yaml:"enabled"`
	Interface string   `yaml:"interface"` // Empty = all interfaces
	Timeout   Duration `yaml:"timeout"`
}

// PairingConfig contains link-button registration settings
type PairingConfig struct {
	DeviceName string   `yaml:"device_name"`
	Deadline   Duration `yaml:"deadline"`   // How long to wait for the link button
	Interval   Duration `yaml:"interval"`   // Pause between attempts
	ClientKey  bool     `yaml:"client_key"` // Also request an entertainment client key
}

// BridgeConfig contains the paired bridge used by resource commands
type BridgeConfig struct {
	Address      string   `yaml:"address"`
	Token        string   `yaml:"token"`
	Timeout      Duration `yaml:"timeout"` // HTTP timeout for Hue API requests
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Enabled *bool  `yaml:"enabled"` // Activity ledger (default: true)
	Path    string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors *bool  `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// IsEnabled returns whether cloud discovery is enabled (default: true)
func (c *CloudDiscoveryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled returns whether SSDP discovery is enabled (default: true)
func (c *SSDPDiscoveryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled returns whether mDNS discovery is enabled (default: true)
func (c *MDNSDiscoveryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled returns whether the activity ledger is kept (default: true)
func (c *DatabaseConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// UseColors returns whether console output is colored (default: true)
func (c *LogConfig) UseColors() bool {
	return c.Colors == nil || *c.Colors
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that a missing file yields the defaults
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse parses configuration YAML, expanding environment variables first
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./huelink.sqlite"
	}

	// Discovery defaults
	if cfg.Discovery.Timeout == 0 {
		cfg.Discovery.Timeout = Duration(5 * time.Second)
	}
	if cfg.Discovery.Cloud.URL == "" {
		cfg.Discovery.Cloud.URL = "https://discovery.meethue.com/"
	}
	if cfg.Discovery.Cloud.Timeout == 0 {
		cfg.Discovery.Cloud.Timeout = cfg.Discovery.Timeout
	}
	if cfg.Discovery.SSDP.Address == "" {
		cfg.Discovery.SSDP.Address = "239.255.255.250:1900"
	}
	if cfg.Discovery.SSDP.Timeout == 0 {
		cfg.Discovery.SSDP.Timeout = cfg.Discovery.Timeout
	}
	if cfg.Discovery.MDNS.Timeout == 0 {
		cfg.Discovery.MDNS.Timeout = cfg.Discovery.Timeout
	}

	// Pairing defaults (device name is filled in by the caller, it needs the hostname)
	if cfg.Pairing.Deadline == 0 {
		cfg.Pairing.Deadline = Duration(30 * time.Second)
	}
	if cfg.Pairing.Interval == 0 {
		cfg.Pairing.Interval = Duration(2 * time.Second)
	}

	// Bridge defaults
	if cfg.Bridge.Timeout == 0 {
		cfg.Bridge.Timeout = Duration(10 * time.Second)
	}
	if cfg.Bridge.RateLimitRPS == 0 {
		cfg.Bridge.RateLimitRPS = 10.0 // 10 requests per second
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
