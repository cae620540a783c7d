package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the monitor. It can be
// populated from CLI flags, config files, or both. Files may be JSON
// or YAML, picked by extension.
type Config struct {
	// Comment field for user documentation (ignored by the application)
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// Polling configuration
	MonitoredHost string `json:"monitored_host,omitempty" yaml:"monitored_host,omitempty"`
	PollInterval  string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"` // e.g. "5s"
	FetchTimeout  string `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"` // e.g. "5s"

	// Retention: latency samples per action, snapshots per action, and
	// dedup registry entries. RegistrySize < 0 means unbounded.
	HistorySize    int `json:"history_size,omitempty" yaml:"history_size,omitempty"`
	SnapshotSeries int `json:"snapshot_series_size,omitempty" yaml:"snapshot_series_size,omitempty"`
	RegistrySize   int `json:"registry_size,omitempty" yaml:"registry_size,omitempty"`

	// Dashboard HTTP server
	HTTPHost string `json:"http_host,omitempty" yaml:"http_host,omitempty"`
	HTTPPort int    `json:"http_port,omitempty" yaml:"http_port,omitempty"`

	// MCP stdio server (for agent access to the aggregate)
	MCP bool `json:"mcp,omitempty" yaml:"mcp,omitempty"`

	// Optional OTLP gRPC collector to forward call trees to
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`

	// Logging configuration
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig returns a Config with sensible default values:
// localhost:20000 polled every 5 seconds, 10,000 latency samples and
// 1,000 snapshots retained per action, dashboard on 127.0.0.1:5000.
func DefaultConfig() *Config {
	return &Config{
		MonitoredHost:  "localhost:20000",
		PollInterval:   "5s",
		FetchTimeout:   "5s",
		HistorySize:    10_000,
		SnapshotSeries: 1_000,
		RegistrySize:   100_000,
		HTTPHost:       "127.0.0.1",
		HTTPPort:       5000,
		MCP:            false,
		OTLPEndpoint:   "",
		Verbose:        false,
	}
}

// PollIntervalDuration parses PollInterval, falling back to 5s when
// unset or invalid.
func (c *Config) PollIntervalDuration() time.Duration {
	return parseDurationOr(c.PollInterval, 5*time.Second)
}

// FetchTimeoutDuration parses FetchTimeout, falling back to 5s when
// unset or invalid.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return parseDurationOr(c.FetchTimeout, 5*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadConfigFromFile loads configuration from a JSON or YAML file at
// the given path. The format is chosen by extension; anything that is
// not .yaml/.yml is parsed as JSON.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return &config, nil
}

// FindProjectConfig searches for a .reactmon.json config file. It
// starts in the current directory and walks up looking for the file,
// stopping when it finds a .git directory (project root) or reaches
// the filesystem root.
func FindProjectConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		configPath := filepath.Join(dir, ".reactmon.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// Repo root: stop here even if no config.
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// GlobalConfigPath returns the path to the global config file,
// ~/.config/reactmon/config.json.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "reactmon", "config.json")
}

// MergeConfigs merges two configs with the overlay taking precedence.
// Fields in overlay override corresponding fields in base. Returns a
// new Config with the merged values.
func MergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.MonitoredHost != "" {
		merged.MonitoredHost = overlay.MonitoredHost
	}
	if overlay.PollInterval != "" {
		merged.PollInterval = overlay.PollInterval
	}
	if overlay.FetchTimeout != "" {
		merged.FetchTimeout = overlay.FetchTimeout
	}

	if overlay.HistorySize > 0 {
		merged.HistorySize = overlay.HistorySize
	}
	if overlay.SnapshotSeries > 0 {
		merged.SnapshotSeries = overlay.SnapshotSeries
	}
	// Negative means unbounded, so zero is the only "unset" value.
	if overlay.RegistrySize != 0 {
		merged.RegistrySize = overlay.RegistrySize
	}

	if overlay.HTTPHost != "" {
		merged.HTTPHost = overlay.HTTPHost
	}
	if overlay.HTTPPort > 0 {
		merged.HTTPPort = overlay.HTTPPort
	}

	if overlay.MCP {
		merged.MCP = overlay.MCP
	}
	if overlay.OTLPEndpoint != "" {
		merged.OTLPEndpoint = overlay.OTLPEndpoint
	}
	if overlay.Verbose {
		merged.Verbose = overlay.Verbose
	}

	return &merged
}

// LoadEffectiveConfig loads the effective configuration by merging:
// 1. Built-in defaults
// 2. Global config file (if exists)
// 3. Project config file (if exists and no explicit path)
// 4. Explicit config file (if specified via configPath)
// Later sources override earlier ones.
func LoadEffectiveConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Global config is optional; ignore load errors.
	if globalPath := GlobalConfigPath(); globalPath != "" {
		if globalCfg, err := LoadConfigFromFile(globalPath); err == nil {
			config = MergeConfigs(config, globalCfg)
		}
	}

	if configPath == "" {
		if projectPath, err := FindProjectConfig(); err == nil {
			projectCfg, err := LoadConfigFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config: %w", err)
			}
			config = MergeConfigs(config, projectCfg)
		}
	} else {
		explicitCfg, err := LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = MergeConfigs(config, explicitCfg)
	}

	return config, nil
}
