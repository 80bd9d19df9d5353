// Package settings manages persistent user settings for the netfleet CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultWorkers        = 100
	DefaultCommandTimeout = 60 * time.Second
	DefaultLogTimeout     = 10 * time.Minute
	DefaultPhysicalPrefix = "Eth"
)

// Settings holds persistent user preferences
type Settings struct {
	// Inventory is the YAML inventory file used when --inventory is not given.
	// "cvp" selects the CloudVision inventory instead.
	Inventory string `json:"inventory,omitempty"`

	// Workers caps the number of hosts processed concurrently
	Workers int `json:"workers,omitempty"`

	// OutputDir is where per-host artifacts (.log, .cfg, .json) are written
	OutputDir string `json:"output_dir,omitempty"`

	// Username is the device login used when NETFLEET_USER is unset
	Username string `json:"username,omitempty"`

	// CommandTimeoutSec bounds a single device call
	CommandTimeoutSec int `json:"command_timeout_sec,omitempty"`

	// LogTimeoutSec bounds log collection, which can be slow on busy devices
	LogTimeoutSec int `json:"log_timeout_sec,omitempty"`

	// PhysicalPrefix is the interface name prefix treated as a physical port
	PhysicalPrefix string `json:"physical_prefix,omitempty"`

	// KnownHosts is an OpenSSH known_hosts file used to verify device keys
	KnownHosts string `json:"known_hosts,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netfleet_settings.json"
	}
	return filepath.Join(home, ".netfleet", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetWorkers returns the worker cap (with fallback)
func (s *Settings) GetWorkers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

// GetOutputDir returns the artifact directory (with fallback)
func (s *Settings) GetOutputDir() string {
	if s.OutputDir != "" {
		return s.OutputDir
	}
	return "."
}

// GetCommandTimeout returns the per-call device timeout (with fallback)
func (s *Settings) GetCommandTimeout() time.Duration {
	if s.CommandTimeoutSec > 0 {
		return time.Duration(s.CommandTimeoutSec) * time.Second
	}
	return DefaultCommandTimeout
}

// GetLogTimeout returns the log collection timeout (with fallback)
func (s *Settings) GetLogTimeout() time.Duration {
	if s.LogTimeoutSec > 0 {
		return time.Duration(s.LogTimeoutSec) * time.Second
	}
	return DefaultLogTimeout
}

// GetPhysicalPrefix returns the physical interface prefix (with fallback)
func (s *Settings) GetPhysicalPrefix() string {
	if s.PhysicalPrefix != "" {
		return s.PhysicalPrefix
	}
	return DefaultPhysicalPrefix
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
