// Package config handles configuration file loading and parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/binjuice/internal/event"
)

// Default configuration values.
const (
	DefaultVolume     = 100
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond
)

// Config represents the binjuice configuration.
type Config struct {
	Audio   AudioConfig       `toml:"audio" yaml:"audio"`
	Sounds  map[string]string `toml:"sounds" yaml:"sounds"`
	Metrics MetricsConfig     `toml:"metrics" yaml:"metrics"`

	// Files is the YAML key older configs used for the sound table.
	Files map[string]string `toml:"-" yaml:"files"`
}

// AudioConfig holds output device and playback settings.
type AudioConfig struct {
	Volume      int      `toml:"volume" yaml:"volume"`             // 0-100
	SampleRate  int      `toml:"sample_rate" yaml:"sample_rate"`   // Output device rate in Hz
	Buffer      Duration `toml:"buffer" yaml:"buffer"`             // Output device buffer length
	MinInterval Duration `toml:"min_interval" yaml:"min_interval"` // 0 = sounds may overlap freely
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Listen string `toml:"listen" yaml:"listen"` // e.g. "127.0.0.1:9464", empty = disabled
}

// DefaultConfig returns a Config with default values and no sounds.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Volume:     DefaultVolume,
			SampleRate: DefaultSampleRate,
			Buffer:     Duration(DefaultBuffer),
		},
		Sounds: make(map[string]string),
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "binjuice", "binjuice.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path. Unlike most settings files
// a missing config is an error: binjuice never runs on a partial setup.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Sounds == nil {
		cfg.Sounds = make(map[string]string)
	}
	for name, p := range cfg.Files {
		if _, ok := cfg.Sounds[name]; !ok {
			cfg.Sounds[name] = p
		}
	}
	cfg.Files = nil

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if b := c.Audio.Buffer.Duration(); b <= 0 || b > time.Second {
		return fmt.Errorf("buffer must be between 1ms and 1s, got %s", b)
	}
	if c.Audio.MinInterval < 0 {
		return fmt.Errorf("min_interval must not be negative, got %s", c.Audio.MinInterval.Duration())
	}

	_, err := c.SoundPaths()
	return err
}

// SoundPaths resolves the [sounds] table into event kinds with expanded paths.
// Entries with an empty path mean "no sound" and are omitted.
func (c *Config) SoundPaths() (map[event.Kind]string, error) {
	paths := make(map[event.Kind]string, len(c.Sounds))
	seen := make(map[event.Kind]bool, len(c.Sounds))
	for name, p := range c.Sounds {
		kind, err := event.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("sounds: %w", err)
		}
		if seen[kind] {
			return nil, fmt.Errorf("sounds: %s configured twice", kind)
		}
		seen[kind] = true
		if strings.TrimSpace(p) == "" {
			continue
		}
		paths[kind] = expandPath(p)
	}
	return paths, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
