package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/fptrap/fptrap/pkg/logflags"
)

const (
	configDir  string = "fptrap"
	configFile string = "config.yml"
)

// DefaultTimeout bounds how long a supervised child probe may run.
const DefaultTimeout = 30 * time.Second

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Isolate runs every probe in a child process.
	Isolate bool `yaml:"isolate"`
	// Timeout bounds each child process, as a Go duration string.
	Timeout string `yaml:"timeout,omitempty"`
	// Wrapper is a command line child probes are run under, for example
	// "qemu-aarch64 -cpu max".
	Wrapper string `yaml:"wrapper,omitempty"`
	// Traps lists the traps to enable; empty means overflow, divbyzero
	// and invalid.
	Traps []string `yaml:"traps,omitempty"`
	// MetricsFile, if set, is where compare writes a Prometheus textfile.
	MetricsFile string `yaml:"metrics-file,omitempty"`
	// Color controls colored output: "auto", "always" or "never".
	Color string `yaml:"color,omitempty"`
}

// ChildTimeout returns the parsed Timeout, or DefaultTimeout.
func (c *Config) ChildTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %v", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be positive", c.Timeout)
	}
	return d, nil
}

// LoadConfig attempts to populate a Config object from the config.yml file.
// A missing file is not an error: the zero Config is returned and nothing
// is created on disk.
func LoadConfig() (*Config, error) {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return &Config{}, nil
	}
	return LoadConfigFile(fullConfigFile)
}

// LoadConfigFile reads the configuration from path.
func LoadConfigFile(path string) (*Config, error) {
	log := logflags.ConfigLogger()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("no config file at %s", path)
			return &Config{}, nil
		}
		return &Config{}, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.UnmarshalStrict(data, &c)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to decode config file %s: %v", path, err)
	}
	if _, err := c.ChildTimeout(); err != nil {
		return &Config{}, fmt.Errorf("config file %s: %v", path, err)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return &Config{}, fmt.Errorf("config file %s: invalid color %q", path, c.Color)
	}
	log.Debugf("loaded %s", path)
	return &c, nil
}

// SaveConfig will marshal and save the config struct to path.
func SaveConfig(conf *Config, path string) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}

// WriteDefaultConfig creates the default config file, with every option
// commented out, and returns its path. An existing file is left alone.
func WriteDefaultConfig() (string, error) {
	if err := createConfigPath(); err != nil {
		return "", fmt.Errorf("could not create config directory: %v", err)
	}
	path, err := GetConfigFilePath(configFile)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("unable to create config file: %v", err)
	}
	defer f.Close()
	if err := writeDefaultConfig(f); err != nil {
		return "", fmt.Errorf("unable to write default configuration: %v", err)
	}
	return path, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for fptrap.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Run every probe in a child process and report how it terminated.
# isolate: true

# Maximum time a child probe may run.
# timeout: 30s

# Command line child probes are run under, for example an emulator.
# wrapper: "qemu-aarch64 -cpu max"

# Traps to enable: overflow, divbyzero, invalid, underflow, inexact, denormal.
# traps: [overflow, divbyzero, invalid]

# Prometheus textfile written by 'fptrap compare'.
# metrics-file: /var/lib/node_exporter/textfile/fptrap.prom

# Colored output: auto, always or never.
# color: auto
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, configDir, file), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configDir, file), nil
}
