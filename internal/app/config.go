package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultGPIOChip   = "gpiochip0"
	DefaultGPIOLine   = 4
	DefaultLogDir     = "./logs"
	DefaultMaxLogDays = 30
)

// Config holds application configuration. Cobra flags populate it
// directly; a YAML file loaded via --config can supply the same fields
// for a headless install, with flags taking precedence over anything the
// file sets.
type Config struct {
	GPIOChip     string `yaml:"gpio_chip"`
	GPIOLine     int    `yaml:"gpio_line"`
	Invert       bool   `yaml:"invert"`
	LogDir       string `yaml:"log_dir"`
	LogRotateUTC bool   `yaml:"log_rotate_utc"`
	MaxLogDays   int    `yaml:"max_log_days"`
	Verbose      bool   `yaml:"verbose"`
	ShowVersion  bool   `yaml:"-"`
	ConfigPath   string `yaml:"-"`
}

// LoadConfig reads a YAML config file into cfg, overwriting every field
// the file sets. cmd/dcf77 calls it after flag parsing, on a copy of the
// config, and keeps the value of every flag set explicitly on the command
// line.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}
