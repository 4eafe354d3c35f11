package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// maxLocalName is the longest complete local name that fits a 31-byte scan response.
const maxLocalName = 29

// Config holds application configuration
type Config struct {
	LogLevel         logrus.Level  `yaml:"log_level"`
	DeviceID         int           `yaml:"device_id" default:"0"`
	LocalName        string        `yaml:"local_name" default:"gattd"`
	AdvertiseTimeout time.Duration `yaml:"advertise_timeout" default:"0s"`
	NotifyQueueSize  uint32        `yaml:"notify_queue_size" default:"16"`
	ProfilePath      string        `yaml:"profile"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{LogLevel: logrus.InfoLevel}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the BLE stack would reject later.
func (c *Config) Validate() error {
	var errs []error
	if c.DeviceID < 0 {
		errs = append(errs, fmt.Errorf("device_id must not be negative, got %d", c.DeviceID))
	}
	if len(c.LocalName) > maxLocalName {
		errs = append(errs, fmt.Errorf("local_name must be at most %d bytes, got %d", maxLocalName, len(c.LocalName)))
	}
	if c.AdvertiseTimeout < 0 {
		errs = append(errs, fmt.Errorf("advertise_timeout must not be negative, got %s", c.AdvertiseTimeout))
	}
	if c.NotifyQueueSize == 0 {
		errs = append(errs, errors.New("notify_queue_size must be positive"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
