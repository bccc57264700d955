/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import (
	"fmt"
	"time"

	"github.com/acronis/go-throttleq/config"
)

const cfgDefaultKeyPrefix = "throttleQueue"

const (
	cfgKeyLabel      = "label"
	cfgKeyInterval   = "interval"
	cfgKeyMutability = "mutability"
	cfgKeyMonitor    = "monitor"
	cfgKeyWorkers    = "workers"
)

var (
	availableMutabilities = []string{MutabilityAll.String(), MutabilityDefaultOnly.String(), MutabilityNone.String()}
	availableMonitors     = []string{MonitorConcurrent.String(), MonitorSerial.String()}
)

// Config represents a set of configuration parameters for Queue.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Label      string              `mapstructure:"label" yaml:"label" json:"label"`
	Interval   config.TimeDuration `mapstructure:"interval" yaml:"interval" json:"interval"`
	Mutability Mutability          `mapstructure:"mutability" yaml:"mutability" json:"mutability"`
	Monitor    Monitor             `mapstructure:"monitor" yaml:"monitor" json:"monitor"`

	// Workers is the maximum number of goroutines running work items concurrently.
	// Matters only for the concurrent monitor, 0 means the number of CPUs.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Interval = config.TimeDuration(DefaultInterval)
	cfg.Mutability = DefaultMutability
	cfg.Monitor = DefaultMonitor
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Queue in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyInterval, DefaultInterval.String())
	dp.SetDefault(cfgKeyMutability, DefaultMutability.String())
	dp.SetDefault(cfgKeyMonitor, DefaultMonitor.String())
	dp.SetDefault(cfgKeyWorkers, 0)
}

// Set sets Queue configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Label, err = dp.GetString(cfgKeyLabel); err != nil {
		return err
	}

	var interval time.Duration
	if interval, err = dp.GetDuration(cfgKeyInterval); err != nil {
		return err
	}
	if interval < 0 {
		return dp.WrapKeyErr(cfgKeyInterval, fmt.Errorf("%w: cannot be negative", ErrInvalidConfiguration))
	}
	c.Interval = config.TimeDuration(interval)

	var mutabilityStr string
	if mutabilityStr, err = dp.GetStringFromSet(cfgKeyMutability, availableMutabilities, false); err != nil {
		return err
	}
	if c.Mutability, err = ParseMutability(mutabilityStr); err != nil {
		return dp.WrapKeyErr(cfgKeyMutability, err)
	}

	var monitorStr string
	if monitorStr, err = dp.GetStringFromSet(cfgKeyMonitor, availableMonitors, false); err != nil {
		return err
	}
	if c.Monitor, err = ParseMonitor(monitorStr); err != nil {
		return dp.WrapKeyErr(cfgKeyMonitor, err)
	}

	if c.Workers, err = dp.GetInt(cfgKeyWorkers); err != nil {
		return err
	}
	if c.Workers < 0 {
		return dp.WrapKeyErr(cfgKeyWorkers, fmt.Errorf("%w: should be >= 0", ErrInvalidConfiguration))
	}

	return nil
}
