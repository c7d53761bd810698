// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "claimsd.config"

const (
	DefaultShutdownTimeout  = "30s"
	DefaultPayoutInterval   = "30s"
	DefaultPayoutRetention  = "720h"
	DefaultPayoutMaxRetries = 5
	DefaultBatchLimit       = 100
	DefaultSubmsgLimit      = 30
	DefaultPageLimit        = 100

	envPrefix = "claimsd"
)

var ErrInvalidConfig = errors.New("invalid config")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config *Config `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath     string   `yaml:"databasePath"     split_words:"true"`
	BindAddr         string   `yaml:"bindAddr"         split_words:"true"`
	AddressPrefix    string   `yaml:"addressPrefix"    split_words:"true"`
	ShutdownTimeout  string   `yaml:"shutdownTimeout"  split_words:"true"`
	PayoutInterval   string   `yaml:"payoutInterval"   split_words:"true"`
	PayoutRetention  string   `yaml:"payoutRetention"  split_words:"true"`
	CorsOrigins      []string `yaml:"corsOrigins"      split_words:"true"`
	BadgerCacheSize  uint64   `yaml:"badgerCacheSize"  split_words:"true"`
	PayoutMaxRetries uint64   `yaml:"payoutMaxRetries" split_words:"true"`
	ApiPort          uint     `yaml:"apiPort"          split_words:"true"`
	MetricsPort      uint     `yaml:"metricsPort"      split_words:"true"`
	BatchLimit       int      `yaml:"batchLimit"       split_words:"true"`
	SubmsgLimit      int      `yaml:"submsgLimit"      split_words:"true"`
	PageLimit        int      `yaml:"pageLimit"        split_words:"true"`
	Tracing          bool     `yaml:"tracing"`
	TracingStdout    bool     `yaml:"tracingStdout"    split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:     ".claimsd",
		BindAddr:         "0.0.0.0",
		AddressPrefix:    "",
		ShutdownTimeout:  DefaultShutdownTimeout,
		PayoutInterval:   DefaultPayoutInterval,
		PayoutRetention:  DefaultPayoutRetention,
		CorsOrigins:      []string{"*"},
		BadgerCacheSize:  1073741824,
		PayoutMaxRetries: DefaultPayoutMaxRetries,
		ApiPort:          8080,
		MetricsPort:      12799,
		BatchLimit:       DefaultBatchLimit,
		SubmsgLimit:      DefaultSubmsgLimit,
		PageLimit:        DefaultPageLimit,
	}
}

var globalConfig = defaultConfig()

// LoadConfig applies, in order, the defaults, the YAML config file and the
// CLAIMSD_* environment variables, then validates the result. An empty
// configFile falls back to ~/.claimsd/claimsd.yaml and then
// /etc/claimsd/claimsd.yaml when they exist.
func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.claimsd/claimsd.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".claimsd", "claimsd.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/claimsd/claimsd.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/claimsd/claimsd.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			err = yaml.Unmarshal(configBytes, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process(envPrefix, globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks limits and duration strings
func (c *Config) Validate() error {
	if c.BatchLimit <= 0 {
		return fmt.Errorf("%w: batchLimit must be positive", ErrInvalidConfig)
	}
	if c.SubmsgLimit <= 0 {
		return fmt.Errorf("%w: submsgLimit must be positive", ErrInvalidConfig)
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("%w: pageLimit must be positive", ErrInvalidConfig)
	}
	if c.ApiPort > 65535 || c.MetricsPort > 65535 {
		return fmt.Errorf("%w: port out of range", ErrInvalidConfig)
	}
	for name, value := range map[string]string{
		"shutdownTimeout": c.ShutdownTimeout,
		"payoutInterval":  c.PayoutInterval,
		"payoutRetention": c.PayoutRetention,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout, or the default
// when it cannot be parsed
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, DefaultShutdownTimeout)
}

func (c *Config) PayoutIntervalDuration() time.Duration {
	return parseDurationOr(c.PayoutInterval, DefaultPayoutInterval)
}

func (c *Config) PayoutRetentionDuration() time.Duration {
	return parseDurationOr(c.PayoutRetention, DefaultPayoutRetention)
}

func parseDurationOr(value string, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
