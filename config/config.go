// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the YAML configuration of the Hush daemons. Unset
// fields fall back to the defaults in the def package.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/hushcomm/hush/def"
)

// The selectable session store backends.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreKeyDB  = "keydb"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "24h" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Rotation holds the session key rotation tunables.
type Rotation struct {
	MessageCountThreshold uint64   `yaml:"messageCountThreshold"`
	SessionKeyExpiry      Duration `yaml:"sessionKeyExpiry"`
	KeyTransitionPeriod   Duration `yaml:"keyTransitionPeriod"`
	LeaseTTL              Duration `yaml:"leaseTTL"`
}

// Relay holds the relay daemon settings.
type Relay struct {
	QueueCapacity int `yaml:"queueCapacity"`
}

// Config is the configuration of the Hush daemons.
type Config struct {
	// Listen is the address the relay daemon binds.
	Listen string `yaml:"listen"`
	// DataDir is where durable stores keep their files.
	DataDir string `yaml:"dataDir"`
	// Store selects the session store backend.
	Store string `yaml:"store"`
	// LogLevel is a zerolog level name ("debug", "info", ...).
	LogLevel string `yaml:"logLevel"`

	Rotation Rotation `yaml:"rotation"`
	Relay    Relay    `yaml:"relay"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := new(Config)
	c.applyDefaults()
	return c
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	c := new(Config)
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:4777"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Rotation.MessageCountThreshold == 0 {
		c.Rotation.MessageCountThreshold = def.MessageCountThreshold
	}
	if c.Rotation.SessionKeyExpiry == 0 {
		c.Rotation.SessionKeyExpiry = Duration(def.SessionKeyExpiry)
	}
	if c.Rotation.KeyTransitionPeriod == 0 {
		c.Rotation.KeyTransitionPeriod = Duration(def.KeyTransitionPeriod)
	}
	if c.Rotation.LeaseTTL == 0 {
		c.Rotation.LeaseTTL = Duration(def.LeaseTTL)
	}
	if c.Relay.QueueCapacity == 0 {
		c.Relay.QueueCapacity = def.MaxQueuedEnvelopes
	}
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory, StoreBadger, StoreKeyDB:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store)
	}
	if c.Rotation.KeyTransitionPeriod.Std() >= c.Rotation.SessionKeyExpiry.Std() {
		return fmt.Errorf("config: key transition period %s must be below session key expiry %s",
			c.Rotation.KeyTransitionPeriod.Std(), c.Rotation.SessionKeyExpiry.Std())
	}
	return nil
}
