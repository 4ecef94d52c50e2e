// Package config loads and saves the gamepad teleoperation settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
	"github.com/gwillem/so101-gamepad/pkg/teleop"
)

const DefaultFile = "lerobot-gamepad.json"

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Config holds everything needed to start a teleoperation session.
type Config struct {
	Follower robot.ArmConfig `json:"follower"`
	Gamepad  gamepad.Config  `json:"gamepad"`
	Control  teleop.Settings `json:"control"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Follower: robot.ArmConfig{Port: robot.DefaultPort},
		Gamepad:  gamepad.DefaultConfig(),
		Control:  teleop.DefaultSettings(),
	}
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(DefaultFile)
}

// LoadFrom loads configuration from a specific file. Fields missing from the
// file keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when it does not exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := LoadFrom(path)
	if errors.Is(err, ErrNotFound) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Validate checks the parts of the config that can be checked offline.
func (c *Config) Validate() error {
	if c.Follower.Port == "" {
		return errors.New("follower port is empty")
	}
	if c.Gamepad.Index < 0 || c.Gamepad.Index >= gamepad.MaxIndex {
		return fmt.Errorf("gamepad index %d outside 0..%d", c.Gamepad.Index, gamepad.MaxIndex-1)
	}
	if err := c.Gamepad.Layout.Check(); err != nil {
		return fmt.Errorf("gamepad layout: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	return nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if the config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
