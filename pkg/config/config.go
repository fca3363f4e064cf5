// ModPilot Core
// Copyright (c) 2026 The ModPilot Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ModPilot Core.
//
// ModPilot Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ModPilot Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ModPilot Core.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ModPilotProject/modpilot-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	AppName       = "modpilot"
	CfgEnv        = "MODPILOT_CFG"
	CfgFile       = "config.toml"
	LogFile       = "core.log"
)

// AppVersion is replaced at build time via ldflags.
var AppVersion = "DEVELOPMENT"

type Values struct {
	Game         Game    `toml:"game,omitempty"`
	Monitor      Monitor `toml:"monitor,omitempty"`
	API          API     `toml:"api,omitempty"`
	Tools        []Tool  `toml:"tools,omitempty"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

// Game describes the active game the monitor watches. The game is always an
// exclusive target and accepts detached matches, since players routinely
// launch it outside the manager.
type Game struct {
	Name    string `toml:"name"`
	ExePath string `toml:"exe_path"`
}

// Tool is one discovered auxiliary executable of the active game.
type Tool struct {
	ID        string `toml:"id"`
	ExePath   string `toml:"exe_path"`
	Exclusive bool   `toml:"exclusive"`
	Detached  bool   `toml:"detached"`
}

// Monitor holds the polling cadence. The focused and unfocused intervals are
// independent values, not a fixed ratio.
type Monitor struct {
	FocusedPollMs   int `toml:"focused_poll_ms"`
	UnfocusedPollMs int `toml:"unfocused_poll_ms"`
}

type API struct {
	Port int `toml:"port"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Monitor: Monitor{
		FocusedPollMs:   2000,
		UnfocusedPollMs: 5000,
	},
	API: API{
		Port: 7497,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top, so fields not
	// present in the file retain their default values.
	newVals := c.defaults
	if err := toml.Unmarshal(data, &newVals); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Path returns the config file location backing this instance.
func (c *Instance) Path() string {
	return c.cfgPath
}
