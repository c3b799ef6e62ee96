// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"os"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

type StartType int

const (
	// Tells tidewm to start a repl in parallel for interacting with it
	START_REPL = StartType(iota)
	// Tells tidewm to execute a specific command on startup
	START_SINGLE_COMMAND
	// Tells tidewm to start without any specific targets
	// Note: Good luck interacting with it :3
	START_NONE
)

// BorderConfig styles the frame drawn around windows
type BorderConfig struct {
	Thickness int `toml:"thickness"`
	Gap       int `toml:"gap"`
	// Colors as "#RRGGBB" strings
	Active   string `toml:"active"`
	Inactive string `toml:"inactive"`
}

// Offset is how far window content sits inside its tile
func (b BorderConfig) Offset() int {
	return b.Gap + b.Thickness
}

// OutputConfig overrides how one display gets lit up. Keyed by connector
// name ("DP-1") in the outputs table, displays without an entry run their
// preferred mode at scale 1
type OutputConfig struct {
	Width  int `toml:"width,omitempty"`
	Height int `toml:"height,omitempty"`
	// Refresh rate in full Hz
	RefreshHz int     `toml:"refresh,omitempty"`
	Scale     float64 `toml:"scale,omitempty"`
	// Top left corner in the global layout. Leaving both out places the
	// output right of the ones already there
	X        *int `toml:"x,omitempty"`
	Y        *int `toml:"y,omitempty"`
	Disabled bool `toml:"disabled,omitempty"`
}

type Config struct {
	// How many desktops to create at startup
	Workspaces int          `toml:"workspaces"`
	Border     BorderConfig `toml:"border"`
	// Commands spawned once the compositor is up
	Autostart []string `toml:"autostart,omitempty"`

	StartType StartType `toml:"start_type,omitempty"`
	// What command to execute on start. Only matters if StartType is set to START_SINGLE_COMMAND
	StartCommand *string `toml:"start_command,omitempty"`

	Outputs map[string]OutputConfig `toml:"outputs,omitempty"`
}

func Default() Config {
	return Config{
		Workspaces: 4,
		Border: BorderConfig{
			Thickness: 2,
			Gap:       2,
			Active:    "#8B4000",
			Inactive:  "#2A2A2A",
		},
	}
}

// Path is where the config file lives, usually ~/.config/tidewm/config.toml
func Path() (string, error) {
	return xdg.ConfigFile("tidewm/config.toml")
}

// Load reads the config file, creating it with defaults on first start.
// A broken file logs and falls back to the defaults, a window manager
// that refuses to come up over a typo helps nobody
func Load() Config {
	cfg := Default()
	path, err := Path()
	if err != nil {
		logrus.WithError(err).Warnln("No config directory, using defaults")
		return cfg
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logrus.WithField("path", path).Infoln("Writing default config")
		writeDefault(path, cfg)
		return cfg
	}
	if err != nil {
		logrus.WithError(err).Warnln("Failed to read config, using defaults")
		return cfg
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		logrus.WithError(err).WithField("path", path).Warnln("Broken config, using defaults")
		return Default()
	}
	return cfg.sanitized()
}

func writeDefault(path string, cfg Config) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		logrus.WithError(err).Warnln("Failed to encode default config")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logrus.WithError(err).WithField("path", path).Warnln("Failed to write default config")
	}
}

// sanitized clamps nonsense values instead of erroring on them
func (c Config) sanitized() Config {
	if c.Workspaces < 1 {
		c.Workspaces = 1
	}
	if c.Border.Thickness < 0 {
		c.Border.Thickness = 0
	}
	if c.Border.Gap < 0 {
		c.Border.Gap = 0
	}
	for name, out := range c.Outputs {
		if out.Scale < 0 {
			out.Scale = 0
			c.Outputs[name] = out
		}
	}
	return c
}
