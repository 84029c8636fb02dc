// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the toolchain's small YAML configuration file:
// module enablement by name (applied to every target's catalogue), a
// target list, a heuristic name and a log level (spec §1's ambient
// configuration concern). It holds no heuristic weights. It follows
// the teacher's config-
// decoding idiom of unmarshaling YAML through JSON-tagged structs via
// sigs.k8s.io/yaml rather than a YAML-native struct-tag package.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Config is the toolchain's top-level configuration document.
type Config struct {
	// Targets lists target names (x86, tofino, bmv2). No command reads
	// it: cmd/synapse takes its single target from the --target flag.
	Targets []string `json:"targets,omitempty"`

	// Heuristic names a search heuristic. No command reads it:
	// cmd/synapse always searches with synapse.P4AbsorptionHeuristic.
	Heuristic string `json:"heuristic,omitempty"`

	// ModuleEnablement disables individual catalogue entries by name,
	// e.g. to force a module normally preferred (like CachedTableLookup)
	// out of consideration for a given run.
	ModuleEnablement map[string]bool `json:"moduleEnablement,omitempty"`

	// LogLevel is one of "debug", "log", "warning", "error" (spec §6's
	// "a log-level variable may control diagnostic verbosity").
	LogLevel string `json:"logLevel,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Targets:   []string{"x86", "tofino", "bmv2"},
		Heuristic: "p4-absorption",
		LogLevel:  "log",
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ModuleEnabled reports whether name is enabled under c (absent from
// ModuleEnablement defaults to enabled).
func (c *Config) ModuleEnabled(name string) bool {
	enabled, explicit := c.ModuleEnablement[name]
	return !explicit || enabled
}
