// Copyright 2024 Google LLC
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

// Package config loads a validated cfg.Config from a cobra/pflag flag set,
// an optional YAML config file, and viper's environment-variable layer.
// Explicitly set flags override the environment, which overrides the YAML
// file; flags left unset only supply defaults.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/coursefs/blockfs/cfg"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load resolves a cfg.Config from the package-level viper instance: the
// caller must have already run cfg.BindFlags against its command's flag
// set before calling Load. configFile, if non-empty, is read as a YAML
// layer beneath the bound flags and environment.
func Load(configFile string) (*cfg.Config, error) {
	viper.SetEnvPrefix("BLOCKFS")
	viper.AutomaticEnv()

	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return nil, fmt.Errorf("config: resolve config file path: %w", err)
		}
		viper.SetConfigFile(abs)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var c cfg.Config
	// cfg.Config's yaml tags carry the same hyphenated names as the viper
	// keys BindFlags registers, so decode by those tags.
	useYAMLTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }
	if err := viper.Unmarshal(&c, viper.DecodeHook(cfg.DecodeHook()), useYAMLTags); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.ValidateConfig(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}
