// Copyright 2024 Google Inc. All Rights Reserved.
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

// Package cfg holds the mount-time configuration surface for blockfs: the
// backing store, cache sizing, and ambient logging/metrics knobs. It is a
// plain Config struct plus a BindFlags/ValidateConfig pair, hand-maintained
// rather than generated since blockfs's flag surface is small.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved, validated mount-time configuration.
type Config struct {
	AppName string `yaml:"app-name"`

	Volume VolumeConfig `yaml:"volume"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// VolumeConfig describes the on-disk volume blockfs mounts.
type VolumeConfig struct {
	// BackingFile is the path to the file backing the block device. Created
	// (and preallocated to SectorCount sectors) if it does not yet exist.
	BackingFile ResolvedPath `yaml:"backing-file"`

	// SectorCount is the number of 512-byte sectors the backing file holds.
	SectorCount int64 `yaml:"sector-count"`

	// CacheMaxSectors bounds the buffer cache's live entry count. Defaults to 64.
	CacheMaxSectors int `yaml:"cache-max-sectors"`

	// RootDirHint is the initial directory-entry capacity hint passed to
	// dirent.Reserve for the root directory at format time.
	RootDirHint int `yaml:"root-dir-hint"`

	// Format reinitializes the volume (free-map + root directory) on mount,
	// discarding any existing contents.
	Format bool `yaml:"format"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`
	Format   LogFormat   `yaml:"format"`
}

// MetricsConfig controls internal/metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// BindFlags registers the pflag.FlagSet entries cmd uses and binds each to
// its viper key, one flag at a time.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.StringP("app-name", "", "blockfsctl", "Application name recorded in logs.")
	if err := viper.BindPFlag("app-name", flagSet.Lookup("app-name")); err != nil {
		return err
	}

	flagSet.StringP("backing-file", "", "", "Path to the file backing the block device.")
	if err := viper.BindPFlag("volume.backing-file", flagSet.Lookup("backing-file")); err != nil {
		return err
	}

	flagSet.Int64P("sector-count", "", DefaultSectorCount, "Number of 512-byte sectors in the volume.")
	if err := viper.BindPFlag("volume.sector-count", flagSet.Lookup("sector-count")); err != nil {
		return err
	}

	flagSet.IntP("cache-max-sectors", "", DefaultCacheMaxSectors, "Maximum live buffer-cache entries.")
	if err := viper.BindPFlag("volume.cache-max-sectors", flagSet.Lookup("cache-max-sectors")); err != nil {
		return err
	}

	flagSet.IntP("root-dir-hint", "", DefaultRootDirHint, "Initial root-directory entry capacity hint.")
	if err := viper.BindPFlag("volume.root-dir-hint", flagSet.Lookup("root-dir-hint")); err != nil {
		return err
	}

	flagSet.BoolP("format", "", false, "Reinitialize the volume on mount, discarding existing contents.")
	if err := viper.BindPFlag("volume.format", flagSet.Lookup("format")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(SeverityInfo), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", string(FormatText), "Log encoding: text or json.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.BoolP("metrics", "", false, "Expose cache/inode counters via internal/metrics.")
	if err := viper.BindPFlag("metrics.enabled", flagSet.Lookup("metrics")); err != nil {
		return err
	}

	return nil
}
