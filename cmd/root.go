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

// Package cmd is blockfsctl's cobra command tree: a root command binding
// cfg's flags plus subcommands for formatting, checking, inspecting and
// benchmarking a volume.
package cmd

import (
	"fmt"
	"os"

	"github.com/coursefs/blockfs/cfg"
	"github.com/coursefs/blockfs/internal/config"
	"github.com/coursefs/blockfs/internal/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "blockfsctl",
	Short: "Format, inspect and benchmark a blockfs volume",
	Long: `blockfsctl drives a blockfs volume directly, without mounting it
into the kernel: format a fresh backing file, fsck-rebuild an existing
one's free-map, stat a path, or run a small write benchmark.`,
	SilenceUsage: true,
}

// Execute runs the command tree, printing any error and exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddCommand(formatCmd, fsckCmd, statCmd, benchCmd)
}

// loadConfig resolves and validates the mount config, then initializes
// logging from it.
func loadConfig() (*cfg.Config, error) {
	c, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(c.Logging, os.Stderr)
	return c, nil
}
