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

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/coursefs/blockfs/cfg"
	"github.com/coursefs/blockfs/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFlagDefaults(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--backing-file=" + filepath.Join(t.TempDir(), "disk.img")}))

	c, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, cfg.DefaultCacheMaxSectors, c.Volume.CacheMaxSectors)
	require.Equal(t, cfg.SeverityInfo, c.Logging.Severity)
}

func TestLoadRejectsMissingBackingFile(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(fs))
	require.NoError(t, fs.Parse(nil))

	_, err := config.Load("")
	require.Error(t, err)
}
