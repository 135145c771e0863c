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

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Flags are bound to the package-level viper instance once, in this
// package's init(); tests rely on always passing the keys they need
// explicitly rather than resetting that binding mid-suite.

func TestFormatThenStat(t *testing.T) {
	backing := filepath.Join(t.TempDir(), "disk.img")

	rootCmd.SetArgs([]string{"format", "--backing-file", backing, "--sector-count", "4096"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"stat", "--backing-file", backing, "--sector-count", "4096", "/"})
	require.NoError(t, rootCmd.Execute())
}

func TestFsckOnUnformattedVolumePanicsOnBadMagic(t *testing.T) {
	// A freshly fallocated backing file is all zeros, so its root-directory
	// sector fails the inode magic check — the same corruption assertion
	// that fires reading any other corrupt inode sector.
	backing := filepath.Join(t.TempDir(), "disk.img")

	rootCmd.SetArgs([]string{"fsck", "--backing-file", backing, "--sector-count", "4096"})
	require.Panics(t, func() { rootCmd.Execute() })
}
