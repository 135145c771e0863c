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
	"context"
	"fmt"

	"github.com/coursefs/blockfs/volume"
	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Mount an existing volume, rebuilding its free-map from the directory tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		c.Volume.Format = false
		v, err := volume.Open(context.Background(), c)
		if err != nil {
			return err
		}
		defer v.Shutdown(context.Background())
		fmt.Printf("%s: volume %s, %d/%d sectors free after rebuild\n",
			c.Volume.BackingFile, v.ID, v.FreeSectors(), c.Volume.SectorCount)
		return nil
	},
}
