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

	"github.com/coursefs/blockfs/namespace"
	"github.com/coursefs/blockfs/volume"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print an inode's length, type and inumber",
	Args:  cobra.ExactArgs(1),
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

		ctx := context.Background()
		sess := namespace.NewSession()
		in, err := v.Namespace().OpenInode(ctx, sess, args[0])
		if err != nil {
			return err
		}
		defer v.Registry().Close(ctx, in)

		length, err := v.Registry().Length(ctx, in)
		if err != nil {
			return err
		}
		isDir, err := v.Registry().IsDir(ctx, in)
		if err != nil {
			return err
		}
		kind := "file"
		if isDir {
			kind = "dir"
		}
		fmt.Printf("%s  inumber=%d  type=%s  length=%d\n", args[0], in.Inumber(), kind, length)
		return nil
	},
}
