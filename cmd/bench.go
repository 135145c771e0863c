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
	"time"

	"github.com/coursefs/blockfs/namespace"
	"github.com/coursefs/blockfs/volume"
	"github.com/spf13/cobra"
)

var benchDuration time.Duration
var benchWriteSize int

func init() {
	benchCmd.Flags().DurationVar(&benchDuration, "duration", 3*time.Second, "how long to repeatedly overwrite the benchmark file")
	benchCmd.Flags().IntVar(&benchWriteSize, "write-size", 4096, "bytes written per WriteAt call")
}

// benchCmd repeatedly overwrites a single file's first bytes for the
// configured duration, reporting write throughput through the full
// namespace/inode/cache stack. It measures the filesystem's own CPU cost,
// not the backing device's.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure write throughput against a formatted volume",
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
		const path = "/bench"
		if h, err := v.Namespace().Open(ctx, sess, path); err == nil && h != nil {
			v.Registry().Close(ctx, h)
			if err := v.Namespace().Remove(ctx, sess, path); err != nil {
				return err
			}
		}
		if err := v.Namespace().Create(ctx, sess, path, 0); err != nil {
			return err
		}
		h, err := v.Namespace().Open(ctx, sess, path)
		if err != nil {
			return err
		}
		defer v.Registry().Close(ctx, h)

		payload := make([]byte, benchWriteSize)
		deadline := time.Now().Add(benchDuration)
		var writes, bytes int64
		start := time.Now()
		for time.Now().Before(deadline) {
			n, err := v.Registry().WriteAt(ctx, h, payload, 0)
			if err != nil {
				return err
			}
			writes++
			bytes += int64(n)
		}
		elapsed := time.Since(start)

		fmt.Printf("%d writes, %d bytes in %s (%.1f MiB/s, %.0f writes/s)\n",
			writes, bytes, elapsed,
			float64(bytes)/(1<<20)/elapsed.Seconds(),
			float64(writes)/elapsed.Seconds())
		return nil
	},
}
