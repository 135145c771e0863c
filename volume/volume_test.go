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

package volume_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/coursefs/blockfs/cfg"
	"github.com/coursefs/blockfs/inode"
	"github.com/coursefs/blockfs/namespace"
	"github.com/coursefs/blockfs/volume"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, sectors int64) *cfg.Config {
	t.Helper()
	c := cfg.Default()
	c.Volume.BackingFile = cfg.ResolvedPath(filepath.Join(t.TempDir(), "disk.img"))
	c.Volume.SectorCount = sectors
	c.Volume.CacheMaxSectors = 64
	c.Volume.RootDirHint = 16
	c.Volume.Format = true
	return &c
}

// S1: basic create/open/write/read/close round-trips through the whole stack.
func TestBasicReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/greeting", 0))

	h, err := v.Namespace().Open(ctx, sess, "/greeting")
	require.NoError(t, err)

	n, err := v.Registry().WriteAt(ctx, h, []byte("hello, block world"), 0)
	require.NoError(t, err)
	require.Equal(t, 18, n)

	out := make([]byte, 19)
	n, err = v.Registry().ReadAt(ctx, h, out, 0)
	require.NoError(t, err)
	require.Equal(t, "hello, block world", string(out[:n]))

	require.NoError(t, v.Registry().Close(ctx, h))
}

// S2: writing past a file's current reach grows it sparsely, and the gap
// reads back as zeros.
func TestSparseGrowth(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/sparse", 0))
	h, err := v.Namespace().Open(ctx, sess, "/sparse")
	require.NoError(t, err)
	defer v.Registry().Close(ctx, h)

	const gap = 5000
	_, err = v.Registry().WriteAt(ctx, h, []byte("end"), gap)
	require.NoError(t, err)

	hole := make([]byte, gap)
	n, err := v.Registry().ReadAt(ctx, h, hole, 0)
	require.NoError(t, err)
	require.Equal(t, gap, n)
	for i, b := range hole {
		require.Equalf(t, byte(0), b, "byte %d of the sparse gap should read as zero", i)
	}
}

// S3: a write far enough out to require the double-indirect block round-trips.
func TestDoubleIndirectRange(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 32768)
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/big", 0))
	h, err := v.Namespace().Open(ctx, sess, "/big")
	require.NoError(t, err)
	defer v.Registry().Close(ctx, h)

	offset := int64((inode.DirectPointers+inode.PointersPerBlock)*512 + 10*512)
	payload := []byte("double-indirect payload")
	_, err = v.Registry().WriteAt(ctx, h, payload, offset)
	require.NoError(t, err)

	out := make([]byte, len(payload))
	_, err = v.Registry().ReadAt(ctx, h, out, offset)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

// S4: removing a file while it is still open defers reclamation; the
// free-map count only drops once the last handle closes.
func TestDeferredDeleteFreesSectorsOnClose(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/doomed", 0))
	h, err := v.Namespace().Open(ctx, sess, "/doomed")
	require.NoError(t, err)

	_, err = v.Registry().WriteAt(ctx, h, make([]byte, 3000), 0)
	require.NoError(t, err)

	before := v.FreeSectors()
	require.NoError(t, v.Namespace().Remove(ctx, sess, "/doomed"))
	require.Equal(t, before, v.FreeSectors(), "free count must not change while a handle is still open")

	require.NoError(t, v.Registry().Close(ctx, h))
	require.Greater(t, v.FreeSectors(), before, "closing the last handle must reclaim the removed file's blocks")
}

// S5: with the cache bound at its configured maximum, touching one sector
// past capacity evicts the least-recently-used sector rather than growing
// the cache.
func TestCacheStaysBounded(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)
	c.Volume.CacheMaxSectors = 64
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	for i := 0; i < 70; i++ {
		name := fmt.Sprintf("/f%d", i)
		require.NoError(t, v.Namespace().Create(ctx, sess, name, 0))
		h, err := v.Namespace().Open(ctx, sess, name)
		require.NoError(t, err)
		_, err = v.Registry().WriteAt(ctx, h, []byte("x"), 0)
		require.NoError(t, err)
		require.NoError(t, v.Registry().Close(ctx, h))
	}
	// Every file above is still fully readable even though its inode sector
	// was long ago evicted from the bounded cache and re-fetched from disk.
	out := make([]byte, 1)
	h, err := v.Namespace().Open(ctx, sess, "/f0")
	require.NoError(t, err)
	_, err = v.Registry().ReadAt(ctx, h, out, 0)
	require.NoError(t, err)
	require.Equal(t, "x", string(out))
	require.NoError(t, v.Registry().Close(ctx, h))
}

// S6: a deny-write hold (simulating a running executable) blocks writers
// without affecting readers.
func TestDenyWriteBlocksWriters(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)
	v, err := volume.Open(ctx, c)
	require.NoError(t, err)
	defer v.Shutdown(ctx)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/prog", 0))
	h, err := v.Namespace().Open(ctx, sess, "/prog")
	require.NoError(t, err)
	defer v.Registry().Close(ctx, h)

	_, err = v.Registry().WriteAt(ctx, h, []byte("seed"), 0)
	require.NoError(t, err)

	v.Registry().DenyWrite(h)
	n, err := v.Registry().WriteAt(ctx, h, []byte("blocked"), 0)
	require.NoError(t, err)
	require.Equal(t, 0, n, "a write while deny-write is held must be rejected as a no-op")
	v.Registry().AllowWrite(h)

	n, err = v.Registry().WriteAt(ctx, h, []byte("ok"), 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// Remounting an existing backing file rebuilds the free-map from the
// on-disk directory tree, so previously allocated sectors stay reserved.
func TestReopenRebuildsFreeMap(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t, 4096)

	v, err := volume.Open(ctx, c)
	require.NoError(t, err)

	sess := namespace.NewSession()
	require.NoError(t, v.Namespace().Create(ctx, sess, "/kept", 0))
	h, err := v.Namespace().Open(ctx, sess, "/kept")
	require.NoError(t, err)
	_, err = v.Registry().WriteAt(ctx, h, make([]byte, 4000), 0)
	require.NoError(t, err)
	require.NoError(t, v.Registry().Close(ctx, h))

	freeBeforeClose := v.FreeSectors()
	require.NoError(t, v.Shutdown(ctx))

	c2 := *c
	c2.Volume.Format = false
	v2, err := volume.Open(ctx, &c2)
	require.NoError(t, err)
	defer v2.Shutdown(ctx)

	require.Equal(t, freeBeforeClose, v2.FreeSectors(), "reopening must rebuild the same allocation state")

	sess2 := namespace.NewSession()
	h2, err := v2.Namespace().Open(ctx, sess2, "/kept")
	require.NoError(t, err)
	defer v2.Registry().Close(ctx, h2)

	out := make([]byte, 4000)
	_, err = v2.Registry().ReadAt(ctx, h2, out, 0)
	require.NoError(t, err)
}
