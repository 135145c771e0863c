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

package namespace_test

import (
	"context"
	"testing"

	"github.com/coursefs/blockfs/blockdev"
	"github.com/coursefs/blockfs/cache"
	"github.com/coursefs/blockfs/dirent"
	"github.com/coursefs/blockfs/freemap"
	"github.com/coursefs/blockfs/inode"
	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/coursefs/blockfs/namespace"
	"github.com/stretchr/testify/require"
)

const rootDirSector = 1

func newTestNamespace(t *testing.T) (*namespace.Namespace, *inode.Registry) {
	t.Helper()
	ctx := context.Background()

	dev := blockdev.NewMemDevice(4096)
	c := cache.New(dev, 64, metrics.NewNoopMetrics())
	fm := freemap.New(4096, rootDirSector+1) // reserve sector 0 and the root dir sector
	reg := inode.NewRegistry(c, fm, metrics.NewNoopMetrics())

	require.NoError(t, reg.Create(ctx, rootDirSector, 0, true))
	root, err := reg.Open(ctx, rootDirSector)
	require.NoError(t, err)
	require.NoError(t, dirent.InitDirectory(ctx, reg, root, rootDirSector, rootDirSector))
	require.NoError(t, reg.Close(ctx, root))

	return namespace.New(reg, fm, rootDirSector), reg
}

func TestCreateOpenWriteReadFile(t *testing.T) {
	ns, reg := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.Create(ctx, sess, "/a", 0))

	h, err := ns.Open(ctx, sess, "/a")
	require.NoError(t, err)
	require.NotNil(t, h)

	n, err := reg.WriteAt(ctx, h, []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	out := make([]byte, 5)
	n, err = reg.ReadAt(ctx, h, out, 0)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out[:n]))

	require.NoError(t, reg.Close(ctx, h))
}

func TestNestedDirectoryResolution(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.CreateDir(ctx, sess, "/dir1"))
	require.NoError(t, ns.CreateDir(ctx, sess, "/dir1/dir2"))
	require.NoError(t, ns.Create(ctx, sess, "/dir1/dir2/leaf", 0))

	h, err := ns.Open(ctx, sess, "/dir1/dir2/leaf")
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestOpenOnDirectoryReturnsNil(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.CreateDir(ctx, sess, "/d"))
	h, err := ns.Open(ctx, sess, "/d")
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestInteriorNonDirectoryIsError(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.Create(ctx, sess, "/f", 0))
	_, err := ns.Open(ctx, sess, "/f/child")
	require.ErrorIs(t, err, namespace.ErrNotDir)
}

func TestCreateDuplicateNameFails(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.Create(ctx, sess, "/dup", 0))
	err := ns.Create(ctx, sess, "/dup", 0)
	require.ErrorIs(t, err, namespace.ErrExists)
}

func TestRemoveNonEmptyDirectoryRejected(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.CreateDir(ctx, sess, "/d"))
	require.NoError(t, ns.Create(ctx, sess, "/d/f", 0))

	err := ns.Remove(ctx, sess, "/d")
	require.ErrorIs(t, err, namespace.ErrNotEmpty)
}

func TestDeferredDeleteThroughOpenHandle(t *testing.T) {
	ns, reg := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	require.NoError(t, ns.Create(ctx, sess, "/f", 0))
	h, err := ns.Open(ctx, sess, "/f")
	require.NoError(t, err)

	require.NoError(t, ns.Remove(ctx, sess, "/f"))

	// The still-open handle keeps working after remove.
	n, err := reg.WriteAt(ctx, h, []byte("x"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = ns.Open(ctx, sess, "/f")
	require.ErrorIs(t, err, namespace.ErrNotFound)

	require.NoError(t, reg.Close(ctx, h))
}

func TestEmptyPathIsInvalidArgument(t *testing.T) {
	ns, _ := newTestNamespace(t)
	ctx := context.Background()
	sess := namespace.NewSession()

	err := ns.Create(ctx, sess, "", 0)
	require.ErrorIs(t, err, namespace.ErrInvalidArgument)
}
