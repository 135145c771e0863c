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

package dirent_test

import (
	"context"
	"testing"

	"github.com/coursefs/blockfs/blockdev"
	"github.com/coursefs/blockfs/cache"
	"github.com/coursefs/blockfs/dirent"
	"github.com/coursefs/blockfs/freemap"
	"github.com/coursefs/blockfs/inode"
	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) (*inode.Registry, *inode.Inode, uint32) {
	t.Helper()
	ctx := context.Background()
	dev := blockdev.NewMemDevice(2048)
	c := cache.New(dev, 64, metrics.NewNoopMetrics())
	fm := freemap.New(2048, 2)
	reg := inode.NewRegistry(c, fm, metrics.NewNoopMetrics())

	sector, err := fm.Allocate()
	require.NoError(t, err)
	require.NoError(t, reg.Create(ctx, sector, 0, true))
	dir, err := reg.Open(ctx, sector)
	require.NoError(t, err)
	return reg, dir, sector
}

func TestAddLookupRemove(t *testing.T) {
	reg, dir, _ := newTestDir(t)
	ctx := context.Background()

	require.NoError(t, dirent.Add(ctx, reg, dir, "a.txt", 42))

	sector, ok, err := dirent.Lookup(ctx, reg, dir, "a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(42), sector)

	require.ErrorIs(t, dirent.Add(ctx, reg, dir, "a.txt", 99), dirent.ErrExists)

	require.NoError(t, dirent.Remove(ctx, reg, dir, "a.txt"))
	_, ok, err = dirent.Lookup(ctx, reg, dir, "a.txt")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, dirent.Remove(ctx, reg, dir, "a.txt"), dirent.ErrNotFound)
}

func TestRemoveSlotIsReused(t *testing.T) {
	reg, dir, _ := newTestDir(t)
	ctx := context.Background()

	require.NoError(t, dirent.Add(ctx, reg, dir, "one", 1))
	require.NoError(t, dirent.Add(ctx, reg, dir, "two", 2))
	require.NoError(t, dirent.Remove(ctx, reg, dir, "one"))

	lengthBefore, err := reg.Length(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, dirent.Add(ctx, reg, dir, "three", 3))

	lengthAfter, err := reg.Length(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, lengthBefore, lengthAfter, "adding into a freed slot must not grow the directory")
}

func TestInitDirectoryAndIsEmpty(t *testing.T) {
	reg, dir, sector := newTestDir(t)
	ctx := context.Background()

	empty, err := dirent.IsEmpty(ctx, reg, dir)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, dirent.InitDirectory(ctx, reg, dir, sector, sector))

	empty, err = dirent.IsEmpty(ctx, reg, dir)
	require.NoError(t, err)
	require.True(t, empty, "'.' and '..' alone still count as empty")

	require.NoError(t, dirent.Add(ctx, reg, dir, "child", 7))
	empty, err = dirent.IsEmpty(ctx, reg, dir)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestList(t *testing.T) {
	reg, dir, _ := newTestDir(t)
	ctx := context.Background()

	require.NoError(t, dirent.Add(ctx, reg, dir, "a", 1))
	require.NoError(t, dirent.Add(ctx, reg, dir, "b", 2))

	entries, err := dirent.List(ctx, reg, dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
