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

// Package volume assembles a block device, buffer cache, inode registry,
// free-map and namespace into one mountable unit, and owns the volume's
// identity and format/rebuild lifecycle. It is the only package that
// constructs the other layers directly; everything above it talks to a
// *Volume.
package volume

import (
	"context"
	"fmt"

	"github.com/coursefs/blockfs/blockdev"
	"github.com/coursefs/blockfs/cache"
	"github.com/coursefs/blockfs/cfg"
	"github.com/coursefs/blockfs/dirent"
	"github.com/coursefs/blockfs/freemap"
	"github.com/coursefs/blockfs/inode"
	"github.com/coursefs/blockfs/internal/logger"
	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/coursefs/blockfs/namespace"
	"github.com/google/uuid"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sync/errgroup"
)

// RootDirSector is the fixed sector holding the root directory's inode.
// Sector 0 is reserved for the free-map's own bookkeeping, so the root
// directory is always the second sector of a freshly formatted volume.
const RootDirSector = 1

// Volume is a mounted block filesystem: the open backing device, the
// layers built on top of it, and a random identity generated by Format or
// Open. The identity is not written to disk, so each Open of an existing
// backing file assigns a new one.
type Volume struct {
	ID uuid.UUID

	dev     blockdev.Device
	cache   *cache.Cache
	freemap *freemap.Map
	reg     *inode.Registry
	ns      *namespace.Namespace
	metrics metrics.MetricHandle
	clock   timeutil.Clock
}

// Namespace returns the path-resolution surface for this volume.
func (v *Volume) Namespace() *namespace.Namespace { return v.ns }

// Registry returns the open-inode registry, for callers that need
// ReadAt/WriteAt or Close/Remove directly on a handle from Namespace.Open.
func (v *Volume) Registry() *inode.Registry { return v.reg }

// FreeSectors reports how many sectors remain unallocated.
func (v *Volume) FreeSectors() int { return v.freemap.FreeCount() }

func open(c *cfg.Config) (*blockdev.FileDevice, *cache.Cache, metrics.MetricHandle, error) {
	m := metrics.NewNoopMetrics()
	if c.Metrics.Enabled {
		ocm, err := metrics.NewOCMetrics()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("volume: init metrics: %w", err)
		}
		m = ocm
	}

	dev, err := blockdev.OpenFileDevice(string(c.Volume.BackingFile), uint32(c.Volume.SectorCount))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("volume: open backing file: %w", err)
	}
	ch := cache.New(dev, c.Volume.CacheMaxSectors, m)
	return dev, ch, m, nil
}

// Format initializes a fresh volume in c.Volume.BackingFile: every sector
// past the reserved range is marked free, and a root directory inode is
// written at RootDirSector with "." and ".." pointing at itself.
func Format(ctx context.Context, c *cfg.Config) (*Volume, error) {
	dev, ch, m, err := open(c)
	if err != nil {
		return nil, err
	}

	fm := freemap.New(uint32(c.Volume.SectorCount), RootDirSector+1)
	reg := inode.NewRegistry(ch, fm, m)

	if err := reg.Create(ctx, RootDirSector, 0, true); err != nil {
		return nil, fmt.Errorf("volume: create root directory inode: %w", err)
	}
	root, err := reg.Open(ctx, RootDirSector)
	if err != nil {
		return nil, fmt.Errorf("volume: open root directory: %w", err)
	}
	if err := dirent.InitDirectory(ctx, reg, root, RootDirSector, RootDirSector); err != nil {
		reg.Close(ctx, root)
		return nil, fmt.Errorf("volume: initialize root directory: %w", err)
	}
	if err := dirent.Reserve(ctx, reg, root, c.Volume.RootDirHint); err != nil {
		reg.Close(ctx, root)
		return nil, fmt.Errorf("volume: reserve root directory capacity: %w", err)
	}
	if err := reg.Close(ctx, root); err != nil {
		return nil, fmt.Errorf("volume: close root directory: %w", err)
	}

	if err := ch.FlushAll(ctx); err != nil {
		return nil, fmt.Errorf("volume: flush after format: %w", err)
	}

	id := uuid.New()
	logger.Infof("volume: formatted %s (%d sectors) as %s", c.Volume.BackingFile, c.Volume.SectorCount, id)

	return &Volume{
		ID:      id,
		dev:     dev,
		cache:   ch,
		freemap: fm,
		reg:     reg,
		ns:      namespace.New(reg, fm, RootDirSector),
		metrics: m,
		clock:   timeutil.RealClock(),
	}, nil
}

// Open mounts an existing backing file. Since the free-map is not itself
// persisted to disk, Open rebuilds it by walking the directory tree from
// the root, marking every sector any inode or directory block references
// as allocated. This mirrors an fsck-style rebuild rather than adding a
// durable on-disk bitmap format.
func Open(ctx context.Context, c *cfg.Config) (*Volume, error) {
	if c.Volume.Format {
		return Format(ctx, c)
	}

	dev, ch, m, err := open(c)
	if err != nil {
		return nil, err
	}

	fm := freemap.New(uint32(c.Volume.SectorCount), RootDirSector+1)
	reg := inode.NewRegistry(ch, fm, m)

	v := &Volume{
		ID:      uuid.New(),
		dev:     dev,
		cache:   ch,
		freemap: fm,
		reg:     reg,
		ns:      namespace.New(reg, fm, RootDirSector),
		metrics: m,
		clock:   timeutil.RealClock(),
	}

	if err := v.rebuildFreeMap(ctx); err != nil {
		return nil, fmt.Errorf("volume: rebuild free-map: %w", err)
	}
	logger.Infof("volume: mounted %s (%d/%d sectors free)", c.Volume.BackingFile, fm.FreeCount(), fm.Capacity())
	return v, nil
}

// rebuildFreeMap walks the directory tree from the root, marking every
// sector used by any inode (and its indirect/double-indirect blocks) or
// directory-entry file as allocated in v.freemap.
func (v *Volume) rebuildFreeMap(ctx context.Context) error {
	root, err := v.reg.Open(ctx, RootDirSector)
	if err != nil {
		return err
	}
	defer v.reg.Close(ctx, root)
	return v.markSubtree(ctx, root, RootDirSector)
}

func (v *Volume) markSubtree(ctx context.Context, dir *inode.Inode, sector uint32) error {
	used, err := v.reg.AllocatedSectors(ctx, sector)
	if err != nil {
		return err
	}
	for _, s := range used {
		v.freemap.MarkAllocated(s)
	}

	entries, err := dirent.List(ctx, v.reg, dir)
	if err != nil {
		return err
	}

	// Sibling subtrees share nothing but the registry and free-map, both of
	// which serialize internally, so they can be walked concurrently.
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		if e.Name == "." || e.Name == ".." {
			continue
		}
		g.Go(func() error {
			return v.markChild(gctx, e.Sector)
		})
	}
	return g.Wait()
}

func (v *Volume) markChild(ctx context.Context, sector uint32) error {
	child, err := v.reg.Open(ctx, sector)
	if err != nil {
		return err
	}
	defer v.reg.Close(ctx, child)

	isDir, err := v.reg.IsDir(ctx, child)
	if err != nil {
		return err
	}
	if isDir {
		return v.markSubtree(ctx, child, sector)
	}

	used, err := v.reg.AllocatedSectors(ctx, sector)
	if err != nil {
		return err
	}
	for _, s := range used {
		v.freemap.MarkAllocated(s)
	}
	return nil
}

// Flush writes every dirty cache entry back to the backing device.
func (v *Volume) Flush(ctx context.Context) error {
	return v.cache.FlushAll(ctx)
}

// Shutdown flushes the cache and closes the backing device. The Volume
// must not be used afterward.
func (v *Volume) Shutdown(ctx context.Context) error {
	if err := v.cache.Shutdown(ctx); err != nil {
		return fmt.Errorf("volume: shutdown cache: %w", err)
	}
	return v.dev.Close()
}
