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

// Package inode is the on-disk object format, the in-memory open-inode
// registry, and the sparse three-level index walk that grows files on
// demand. It is the only consumer in this module that understands the
// inode sector layout and pointer blocks; everything above it (namespace)
// talks to inodes only through Registry's exported methods.
package inode

import (
	"context"
	"fmt"

	"github.com/coursefs/blockfs/cache"
	"github.com/coursefs/blockfs/freemap"
	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/jacobsa/syncutil"
)

// Inode is the in-memory, reference-counted handle shared by every opener
// of a given sector. Its fields are guarded by the owning Registry's Mu —
// never touch them except through Registry methods.
type Inode struct {
	sector uint32

	// GUARDED_BY(Registry.Mu)
	openCount int
	// GUARDED_BY(Registry.Mu)
	removed bool
	// GUARDED_BY(Registry.Mu)
	denyWriteCount int
}

// Inumber returns the sector id of the inode block — immutable for the
// life of the handle, so no lock is required.
func (in *Inode) Inumber() uint32 {
	return in.sector
}

// Registry is the open-inode table: the single global lock that protects
// it, every live Inode's mutable fields, and the composite
// allocate-then-link sequences of index walks, Create, and the removal
// cascade in Close.
type Registry struct {
	// Mu must be acquired before any call into cache; cache never calls
	// back into this package, so the order is always Mu, then cache's lock.
	Mu syncutil.InvariantMutex

	cache   *cache.Cache
	freemap *freemap.Map
	metrics metrics.MetricHandle

	open map[uint32]*Inode
}

// NewRegistry builds an open-inode registry backed by c and fm.
func NewRegistry(c *cache.Cache, fm *freemap.Map, m metrics.MetricHandle) *Registry {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	reg := &Registry{
		cache:   c,
		freemap: fm,
		metrics: m,
		open:    make(map[uint32]*Inode),
	}
	reg.Mu = syncutil.NewInvariantMutex(reg.checkInvariants)
	return reg
}

func (reg *Registry) checkInvariants() {
	for sector, in := range reg.open {
		if in.sector != sector {
			panic(fmt.Sprintf("inode: registry key %d does not match inode sector %d", sector, in.sector))
		}
		if in.openCount <= 0 {
			panic(fmt.Sprintf("inode: live registry entry for sector %d has openCount %d", sector, in.openCount))
		}
		if in.denyWriteCount < 0 || in.denyWriteCount > in.openCount {
			panic(fmt.Sprintf("inode: sector %d has denyWriteCount %d out of [0,%d]", sector, in.denyWriteCount, in.openCount))
		}
	}
}

// Create initializes a fresh on-disk inode at sector: the given length,
// is_dir flag, the magic sentinel, and all-zero pointers. No data blocks
// are pre-allocated. sector must already be reserved (by the caller, via
// the free-map) and must not collide with a live registry entry.
func (reg *Registry) Create(ctx context.Context, sector uint32, length int64, isDir bool) error {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	d := &diskInode{length: length, isDir: isDir}
	if err := reg.cache.Create(ctx, sector); err != nil {
		return err
	}
	return reg.storeDiskInode(ctx, sector, d)
}

// Open returns the shared in-memory Inode for sector, incrementing its
// open count, allocating a fresh registry entry on first open.
func (reg *Registry) Open(ctx context.Context, sector uint32) (*Inode, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	if in, ok := reg.open[sector]; ok {
		in.openCount++
		reg.metrics.InodeOpenCount(ctx, 1, []metrics.Attr{{Key: metrics.FSOp, Value: "reopen"}})
		return in, nil
	}

	in := &Inode{sector: sector, openCount: 1}
	reg.open[sector] = in
	reg.metrics.InodeOpenCount(ctx, 1, []metrics.Attr{{Key: metrics.FSOp, Value: "open"}})
	return in, nil
}

// Reopen increments in's open count; used when a caller hands out a
// second independent handle to an inode it already holds.
func (reg *Registry) Reopen(ctx context.Context, in *Inode) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	in.openCount++
	reg.metrics.InodeOpenCount(ctx, 1, []metrics.Attr{{Key: metrics.FSOp, Value: "reopen"}})
}

// Close decrements in's open count. If it reaches zero, the registry
// entry is dropped; if the inode had been marked removed, every data
// block and the inode block itself are released to the free-map.
func (reg *Registry) Close(ctx context.Context, in *Inode) error {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	in.openCount--
	reg.metrics.InodeCloseCount(ctx, 1, nil)
	if in.openCount > 0 {
		return nil
	}

	delete(reg.open, in.sector)
	if !in.removed {
		return nil
	}
	return reg.releaseBlocks(ctx, in.sector)
}

// Remove marks in for deletion; the actual block reclamation is deferred
// until the last Close.
func (reg *Registry) Remove(in *Inode) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	in.removed = true
}

// DenyWrite increments in's deny-write count; subsequent WriteAt calls
// against in return 0 until a matching AllowWrite.
func (reg *Registry) DenyWrite(in *Inode) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	if in.denyWriteCount >= in.openCount {
		panic("inode: DenyWrite would exceed openCount")
	}
	in.denyWriteCount++
}

// AllowWrite decrements in's deny-write count.
func (reg *Registry) AllowWrite(in *Inode) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	if in.denyWriteCount <= 0 {
		panic("inode: AllowWrite with no outstanding DenyWrite")
	}
	in.denyWriteCount--
}

// Length reads the current length field of in's on-disk inode.
func (reg *Registry) Length(ctx context.Context, in *Inode) (int64, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	d, err := reg.loadDiskInode(ctx, in.sector)
	if err != nil {
		return 0, err
	}
	return d.length, nil
}

// IsDir reports whether the inode at in's sector was created as a
// directory.
func (reg *Registry) IsDir(ctx context.Context, in *Inode) (bool, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()
	d, err := reg.loadDiskInode(ctx, in.sector)
	if err != nil {
		return false, err
	}
	return d.isDir, nil
}
