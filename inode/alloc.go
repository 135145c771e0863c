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

package inode

import (
	"context"
	"fmt"

	"github.com/coursefs/blockfs/blockdev"
)

func (reg *Registry) loadDiskInode(ctx context.Context, sector uint32) (*diskInode, error) {
	var buf [blockdev.SectorSize]byte
	if err := reg.cache.Read(ctx, sector, buf[:], 0, blockdev.SectorSize); err != nil {
		return nil, fmt.Errorf("load inode sector %d: %w", sector, err)
	}
	return unmarshalDiskInode(buf[:])
}

func (reg *Registry) storeDiskInode(ctx context.Context, sector uint32, d *diskInode) error {
	buf := d.marshal()
	return reg.cache.Write(ctx, sector, buf[:], 0, blockdev.SectorSize)
}

func (reg *Registry) loadPointerBlock(ctx context.Context, sector uint32) ([PointersPerBlock]uint32, error) {
	var buf [blockdev.SectorSize]byte
	if err := reg.cache.Read(ctx, sector, buf[:], 0, blockdev.SectorSize); err != nil {
		return [PointersPerBlock]uint32{}, fmt.Errorf("load pointer block %d: %w", sector, err)
	}
	return unmarshalPointerBlock(buf[:]), nil
}

func (reg *Registry) storePointerBlock(ctx context.Context, sector uint32, ptrs [PointersPerBlock]uint32) error {
	buf := marshalPointerBlock(&ptrs)
	return reg.cache.Write(ctx, sector, buf[:], 0, blockdev.SectorSize)
}

// resolvePointer returns ptr unchanged if non-zero. If ptr is zero and
// allocate is requested, it allocates a fresh sector from the free-map,
// pre-creates an empty cache entry for it (the "load-or-allocate" pattern
// shared by every index level), and reports the pointer as changed so the
// caller can persist it into the enclosing block or inode.
func (reg *Registry) resolvePointer(ctx context.Context, ptr uint32, allocate bool) (resolved uint32, changed bool, err error) {
	if ptr != 0 {
		return ptr, false, nil
	}
	if !allocate {
		return 0, false, nil
	}
	newSector, err := reg.freemap.Allocate()
	if err != nil {
		return 0, false, fmt.Errorf("allocate sector: %w", err)
	}
	if err := reg.cache.Create(ctx, newSector); err != nil {
		return 0, false, err
	}
	return newSector, true, nil
}

// resolveSlot loads the pointer block at blockSector, resolves (and
// possibly allocates) the pointer at idx within it, and persists the block
// if the slot changed. Used both for indirect-block data-sector slots and
// for double-indirect outer-block sub-block slots — the mechanics are
// identical at both levels.
func (reg *Registry) resolveSlot(ctx context.Context, blockSector uint32, idx int, allocate bool) (uint32, error) {
	ptrs, err := reg.loadPointerBlock(ctx, blockSector)
	if err != nil {
		return 0, err
	}
	resolved, changed, err := reg.resolvePointer(ctx, ptrs[idx], allocate)
	if err != nil {
		return 0, err
	}
	if changed {
		ptrs[idx] = resolved
		if err := reg.storePointerBlock(ctx, blockSector, ptrs); err != nil {
			return 0, err
		}
	}
	return resolved, nil
}

// byteToSector maps a byte offset within the inode at inodeSector to the
// sector holding it. If allocate is false and pos lies at or beyond the
// inode's current length, it returns 0 ("absent") rather than allocating.
// If allocate is true, every zero pointer encountered along the path is
// materialized, level by level, before descending further.
func (reg *Registry) byteToSector(ctx context.Context, inodeSector uint32, pos int64, allocate bool) (uint32, error) {
	d, err := reg.loadDiskInode(ctx, inodeSector)
	if err != nil {
		return 0, err
	}
	if !allocate && pos >= d.length {
		return 0, nil
	}

	sectorIndex := pos / blockdev.SectorSize

	switch {
	case sectorIndex < DirectPointers:
		resolved, changed, err := reg.resolvePointer(ctx, d.direct[sectorIndex], allocate)
		if err != nil {
			return 0, err
		}
		if changed {
			d.direct[sectorIndex] = resolved
			if err := reg.storeDiskInode(ctx, inodeSector, d); err != nil {
				return 0, err
			}
		}
		return resolved, nil

	case sectorIndex < DirectPointers+PointersPerBlock:
		idx := int(sectorIndex - DirectPointers)
		indirectSector, changed, err := reg.resolvePointer(ctx, d.indirect, allocate)
		if err != nil {
			return 0, err
		}
		if changed {
			d.indirect = indirectSector
			if err := reg.storeDiskInode(ctx, inodeSector, d); err != nil {
				return 0, err
			}
		}
		if indirectSector == 0 {
			return 0, nil
		}
		return reg.resolveSlot(ctx, indirectSector, idx, allocate)

	default:
		k := sectorIndex - (DirectPointers + PointersPerBlock)
		outerIdx := int(k / PointersPerBlock)
		innerIdx := int(k % PointersPerBlock)

		doubleSector, changed, err := reg.resolvePointer(ctx, d.doubleIndirect, allocate)
		if err != nil {
			return 0, err
		}
		if changed {
			d.doubleIndirect = doubleSector
			if err := reg.storeDiskInode(ctx, inodeSector, d); err != nil {
				return 0, err
			}
		}
		if doubleSector == 0 {
			return 0, nil
		}

		innerSector, err := reg.resolveSlot(ctx, doubleSector, outerIdx, allocate)
		if err != nil {
			return 0, err
		}
		if innerSector == 0 {
			return 0, nil
		}
		return reg.resolveSlot(ctx, innerSector, innerIdx, allocate)
	}
}

// AllocatedSectors returns every on-disk sector currently in use by the
// inode at sector — the inode block itself, plus its indirect and
// double-indirect pointer blocks and every data block they reference. It
// does not recurse into directory contents; callers walking a directory
// tree do that themselves via dirent.List, since this package has no
// notion of directory entries.
func (reg *Registry) AllocatedSectors(ctx context.Context, sector uint32) ([]uint32, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	d, err := reg.loadDiskInode(ctx, sector)
	if err != nil {
		return nil, err
	}

	used := []uint32{sector}
	for _, ptr := range d.direct {
		if ptr != 0 {
			used = append(used, ptr)
		}
	}

	if d.indirect != 0 {
		used = append(used, d.indirect)
		ptrs, err := reg.loadPointerBlock(ctx, d.indirect)
		if err != nil {
			return nil, err
		}
		for _, p := range ptrs {
			if p != 0 {
				used = append(used, p)
			}
		}
	}

	if d.doubleIndirect != 0 {
		used = append(used, d.doubleIndirect)
		outer, err := reg.loadPointerBlock(ctx, d.doubleIndirect)
		if err != nil {
			return nil, err
		}
		for _, sub := range outer {
			if sub == 0 {
				continue
			}
			used = append(used, sub)
			inner, err := reg.loadPointerBlock(ctx, sub)
			if err != nil {
				return nil, err
			}
			for _, p := range inner {
				if p != 0 {
					used = append(used, p)
				}
			}
		}
	}

	return used, nil
}

// freeSector drops sector from the cache (no flush — it is being freed,
// not written back) and returns it to the free-map.
func (reg *Registry) freeSector(sector uint32) {
	reg.cache.Remove(sector)
	reg.freemap.Release(sector)
}

// releaseBlocks walks the full index of the inode at sector — direct
// pointers, then every non-zero slot of the indirect block, then every
// non-zero slot of each non-zero sub-block of the double-indirect block —
// and frees every allocated block plus the inode block itself. The
// double-indirect loop frees each inner slot by its own index, then the
// sub-block that held it, then the double-indirect block.
func (reg *Registry) releaseBlocks(ctx context.Context, sector uint32) error {
	d, err := reg.loadDiskInode(ctx, sector)
	if err != nil {
		return err
	}

	for _, ptr := range d.direct {
		if ptr != 0 {
			reg.freeSector(ptr)
		}
	}

	if d.indirect != 0 {
		ptrs, err := reg.loadPointerBlock(ctx, d.indirect)
		if err != nil {
			return err
		}
		for _, p := range ptrs {
			if p != 0 {
				reg.freeSector(p)
			}
		}
		reg.freeSector(d.indirect)
	}

	if d.doubleIndirect != 0 {
		outer, err := reg.loadPointerBlock(ctx, d.doubleIndirect)
		if err != nil {
			return err
		}
		for _, sub := range outer {
			if sub == 0 {
				continue
			}
			inner, err := reg.loadPointerBlock(ctx, sub)
			if err != nil {
				return err
			}
			for _, p := range inner {
				if p != 0 {
					reg.freeSector(p)
				}
			}
			reg.freeSector(sub)
		}
		reg.freeSector(d.doubleIndirect)
	}

	reg.freeSector(sector)
	return nil
}
