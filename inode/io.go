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

// ReadAt copies up to len(buf) bytes starting at offset into buf, and
// returns the number of bytes actually read. The read stops at the inode's
// current length, yielding a short read rather than an error. A hole inside
// the length (a zero pointer) is allocated on demand, like a write, and
// reads back as zeros.
func (reg *Registry) ReadAt(ctx context.Context, in *Inode, buf []byte, offset int64) (int, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	n, err := reg.readAtLocked(ctx, in, buf, offset)
	if n > 0 {
		reg.metrics.BytesReadCount(ctx, int64(n), nil)
	}
	return n, err
}

func (reg *Registry) readAtLocked(ctx context.Context, in *Inode, buf []byte, offset int64) (int, error) {
	d, err := reg.loadDiskInode(ctx, in.sector)
	if err != nil {
		return 0, err
	}

	total := 0
	pos := offset
	for total < len(buf) {
		if pos >= d.length {
			break
		}
		sectorOff := int(pos % blockdev.SectorSize)
		chunk := len(buf) - total
		if c := blockdev.SectorSize - sectorOff; c < chunk {
			chunk = c
		}
		if c := int(d.length - pos); c < chunk {
			chunk = c
		}
		if chunk <= 0 {
			break
		}

		sector, err := reg.byteToSector(ctx, in.sector, pos, true)
		if err != nil {
			return total, err
		}
		if sector == 0 {
			break
		}
		if err := reg.cache.Read(ctx, sector, buf[total:total+chunk], sectorOff, chunk); err != nil {
			return total, err
		}

		total += chunk
		pos += int64(chunk)
	}
	return total, nil
}

// WriteAt writes len(buf) bytes starting at offset, growing the inode's
// length first if the write extends past it, and returns the number of
// bytes written. Returns 0 immediately, without touching any data, if the
// inode currently has a nonzero deny-write count.
//
// The length field is updated before any data sector is written: a crash
// between the length bump and the data writes leaves length ahead of the
// durable data. Crash consistency across that window is out of scope here.
func (reg *Registry) WriteAt(ctx context.Context, in *Inode, buf []byte, offset int64) (int, error) {
	reg.Mu.Lock()
	defer reg.Mu.Unlock()

	if in.denyWriteCount > 0 {
		return 0, nil
	}

	newLength := offset + int64(len(buf))
	if newLength > MaxFileSize {
		return 0, fmt.Errorf("inode: write would extend past max file size %d", MaxFileSize)
	}

	d, err := reg.loadDiskInode(ctx, in.sector)
	if err != nil {
		return 0, err
	}
	if newLength > d.length {
		d.length = newLength
		if err := reg.storeDiskInode(ctx, in.sector, d); err != nil {
			return 0, err
		}
	}

	total := 0
	pos := offset
	for total < len(buf) {
		sectorOff := int(pos % blockdev.SectorSize)
		chunk := len(buf) - total
		if c := blockdev.SectorSize - sectorOff; c < chunk {
			chunk = c
		}

		sector, err := reg.byteToSector(ctx, in.sector, pos, true)
		if err != nil {
			return total, err
		}
		if err := reg.cache.Write(ctx, sector, buf[total:total+chunk], sectorOff, chunk); err != nil {
			return total, err
		}

		total += chunk
		pos += int64(chunk)
	}

	if total > 0 {
		reg.metrics.BytesWrittenCount(ctx, int64(total), nil)
	}
	return total, nil
}
