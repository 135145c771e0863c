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
	"encoding/binary"
	"fmt"

	"github.com/coursefs/blockfs/blockdev"
)

const (
	// Magic identifies a sector as holding a valid on-disk inode.
	Magic uint32 = 0x494E4F44

	// DirectPointers is the number of direct sector pointers an inode
	// carries inline.
	DirectPointers = 12

	// PointersPerBlock is how many uint32 sector pointers fit in one
	// sector (512 / 4).
	PointersPerBlock = blockdev.SectorSize / 4

	// MaxFileSize is the largest file length, in bytes, the three-level
	// index can address: (12 + 128 + 128*128) sectors of 512 bytes each.
	MaxFileSize = int64(DirectPointers+PointersPerBlock+PointersPerBlock*PointersPerBlock) * blockdev.SectorSize
)

// diskInode is the exactly-512-byte on-disk inode layout: length, is_dir,
// 12 direct pointers, one indirect pointer, one double-indirect pointer,
// and a trailing magic sentinel, zero-padded to fill the sector.
type diskInode struct {
	length         int64
	isDir          bool
	direct         [DirectPointers]uint32
	indirect       uint32
	doubleIndirect uint32
}

const (
	offLength         = 0
	offIsDir          = 8
	offDirect         = 9
	offIndirect       = offDirect + DirectPointers*4
	offDoubleIndirect = offIndirect + 4
	offMagic          = offDoubleIndirect + 4
)

func (d *diskInode) marshal() [blockdev.SectorSize]byte {
	var buf [blockdev.SectorSize]byte
	binary.LittleEndian.PutUint64(buf[offLength:], uint64(d.length))
	if d.isDir {
		buf[offIsDir] = 1
	}
	for i, ptr := range d.direct {
		binary.LittleEndian.PutUint32(buf[offDirect+i*4:], ptr)
	}
	binary.LittleEndian.PutUint32(buf[offIndirect:], d.indirect)
	binary.LittleEndian.PutUint32(buf[offDoubleIndirect:], d.doubleIndirect)
	binary.LittleEndian.PutUint32(buf[offMagic:], Magic)
	return buf
}

func unmarshalDiskInode(buf []byte) (*diskInode, error) {
	if len(buf) < blockdev.SectorSize {
		return nil, fmt.Errorf("inode: short sector (%d bytes)", len(buf))
	}
	magic := binary.LittleEndian.Uint32(buf[offMagic:])
	if magic != Magic {
		panic(fmt.Sprintf("inode: corrupt inode, bad magic 0x%x", magic))
	}

	d := &diskInode{
		length: int64(binary.LittleEndian.Uint64(buf[offLength:])),
		isDir:  buf[offIsDir] != 0,
	}
	for i := range d.direct {
		d.direct[i] = binary.LittleEndian.Uint32(buf[offDirect+i*4:])
	}
	d.indirect = binary.LittleEndian.Uint32(buf[offIndirect:])
	d.doubleIndirect = binary.LittleEndian.Uint32(buf[offDoubleIndirect:])
	return d, nil
}

func marshalPointerBlock(ptrs *[PointersPerBlock]uint32) [blockdev.SectorSize]byte {
	var buf [blockdev.SectorSize]byte
	for i, p := range ptrs {
		binary.LittleEndian.PutUint32(buf[i*4:], p)
	}
	return buf
}

func unmarshalPointerBlock(buf []byte) [PointersPerBlock]uint32 {
	var ptrs [PointersPerBlock]uint32
	for i := range ptrs {
		ptrs[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return ptrs
}
