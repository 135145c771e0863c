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

// Package blockdev is the external block device collaborator: fixed-size
// sector read/write primitives. Nothing above this package understands
// files, offsets, or directories — it only knows sector numbers.
package blockdev

import "fmt"

// SectorSize is the fixed block size every Device reads and writes.
const SectorSize = 512

// Device is the minimal sector-addressed block device contract the cache
// requires. Implementations need not be safe for concurrent use; the cache
// serializes all access to a Device behind its own lock.
type Device interface {
	// ReadSector copies exactly SectorSize bytes from the given sector
	// into dst, which must be at least SectorSize long.
	ReadSector(sector uint32, dst []byte) error

	// WriteSector writes exactly SectorSize bytes from src to the given
	// sector. src must be at least SectorSize long.
	WriteSector(sector uint32, src []byte) error

	// Sync flushes any OS-level buffering to stable storage.
	Sync() error

	// NumSectors reports the device's fixed capacity.
	NumSectors() uint32

	// Close releases any underlying resources.
	Close() error
}

// ErrOutOfRange is returned when a sector number is beyond the device's
// capacity.
type ErrOutOfRange struct {
	Sector uint32
	Num    uint32
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("sector %d out of range (device has %d sectors)", e.Sector, e.Num)
}
