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

package blockdev

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileDevice backs a Device with a single regular file, preallocated to
// numSectors*SectorSize bytes at creation so that every sector offset is
// always a valid, already-reserved region of the file.
type FileDevice struct {
	f          *os.File
	numSectors uint32
}

// OpenFileDevice opens (or creates) path as a backing file for a device of
// numSectors sectors. If the file does not yet exist, or is smaller than
// the requested size, it is preallocated via fallocate(2) so subsequent
// writes cannot fail with ENOSPC partway through a sector.
func OpenFileDevice(path string, numSectors uint32) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open backing file: %w", err)
	}

	size := int64(numSectors) * SectorSize
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		f.Close()
		return nil, fmt.Errorf("fallocate backing file: %w", err)
	}

	return &FileDevice{f: f, numSectors: numSectors}, nil
}

func (d *FileDevice) checkRange(sector uint32) error {
	if sector >= d.numSectors {
		return &ErrOutOfRange{Sector: sector, Num: d.numSectors}
	}
	return nil
}

func (d *FileDevice) ReadSector(sector uint32, dst []byte) error {
	if err := d.checkRange(sector); err != nil {
		return err
	}
	off := int64(sector) * SectorSize
	if _, err := d.f.ReadAt(dst[:SectorSize], off); err != nil {
		return fmt.Errorf("read sector %d: %w", sector, err)
	}
	return nil
}

func (d *FileDevice) WriteSector(sector uint32, src []byte) error {
	if err := d.checkRange(sector); err != nil {
		return err
	}
	off := int64(sector) * SectorSize
	if _, err := d.f.WriteAt(src[:SectorSize], off); err != nil {
		return fmt.Errorf("write sector %d: %w", sector, err)
	}
	return nil
}

// Sync calls fdatasync(2) rather than fsync(2); the content matters, not
// the file's own metadata (mtime, size — size is fixed at open time).
func (d *FileDevice) Sync() error {
	return unix.Fdatasync(int(d.f.Fd()))
}

func (d *FileDevice) NumSectors() uint32 {
	return d.numSectors
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}
