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

// MemDevice is an in-memory Device for tests: no syscalls, no file on
// disk, deterministic and fast.
type MemDevice struct {
	sectors [][SectorSize]byte
}

// NewMemDevice returns a zero-filled in-memory device of numSectors
// sectors.
func NewMemDevice(numSectors uint32) *MemDevice {
	return &MemDevice{sectors: make([][SectorSize]byte, numSectors)}
}

func (d *MemDevice) checkRange(sector uint32) error {
	if int(sector) >= len(d.sectors) {
		return &ErrOutOfRange{Sector: sector, Num: uint32(len(d.sectors))}
	}
	return nil
}

func (d *MemDevice) ReadSector(sector uint32, dst []byte) error {
	if err := d.checkRange(sector); err != nil {
		return err
	}
	copy(dst, d.sectors[sector][:])
	return nil
}

func (d *MemDevice) WriteSector(sector uint32, src []byte) error {
	if err := d.checkRange(sector); err != nil {
		return err
	}
	copy(d.sectors[sector][:], src)
	return nil
}

func (d *MemDevice) Sync() error { return nil }

func (d *MemDevice) NumSectors() uint32 { return uint32(len(d.sectors)) }

func (d *MemDevice) Close() error { return nil }
