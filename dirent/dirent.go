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

// Package dirent is the directory-entry encoding: a directory's contents
// are just a sequence of fixed-size (name, sector) records, read and
// written through the same inode.Registry.ReadAt/WriteAt surface as any
// other file's bytes. Nothing in this package touches the cache or the
// free-map directly.
package dirent

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coursefs/blockfs/inode"
)

const (
	// NameMax is the longest name a single directory entry can hold.
	NameMax = 58

	// RecordSize is the fixed on-disk width of one entry: a one-byte
	// in-use flag, a four-byte sector pointer, and NameMax bytes + 1 of
	// null-padded name, rounded up to a clean 64-byte record.
	RecordSize = 1 + 4 + NameMax + 1
)

var (
	// ErrNotFound is returned when a name has no entry in the directory.
	ErrNotFound = errors.New("dirent: name not found")

	// ErrExists is returned when adding a name that already has an entry.
	ErrExists = errors.New("dirent: name already exists")

	// ErrNameTooLong is returned when a name exceeds NameMax bytes.
	ErrNameTooLong = errors.New("dirent: name too long")
)

type entry struct {
	inUse  bool
	sector uint32
	name   string
}

func (e *entry) marshal() [RecordSize]byte {
	var buf [RecordSize]byte
	if e.inUse {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[1:5], e.sector)
	copy(buf[5:5+NameMax], e.name)
	return buf
}

func unmarshalEntry(buf []byte) entry {
	nameBytes := buf[5 : 5+NameMax]
	if i := bytes.IndexByte(nameBytes, 0); i >= 0 {
		nameBytes = nameBytes[:i]
	}
	return entry{
		inUse:  buf[0] != 0,
		sector: binary.LittleEndian.Uint32(buf[1:5]),
		name:   string(nameBytes),
	}
}

// Lookup scans dir's entries for name and returns its child sector.
func Lookup(ctx context.Context, reg *inode.Registry, dir *inode.Inode, name string) (uint32, bool, error) {
	length, err := reg.Length(ctx, dir)
	if err != nil {
		return 0, false, err
	}

	buf := make([]byte, RecordSize)
	for off := int64(0); off < length; off += RecordSize {
		n, err := reg.ReadAt(ctx, dir, buf, off)
		if err != nil {
			return 0, false, err
		}
		if n < RecordSize {
			break
		}
		e := unmarshalEntry(buf)
		if e.inUse && e.name == name {
			return e.sector, true, nil
		}
	}
	return 0, false, nil
}

// Add inserts (name, sector) into dir, reusing the first free slot left by
// a prior Remove if one exists, otherwise appending. Returns ErrExists if
// name is already present.
func Add(ctx context.Context, reg *inode.Registry, dir *inode.Inode, name string, sector uint32) error {
	if len(name) > NameMax {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}

	length, err := reg.Length(ctx, dir)
	if err != nil {
		return err
	}

	buf := make([]byte, RecordSize)
	freeOffset := int64(-1)
	for off := int64(0); off < length; off += RecordSize {
		n, err := reg.ReadAt(ctx, dir, buf, off)
		if err != nil {
			return err
		}
		if n < RecordSize {
			break
		}
		e := unmarshalEntry(buf)
		if e.inUse {
			if e.name == name {
				return fmt.Errorf("%w: %q", ErrExists, name)
			}
			continue
		}
		if freeOffset < 0 {
			freeOffset = off
		}
	}

	newEntry := entry{inUse: true, sector: sector, name: name}
	record := newEntry.marshal()

	writeOffset := freeOffset
	if writeOffset < 0 {
		writeOffset = length
	}
	if _, err := reg.WriteAt(ctx, dir, record[:], writeOffset); err != nil {
		return err
	}
	return nil
}

// Remove clears name's entry, leaving its slot free for reuse. Returns
// ErrNotFound if name is not present.
func Remove(ctx context.Context, reg *inode.Registry, dir *inode.Inode, name string) error {
	length, err := reg.Length(ctx, dir)
	if err != nil {
		return err
	}

	buf := make([]byte, RecordSize)
	for off := int64(0); off < length; off += RecordSize {
		n, err := reg.ReadAt(ctx, dir, buf, off)
		if err != nil {
			return err
		}
		if n < RecordSize {
			break
		}
		e := unmarshalEntry(buf)
		if e.inUse && e.name == name {
			cleared := entry{}
			record := cleared.marshal()
			_, err := reg.WriteAt(ctx, dir, record[:], off)
			return err
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// IsEmpty reports whether dir has no entries other than "." and "..".
func IsEmpty(ctx context.Context, reg *inode.Registry, dir *inode.Inode) (bool, error) {
	length, err := reg.Length(ctx, dir)
	if err != nil {
		return false, err
	}

	buf := make([]byte, RecordSize)
	for off := int64(0); off < length; off += RecordSize {
		n, err := reg.ReadAt(ctx, dir, buf, off)
		if err != nil {
			return false, err
		}
		if n < RecordSize {
			break
		}
		e := unmarshalEntry(buf)
		if e.inUse && e.name != "." && e.name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// Reserve grows dir so it has room for at least count entries without
// further allocation, by writing zeroed (free) records past its current
// length. A directory that already meets or exceeds the hint is untouched.
func Reserve(ctx context.Context, reg *inode.Registry, dir *inode.Inode, count int) error {
	length, err := reg.Length(ctx, dir)
	if err != nil {
		return err
	}

	have := int(length / RecordSize)
	if have >= count {
		return nil
	}

	var blank entry
	record := blank.marshal()
	for i := have; i < count; i++ {
		if _, err := reg.WriteAt(ctx, dir, record[:], int64(i)*RecordSize); err != nil {
			return err
		}
	}
	return nil
}

// InitDirectory populates a freshly created directory inode with the
// standard "." and ".." entries.
func InitDirectory(ctx context.Context, reg *inode.Registry, self *inode.Inode, selfSector, parentSector uint32) error {
	if err := Add(ctx, reg, self, ".", selfSector); err != nil {
		return err
	}
	return Add(ctx, reg, self, "..", parentSector)
}

// List returns the in-use entries of dir as (name, sector) pairs, for
// directory-listing callers.
func List(ctx context.Context, reg *inode.Registry, dir *inode.Inode) ([]Entry, error) {
	length, err := reg.Length(ctx, dir)
	if err != nil {
		return nil, err
	}

	var out []Entry
	buf := make([]byte, RecordSize)
	for off := int64(0); off < length; off += RecordSize {
		n, err := reg.ReadAt(ctx, dir, buf, off)
		if err != nil {
			return nil, err
		}
		if n < RecordSize {
			break
		}
		e := unmarshalEntry(buf)
		if e.inUse {
			out = append(out, Entry{Name: e.name, Sector: e.sector})
		}
	}
	return out, nil
}

// Entry is a directory listing entry exposed to callers outside this
// package.
type Entry struct {
	Name   string
	Sector uint32
}
