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

// Package namespace resolves path strings against a root directory and
// drives file/directory creation and removal. It composes inode.Registry
// and dirent operations; it never touches the cache or free-map directly
// except to allocate/release sectors for new or removed entries.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursefs/blockfs/dirent"
	"github.com/coursefs/blockfs/freemap"
	"github.com/coursefs/blockfs/inode"
)

var (
	// ErrInvalidArgument is returned for an empty path.
	ErrInvalidArgument = errors.New("namespace: invalid argument")

	// ErrNotFound is returned when a path component cannot be resolved.
	ErrNotFound = errors.New("namespace: not found")

	// ErrNotDir is returned when an interior path component, or the
	// parent of a create/remove target, is not a directory.
	ErrNotDir = errors.New("namespace: not a directory")

	// ErrExists is returned when creating a name that already exists in
	// its parent directory.
	ErrExists = dirent.ErrExists

	// ErrNotEmpty is returned when removing a non-empty directory.
	ErrNotEmpty = errors.New("namespace: directory not empty")
)

// Session is one logical caller's current-working-directory context. Each
// caller owns and threads through its own Session explicitly rather than
// having one implicitly attached to its thread or goroutine.
type Session struct {
	cwd string
}

// NewSession returns a Session rooted at "/".
func NewSession() *Session {
	return &Session{cwd: "/"}
}

// Cwd returns the session's current working directory.
func (s *Session) Cwd() string {
	return s.cwd
}

// Chdir sets the session's working directory to an already-resolved
// absolute path (callers should resolve via Namespace.Absolute first and
// confirm it names a directory before calling this).
func (s *Session) Chdir(absPath string) {
	s.cwd = absPath
}

// Namespace ties together an inode registry, a free-map, and the sector of
// the root directory's inode.
type Namespace struct {
	reg        *inode.Registry
	fm         *freemap.Map
	rootSector uint32
}

// New builds a Namespace over an already-formatted volume whose root
// directory inode lives at rootSector.
func New(reg *inode.Registry, fm *freemap.Map, rootSector uint32) *Namespace {
	return &Namespace{reg: reg, fm: fm, rootSector: rootSector}
}

// Absolute canonicalizes name against sess's working directory: if name is
// already absolute it is used as-is, otherwise it is appended to cwd. The
// result always has a trailing "/". An empty name is an invalid argument.
func (ns *Namespace) Absolute(sess *Session, name string) (string, error) {
	if name == "" {
		return "", ErrInvalidArgument
	}

	var p string
	if strings.HasPrefix(name, "/") {
		p = name
	} else {
		p = strings.TrimSuffix(sess.cwd, "/") + "/" + name
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p, nil
}

// tokenize splits a canonicalized absolute path into its ordered, non-empty
// components. A path of just "/" yields zero components (the root).
func tokenize(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// openFromDir resolves components against the root directory, opening and
// closing intermediate directory inodes as it recurses, and returns the
// inode named by the last component (or the root inode itself, for a
// zero-component path).
func (ns *Namespace) openFromDir(ctx context.Context, components []string) (*inode.Inode, error) {
	cur, err := ns.reg.Open(ctx, ns.rootSector)
	if err != nil {
		return nil, err
	}

	for i, comp := range components {
		sector, ok, err := dirent.Lookup(ctx, ns.reg, cur, comp)
		if err != nil {
			ns.reg.Close(ctx, cur)
			return nil, err
		}
		if !ok {
			ns.reg.Close(ctx, cur)
			return nil, ErrNotFound
		}

		if i == len(components)-1 {
			next, err := ns.reg.Open(ctx, sector)
			ns.reg.Close(ctx, cur)
			return next, err
		}

		next, err := ns.reg.Open(ctx, sector)
		if err != nil {
			ns.reg.Close(ctx, cur)
			return nil, err
		}
		isDir, err := ns.reg.IsDir(ctx, next)
		if err != nil {
			ns.reg.Close(ctx, cur)
			ns.reg.Close(ctx, next)
			return nil, err
		}
		if !isDir {
			ns.reg.Close(ctx, cur)
			ns.reg.Close(ctx, next)
			return nil, ErrNotDir
		}
		ns.reg.Close(ctx, cur)
		cur = next
	}

	return cur, nil
}

// OpenInode resolves name (file or directory) to its inode.
func (ns *Namespace) OpenInode(ctx context.Context, sess *Session, name string) (*inode.Inode, error) {
	path, err := ns.Absolute(sess, name)
	if err != nil {
		return nil, err
	}
	return ns.openFromDir(ctx, tokenize(path))
}

// Open resolves name to a file inode. If name names a directory, it
// returns (nil, nil) — this API yields file handles only.
func (ns *Namespace) Open(ctx context.Context, sess *Session, name string) (*inode.Inode, error) {
	in, err := ns.OpenInode(ctx, sess, name)
	if err != nil {
		return nil, err
	}
	isDir, err := ns.reg.IsDir(ctx, in)
	if err != nil {
		ns.reg.Close(ctx, in)
		return nil, err
	}
	if isDir {
		ns.reg.Close(ctx, in)
		return nil, nil
	}
	return in, nil
}

func splitParentAndLeaf(components []string) ([]string, string, error) {
	if len(components) == 0 {
		return nil, "", ErrInvalidArgument
	}
	return components[:len(components)-1], components[len(components)-1], nil
}

// create is shared by Create and CreateDir.
func (ns *Namespace) create(ctx context.Context, sess *Session, name string, initialSize int64, isDir bool) error {
	path, err := ns.Absolute(sess, name)
	if err != nil {
		return err
	}
	parentComponents, leaf, err := splitParentAndLeaf(tokenize(path))
	if err != nil {
		return err
	}

	parent, err := ns.openFromDir(ctx, parentComponents)
	if err != nil {
		return err
	}
	defer ns.reg.Close(ctx, parent)

	parentIsDir, err := ns.reg.IsDir(ctx, parent)
	if err != nil {
		return err
	}
	if !parentIsDir {
		return ErrNotDir
	}

	sector, err := ns.fm.Allocate()
	if err != nil {
		return fmt.Errorf("namespace: allocate inode sector: %w", err)
	}
	if err := ns.reg.Create(ctx, sector, initialSize, isDir); err != nil {
		ns.fm.Release(sector)
		return err
	}

	if isDir {
		self, err := ns.reg.Open(ctx, sector)
		if err != nil {
			ns.fm.Release(sector)
			return err
		}
		if err := dirent.InitDirectory(ctx, ns.reg, self, sector, parent.Inumber()); err != nil {
			ns.reg.Close(ctx, self)
			ns.fm.Release(sector)
			return err
		}
		ns.reg.Close(ctx, self)
	}

	if err := dirent.Add(ctx, ns.reg, parent, leaf, sector); err != nil {
		ns.fm.Release(sector)
		return err
	}
	return nil
}

// Create creates a file named name with initialSize bytes of (zero)
// content.
func (ns *Namespace) Create(ctx context.Context, sess *Session, name string, initialSize int64) error {
	return ns.create(ctx, sess, name, initialSize, false)
}

// CreateDir creates an empty directory named name.
func (ns *Namespace) CreateDir(ctx context.Context, sess *Session, name string) error {
	return ns.create(ctx, sess, name, 0, true)
}

// Remove unlinks name from its parent directory. If name is a non-empty
// directory, the remove is rejected. The removed inode's blocks are not
// reclaimed until its last open handle closes.
func (ns *Namespace) Remove(ctx context.Context, sess *Session, name string) error {
	path, err := ns.Absolute(sess, name)
	if err != nil {
		return err
	}
	parentComponents, leaf, err := splitParentAndLeaf(tokenize(path))
	if err != nil {
		return err
	}

	parent, err := ns.openFromDir(ctx, parentComponents)
	if err != nil {
		return err
	}
	defer ns.reg.Close(ctx, parent)

	childSector, ok, err := dirent.Lookup(ctx, ns.reg, parent, leaf)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	child, err := ns.reg.Open(ctx, childSector)
	if err != nil {
		return err
	}
	defer ns.reg.Close(ctx, child)

	isDir, err := ns.reg.IsDir(ctx, child)
	if err != nil {
		return err
	}
	if isDir {
		empty, err := dirent.IsEmpty(ctx, ns.reg, child)
		if err != nil {
			return err
		}
		if !empty {
			return ErrNotEmpty
		}
	}

	if err := dirent.Remove(ctx, ns.reg, parent, leaf); err != nil {
		return err
	}
	ns.reg.Remove(child)
	return nil
}
