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

// Package cache is the buffer cache: a bounded, write-back, LRU-ordered
// pool of in-memory sector copies, and the single serialization point for
// all device I/O. Every exported method takes the cache-wide lock for its
// entire duration, including any device I/O it performs.
package cache

import (
	"container/list"
	"context"
	"fmt"

	"github.com/coursefs/blockfs/blockdev"
	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

type cacheEntry struct {
	sector uint32
	data   [blockdev.SectorSize]byte
	dirty  bool
}

// Cache is the process-wide buffer cache. The zero value is not usable;
// construct with New.
type Cache struct {
	// Mu guards every field below. Callers outside this package never take
	// Mu directly — it exists so checkInvariants can run under race-y test
	// builds.
	Mu syncutil.InvariantMutex

	dev     blockdev.Device
	max     int
	index   map[uint32]*list.Element // sector -> element in recency; front = MRU
	recency *list.List
	clock   timeutil.Clock
	metrics metrics.MetricHandle
}

// New builds a Cache bounded to max live entries, backed by dev.
func New(dev blockdev.Device, max int, m metrics.MetricHandle) *Cache {
	if max <= 0 {
		panic("cache: max must be positive")
	}
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	c := &Cache{
		dev:     dev,
		max:     max,
		index:   make(map[uint32]*list.Element, max),
		recency: list.New(),
		clock:   timeutil.RealClock(),
		metrics: m,
	}
	c.Mu = syncutil.NewInvariantMutex(c.checkInvariants)
	return c
}

func (c *Cache) checkInvariants() {
	if len(c.index) > c.max {
		panic(fmt.Sprintf("cache: %d live entries exceeds max %d", len(c.index), c.max))
	}
	if c.recency.Len() != len(c.index) {
		panic(fmt.Sprintf("cache: recency list has %d entries, index has %d", c.recency.Len(), len(c.index)))
	}
}

// evictLocked drops the least-recently-used entry, flushing it first if
// dirty. Callers must hold Mu and must only call this when the cache is at
// capacity.
func (c *Cache) evictLocked(ctx context.Context) error {
	back := c.recency.Back()
	if back == nil {
		return nil
	}
	victim := back.Value.(*cacheEntry)
	if victim.dirty {
		if err := c.flushEntryLocked(ctx, victim); err != nil {
			return fmt.Errorf("flush victim sector %d during eviction: %w", victim.sector, err)
		}
	}
	c.recency.Remove(back)
	delete(c.index, victim.sector)
	c.metrics.CacheEvictionCount(ctx, 1, nil)
	return nil
}

func (c *Cache) flushEntryLocked(ctx context.Context, e *cacheEntry) error {
	start := c.clock.Now()
	if err := c.dev.WriteSector(e.sector, e.data[:]); err != nil {
		return err
	}
	e.dirty = false
	c.metrics.CacheFlushLatency(ctx, float64(c.clock.Now().Sub(start).Microseconds()), nil)
	return nil
}

// resolve returns the entry for sector, populating it with populate if the
// entry must be admitted fresh (populate may be nil, leaving a zeroed
// entry). It promotes the entry to MRU and reports whether this was a hit.
func (c *Cache) resolve(ctx context.Context, sector uint32, populate func(dst *[blockdev.SectorSize]byte) error) (*cacheEntry, bool, error) {
	if el, ok := c.index[sector]; ok {
		c.recency.MoveToFront(el)
		return el.Value.(*cacheEntry), true, nil
	}

	if len(c.index) >= c.max {
		if err := c.evictLocked(ctx); err != nil {
			return nil, false, err
		}
	}

	e := &cacheEntry{sector: sector}
	if populate != nil {
		if err := populate(&e.data); err != nil {
			return nil, false, err
		}
	}
	el := c.recency.PushFront(e)
	c.index[sector] = el
	return e, false, nil
}

func (c *Cache) recordAdmission(ctx context.Context, op string, hit bool) {
	attrs := []metrics.Attr{{Key: metrics.SectorOp, Value: op}}
	if hit {
		c.metrics.CacheHitCount(ctx, 1, attrs)
	} else {
		c.metrics.CacheMissCount(ctx, 1, attrs)
	}
}

// Read copies length bytes from sector's data[offset:] into dest.
// offset+length must be <= SectorSize. A zero-length read is a no-op: it
// does not touch LRU order or force admission.
func (c *Cache) Read(ctx context.Context, sector uint32, dest []byte, offset, length int) error {
	if length == 0 {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > blockdev.SectorSize {
		return fmt.Errorf("cache: read range [%d,%d) out of sector bounds", offset, offset+length)
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	e, hit, err := c.resolve(ctx, sector, func(dst *[blockdev.SectorSize]byte) error {
		return c.dev.ReadSector(sector, dst[:])
	})
	if err != nil {
		return err
	}
	c.recordAdmission(ctx, "read", hit)
	copy(dest[:length], e.data[offset:offset+length])
	return nil
}

// Write copies length bytes from src into sector's data[offset:], marking
// the entry dirty. A zero-length write is a no-op.
func (c *Cache) Write(ctx context.Context, sector uint32, src []byte, offset, length int) error {
	if length == 0 {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > blockdev.SectorSize {
		return fmt.Errorf("cache: write range [%d,%d) out of sector bounds", offset, offset+length)
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	e, hit, err := c.resolve(ctx, sector, func(dst *[blockdev.SectorSize]byte) error {
		return c.dev.ReadSector(sector, dst[:])
	})
	if err != nil {
		return err
	}
	c.recordAdmission(ctx, "write", hit)
	copy(e.data[offset:offset+length], src[:length])
	e.dirty = true
	return nil
}

// Create allocates a zero-filled cache entry for a newly allocated sector,
// without reading from disk. Calling Create on a sector that is already
// cached is a recoverable no-op that clears the existing entry's dirty bit
// and leaves its recency position untouched.
func (c *Cache) Create(ctx context.Context, sector uint32) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if el, ok := c.index[sector]; ok {
		el.Value.(*cacheEntry).dirty = false
		return nil
	}

	_, _, err := c.resolve(ctx, sector, nil)
	return err
}

// Remove drops sector's entry without flushing it. A no-op if the sector
// is not cached.
func (c *Cache) Remove(sector uint32) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	el, ok := c.index[sector]
	if !ok {
		return
	}
	c.recency.Remove(el)
	delete(c.index, sector)
}

// FlushAll writes back every dirty entry without changing membership.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	for el := c.recency.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry)
		if e.dirty {
			if err := c.flushEntryLocked(ctx, e); err != nil {
				return fmt.Errorf("flush sector %d: %w", e.sector, err)
			}
		}
	}
	return nil
}

// Shutdown flushes every dirty entry then drops all entries.
func (c *Cache) Shutdown(ctx context.Context) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	for el := c.recency.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry)
		if e.dirty {
			if err := c.flushEntryLocked(ctx, e); err != nil {
				return fmt.Errorf("flush sector %d during shutdown: %w", e.sector, err)
			}
		}
	}
	c.index = make(map[uint32]*list.Element, c.max)
	c.recency.Init()
	return nil
}

// Len reports the number of live entries, for tests and metrics.
func (c *Cache) Len() int {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return len(c.index)
}
