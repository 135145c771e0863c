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

// Package metrics is blockfs's instrumentation surface: cache hit/miss/
// eviction counts, inode open/close counts, and the byte counters behind
// them, exposed through a backend-agnostic MetricHandle so callers never
// import OpenCensus or Prometheus directly.
package metrics

import (
	"context"
	"fmt"
)

// Attr is a single tag/label attached to a recorded measurement.
type Attr struct {
	Key, Value string
}

func (a Attr) String() string {
	return fmt.Sprintf("%s=%s", a.Key, a.Value)
}

// Tag keys shared by every backend implementation.
const (
	// SectorOp annotates a cache hit/miss measurement with the op that
	// caused it: "read" or "write".
	SectorOp = "sector_op"

	// FSOp annotates an inode open measurement: "open" for a first open,
	// "reopen" for a further open of a live inode.
	FSOp = "fs_op"
)

// CacheMetricHandle records buffer-cache activity.
type CacheMetricHandle interface {
	CacheHitCount(ctx context.Context, inc int64, attrs []Attr)
	CacheMissCount(ctx context.Context, inc int64, attrs []Attr)
	CacheEvictionCount(ctx context.Context, inc int64, attrs []Attr)
	CacheFlushLatency(ctx context.Context, latencyUs float64, attrs []Attr)
}

// InodeMetricHandle records inode lifecycle and I/O activity.
type InodeMetricHandle interface {
	InodeOpenCount(ctx context.Context, inc int64, attrs []Attr)
	InodeCloseCount(ctx context.Context, inc int64, attrs []Attr)
	BytesReadCount(ctx context.Context, inc int64, attrs []Attr)
	BytesWrittenCount(ctx context.Context, inc int64, attrs []Attr)
}

// MetricHandle is the full surface volume/cache/inode code is instrumented
// against. Callers obtain one via NewOCMetrics, NewPrometheusMetrics or
// NewNoopMetrics and pass it down; nothing below this package knows which
// backend is in use.
type MetricHandle interface {
	CacheMetricHandle
	InodeMetricHandle
}
