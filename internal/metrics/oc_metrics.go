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

package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/coursefs/blockfs/internal/logger"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	ocMetric    *ocMetrics
	ocInitError error
	ocOnce      sync.Once
)

type ocMetrics struct {
	cacheHitCount      *stats.Int64Measure
	cacheMissCount     *stats.Int64Measure
	cacheEvictionCount *stats.Int64Measure
	cacheFlushLatency  *stats.Float64Measure

	inodeOpenCount    *stats.Int64Measure
	inodeCloseCount   *stats.Int64Measure
	bytesReadCount    *stats.Int64Measure
	bytesWrittenCount *stats.Int64Measure
}

func attrsToTags(attrs []Attr) []tag.Mutator {
	mutators := make([]tag.Mutator, 0, len(attrs))
	for _, attr := range attrs {
		mutators = append(mutators, tag.Upsert(tag.MustNewKey(attr.Key), attr.Value))
	}
	return mutators
}

func recordOCMetric(ctx context.Context, m *stats.Int64Measure, inc int64, attrs []Attr, name string) {
	if err := stats.RecordWithTags(ctx, attrsToTags(attrs), m.M(inc)); err != nil {
		logger.Errorf("cannot record %s: %v: %v", name, attrs, err)
	}
}

func recordOCLatencyMetric(ctx context.Context, m *stats.Float64Measure, v float64, attrs []Attr, name string) {
	if err := stats.RecordWithTags(ctx, attrsToTags(attrs), m.M(v)); err != nil {
		logger.Errorf("cannot record %s: %v: %v", name, attrs, err)
	}
}

func (o *ocMetrics) CacheHitCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.cacheHitCount, inc, attrs, "cache hit count")
}

func (o *ocMetrics) CacheMissCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.cacheMissCount, inc, attrs, "cache miss count")
}

func (o *ocMetrics) CacheEvictionCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.cacheEvictionCount, inc, attrs, "cache eviction count")
}

func (o *ocMetrics) CacheFlushLatency(ctx context.Context, latencyUs float64, attrs []Attr) {
	recordOCLatencyMetric(ctx, o.cacheFlushLatency, latencyUs, attrs, "cache flush latency")
}

func (o *ocMetrics) InodeOpenCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.inodeOpenCount, inc, attrs, "inode open count")
}

func (o *ocMetrics) InodeCloseCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.inodeCloseCount, inc, attrs, "inode close count")
}

func (o *ocMetrics) BytesReadCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.bytesReadCount, inc, attrs, "bytes read count")
}

func (o *ocMetrics) BytesWrittenCount(ctx context.Context, inc int64, attrs []Attr) {
	recordOCMetric(ctx, o.bytesWrittenCount, inc, attrs, "bytes written count")
}

// NewOCMetrics returns the process-wide OpenCensus-backed MetricHandle,
// registering its views on first call.
func NewOCMetrics() (MetricHandle, error) {
	ocOnce.Do(func() {
		ocMetric, ocInitError = initOCMetrics()
	})
	return ocMetric, ocInitError
}

func initOCMetrics() (*ocMetrics, error) {
	cacheHitCount := stats.Int64("cache/hit_count", "The number of buffer cache hits.", stats.UnitDimensionless)
	cacheMissCount := stats.Int64("cache/miss_count", "The number of buffer cache misses.", stats.UnitDimensionless)
	cacheEvictionCount := stats.Int64("cache/eviction_count", "The number of buffer cache evictions.", stats.UnitDimensionless)
	cacheFlushLatency := stats.Float64("cache/flush_latency", "Latency of a dirty-sector flush to the block device.", "us")

	inodeOpenCount := stats.Int64("inode/open_count", "The number of inode opens, counting reopens of an already-live inode.", stats.UnitDimensionless)
	inodeCloseCount := stats.Int64("inode/close_count", "The number of inode closes.", stats.UnitDimensionless)
	bytesReadCount := stats.Int64("inode/bytes_read_count", "The cumulative number of bytes read from file inodes.", stats.UnitBytes)
	bytesWrittenCount := stats.Int64("inode/bytes_written_count", "The cumulative number of bytes written to file inodes.", stats.UnitBytes)

	if err := view.Register(
		&view.View{
			Name:        "cache/hit_count",
			Measure:     cacheHitCount,
			Description: "The cumulative number of buffer cache hits.",
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{tag.MustNewKey(SectorOp)},
		},
		&view.View{
			Name:        "cache/miss_count",
			Measure:     cacheMissCount,
			Description: "The cumulative number of buffer cache misses.",
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{tag.MustNewKey(SectorOp)},
		},
		&view.View{
			Name:        "cache/eviction_count",
			Measure:     cacheEvictionCount,
			Description: "The cumulative number of buffer cache evictions.",
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        "cache/flush_latencies",
			Measure:     cacheFlushLatency,
			Description: "The distribution of dirty-sector flush latencies.",
			Aggregation: ochttp.DefaultLatencyDistribution,
		},
		&view.View{
			Name:        "inode/open_count",
			Measure:     inodeOpenCount,
			Description: "The cumulative number of inode opens.",
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{tag.MustNewKey(FSOp)},
		},
		&view.View{
			Name:        "inode/close_count",
			Measure:     inodeCloseCount,
			Description: "The cumulative number of inode closes.",
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{tag.MustNewKey(FSOp)},
		},
		&view.View{
			Name:        "inode/bytes_read_count",
			Measure:     bytesReadCount,
			Description: "The cumulative number of bytes read from file inodes.",
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        "inode/bytes_written_count",
			Measure:     bytesWrittenCount,
			Description: "The cumulative number of bytes written to file inodes.",
			Aggregation: view.Sum(),
		},
	); err != nil {
		return nil, fmt.Errorf("failed to register OpenCensus views: %w", err)
	}

	return &ocMetrics{
		cacheHitCount:      cacheHitCount,
		cacheMissCount:     cacheMissCount,
		cacheEvictionCount: cacheEvictionCount,
		cacheFlushLatency:  cacheFlushLatency,
		inodeOpenCount:     inodeOpenCount,
		inodeCloseCount:    inodeCloseCount,
		bytesReadCount:     bytesReadCount,
		bytesWrittenCount:  bytesWrittenCount,
	}, nil
}
