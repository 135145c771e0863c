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

	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics is a Prometheus-backed MetricHandle that registers its
// collectors on a caller-supplied Registerer. Nothing in cmd or volume
// constructs one; volume's metrics option uses the OpenCensus backend.
type promMetrics struct {
	cacheHitCount      *prometheus.CounterVec
	cacheMissCount     *prometheus.CounterVec
	cacheEvictionCount prometheus.Counter
	cacheFlushLatency  prometheus.Histogram

	inodeOpenCount    *prometheus.CounterVec
	inodeCloseCount   *prometheus.CounterVec
	bytesReadCount    prometheus.Counter
	bytesWrittenCount prometheus.Counter
}

// NewPrometheusMetrics builds a MetricHandle backed by the given registerer,
// registering its collectors immediately.
func NewPrometheusMetrics(reg prometheus.Registerer) MetricHandle {
	m := &promMetrics{
		cacheHitCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfs_cache_hit_count",
			Help: "Number of buffer cache hits.",
		}, []string{SectorOp}),
		cacheMissCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfs_cache_miss_count",
			Help: "Number of buffer cache misses.",
		}, []string{SectorOp}),
		cacheEvictionCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfs_cache_eviction_count",
			Help: "Number of buffer cache evictions.",
		}),
		cacheFlushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blockfs_cache_flush_latency_us",
			Help:    "Latency of a dirty-sector flush to the block device, in microseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 20),
		}),
		inodeOpenCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfs_inode_open_count",
			Help: "Number of inode opens.",
		}, []string{FSOp}),
		inodeCloseCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockfs_inode_close_count",
			Help: "Number of inode closes.",
		}, []string{FSOp}),
		bytesReadCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfs_inode_bytes_read_count",
			Help: "Cumulative bytes read from file inodes.",
		}),
		bytesWrittenCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockfs_inode_bytes_written_count",
			Help: "Cumulative bytes written to file inodes.",
		}),
	}
	reg.MustRegister(
		m.cacheHitCount, m.cacheMissCount, m.cacheEvictionCount, m.cacheFlushLatency,
		m.inodeOpenCount, m.inodeCloseCount, m.bytesReadCount, m.bytesWrittenCount,
	)
	return m
}

func firstAttrValue(attrs []Attr, def string) string {
	if len(attrs) == 0 {
		return def
	}
	return attrs[0].Value
}

func (m *promMetrics) CacheHitCount(_ context.Context, inc int64, attrs []Attr) {
	m.cacheHitCount.WithLabelValues(firstAttrValue(attrs, "")).Add(float64(inc))
}

func (m *promMetrics) CacheMissCount(_ context.Context, inc int64, attrs []Attr) {
	m.cacheMissCount.WithLabelValues(firstAttrValue(attrs, "")).Add(float64(inc))
}

func (m *promMetrics) CacheEvictionCount(_ context.Context, inc int64, _ []Attr) {
	m.cacheEvictionCount.Add(float64(inc))
}

func (m *promMetrics) CacheFlushLatency(_ context.Context, latencyUs float64, _ []Attr) {
	m.cacheFlushLatency.Observe(latencyUs)
}

func (m *promMetrics) InodeOpenCount(_ context.Context, inc int64, attrs []Attr) {
	m.inodeOpenCount.WithLabelValues(firstAttrValue(attrs, "")).Add(float64(inc))
}

func (m *promMetrics) InodeCloseCount(_ context.Context, inc int64, attrs []Attr) {
	m.inodeCloseCount.WithLabelValues(firstAttrValue(attrs, "")).Add(float64(inc))
}

func (m *promMetrics) BytesReadCount(_ context.Context, inc int64, _ []Attr) {
	m.bytesReadCount.Add(float64(inc))
}

func (m *promMetrics) BytesWrittenCount(_ context.Context, inc int64, _ []Attr) {
	m.bytesWrittenCount.Add(float64(inc))
}
