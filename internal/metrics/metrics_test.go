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

package metrics_test

import (
	"context"
	"testing"

	"github.com/coursefs/blockfs/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNoopMetricsDoesNotPanic(t *testing.T) {
	h := metrics.NewNoopMetrics()
	ctx := context.Background()
	h.CacheHitCount(ctx, 1, []metrics.Attr{{Key: metrics.SectorOp, Value: "read"}})
	h.CacheMissCount(ctx, 1, nil)
	h.CacheEvictionCount(ctx, 1, nil)
	h.CacheFlushLatency(ctx, 12.5, nil)
	h.InodeOpenCount(ctx, 1, nil)
	h.InodeCloseCount(ctx, 1, nil)
	h.BytesReadCount(ctx, 512, nil)
	h.BytesWrittenCount(ctx, 512, nil)
}

func TestMockMetricsRecordsCalls(t *testing.T) {
	m := new(metrics.MockMetricHandle)
	m.On("CacheHitCount", mock.Anything, int64(1), mock.Anything).Return()
	m.CacheHitCount(context.Background(), 1, []metrics.Attr{{Key: metrics.SectorOp, Value: "read"}})
	m.AssertExpectations(t)
}

func TestPrometheusMetricsIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := metrics.NewPrometheusMetrics(reg)

	h.CacheHitCount(context.Background(), 3, []metrics.Attr{{Key: metrics.SectorOp, Value: "read"}})
	h.CacheEvictionCount(context.Background(), 1, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawHit, sawEviction bool
	for _, f := range families {
		switch f.GetName() {
		case "blockfs_cache_hit_count":
			sawHit = true
			assert.Equal(t, float64(3), sumCounters(f))
		case "blockfs_cache_eviction_count":
			sawEviction = true
			assert.Equal(t, float64(1), sumCounters(f))
		}
	}
	assert.True(t, sawHit)
	assert.True(t, sawEviction)
}

func sumCounters(f *dto.MetricFamily) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}
