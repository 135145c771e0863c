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

	"github.com/stretchr/testify/mock"
)

// MockMetricHandle is a testify mock for asserting which metrics a code
// path records, without wiring a real OpenCensus or Prometheus registry.
type MockMetricHandle struct {
	mock.Mock
}

func (m *MockMetricHandle) CacheHitCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) CacheMissCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) CacheEvictionCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) CacheFlushLatency(ctx context.Context, latencyUs float64, attrs []Attr) {
	m.Called(ctx, latencyUs, attrs)
}

func (m *MockMetricHandle) InodeOpenCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) InodeCloseCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) BytesReadCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}

func (m *MockMetricHandle) BytesWrittenCount(ctx context.Context, inc int64, attrs []Attr) {
	m.Called(ctx, inc, attrs)
}
