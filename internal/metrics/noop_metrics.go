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

import "context"

// NewNoopMetrics returns a MetricHandle whose methods do nothing, for
// callers that have not configured a metrics backend.
func NewNoopMetrics() MetricHandle {
	var n noopMetrics
	return &n
}

type noopMetrics struct{}

func (*noopMetrics) CacheHitCount(context.Context, int64, []Attr)      {}
func (*noopMetrics) CacheMissCount(context.Context, int64, []Attr)     {}
func (*noopMetrics) CacheEvictionCount(context.Context, int64, []Attr) {}
func (*noopMetrics) CacheFlushLatency(context.Context, float64, []Attr) {}

func (*noopMetrics) InodeOpenCount(context.Context, int64, []Attr)    {}
func (*noopMetrics) InodeCloseCount(context.Context, int64, []Attr)   {}
func (*noopMetrics) BytesReadCount(context.Context, int64, []Attr)    {}
func (*noopMetrics) BytesWrittenCount(context.Context, int64, []Attr) {}
