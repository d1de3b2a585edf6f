// Copyright 2024 StreamNative, Inc.
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

package cluster

import (
	"github.com/streamnative/shardsim/common/metrics"
)

var (
	shardStatusTransitions = metrics.NewCounter("shardsim_shard_status_transitions",
		"The number of applied shard status transitions", metrics.Dimensionless, nil)

	shardSplits = metrics.NewCounter("shardsim_shard_splits",
		"The number of implicit shard boundary splits", metrics.Dimensionless, nil)
)

// ClusterMetrics holds the gauges observing one ClusterState. Gauges are
// registered explicitly rather than at construction so that short-lived
// model instances (tests) don't pile up callbacks.
type ClusterMetrics struct {
	gauges []metrics.Gauge
}

func (c *ClusterState) RegisterMetrics() *ClusterMetrics {
	m := &ClusterMetrics{}
	m.gauges = append(m.gauges,
		metrics.NewGauge("shardsim_nodes",
			"The number of registered storage nodes",
			metrics.Dimensionless, nil, func() int64 {
				return int64(c.NodeCount())
			}),
		metrics.NewGauge("shardsim_assigned_ranges",
			"The number of entries in the shard-to-team assignment map",
			metrics.Dimensionless, nil, func() int64 {
				return int64(len(c.assignment.Entries()))
			}),
		metrics.NewGauge("shardsim_ranges_in_motion",
			"The number of key ranges with an in-progress move",
			metrics.Dimensionless, nil, func() int64 {
				return int64(c.assignment.RangesInMotion())
			}),
		metrics.NewGauge("shardsim_used_disk_bytes",
			"The disk space used across all modeled nodes",
			metrics.Bytes, nil, func() int64 {
				var total uint64
				for _, n := range c.nodes {
					total += n.UsedDiskSpace()
				}
				return int64(total)
			}),
		metrics.NewGauge("shardsim_available_disk_bytes",
			"The disk budget across all modeled nodes",
			metrics.Bytes, nil, func() int64 {
				var total uint64
				for _, n := range c.nodes {
					total += n.AvailableDiskSpace()
				}
				return int64(total)
			}),
	)
	return m
}

func (m *ClusterMetrics) Unregister() {
	for _, g := range m.gauges {
		g.Unregister()
	}
}
