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
	"github.com/streamnative/shardsim/cluster/model"
)

// ShardRangeStatus is one entry of a node's shard map, as reported in a
// status snapshot.
type ShardRangeStatus struct {
	Range  model.KeyRange    `json:"range" yaml:"range"`
	Status model.ShardStatus `json:"status" yaml:"status"`
	Size   uint64            `json:"size" yaml:"size"`
}

type NodeStatus struct {
	Server             model.Server       `json:"server" yaml:"server"`
	UsedDiskSpace      uint64             `json:"usedDiskSpace" yaml:"usedDiskSpace"`
	AvailableDiskSpace uint64             `json:"availableDiskSpace" yaml:"availableDiskSpace"`
	Primary            bool               `json:"primary" yaml:"primary"`
	Shards             []ShardRangeStatus `json:"shards" yaml:"shards"`
}

// ClusterStatus is a point-in-time snapshot of the modeled cluster,
// detached from the live structures.
type ClusterStatus struct {
	Nodes      map[model.NodeID]NodeStatus `json:"nodes" yaml:"nodes"`
	Assignment []AssignmentEntry           `json:"assignment" yaml:"assignment"`
}

// Status captures the current state of every node and the assignment map.
func (c *ClusterState) Status() *ClusterStatus {
	res := &ClusterStatus{
		Nodes:      make(map[model.NodeID]NodeStatus),
		Assignment: c.assignment.Entries(),
	}

	for id, node := range c.nodes {
		shards := make([]ShardRangeStatus, 0)
		for _, e := range node.Ranges() {
			shards = append(shards, ShardRangeStatus{
				Range:  e.Range,
				Status: e.Value.Status,
				Size:   e.Value.Size,
			})
		}
		res.Nodes[id] = NodeStatus{
			Server:             node.Server(),
			UsedDiskSpace:      node.UsedDiskSpace(),
			AvailableDiskSpace: node.AvailableDiskSpace(),
			Primary:            node.IsPrimary(),
			Shards:             shards,
		}
	}
	return res
}
