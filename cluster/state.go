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
	"log/slog"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/streamnative/shardsim/common"

	"github.com/streamnative/shardsim/cluster/model"
)

// ClusterState models the control-plane metadata of the whole cluster: the
// set of storage nodes and the cluster-wide shard-to-team assignment map.
// The two are mutated independently by the driving workload; the query
// methods cross-check that they stayed mutually consistent.
//
// Shard status contract, for every assigned key range R:
//   - R is static: assignment[R].dest is empty and every node of
//     assignment[R].source reports shards[R] = Completed.
//   - R is in motion: assignment[R].dest is non-empty, every source node
//     reports Completed, and every dest node reports InFlight or Completed.
//   - R is lost: assignment[R].dest is empty and every source node
//     reports Empty.
//
// Server status contract, for a node X:
//   - removed: X appears in neither the assignment map nor the node set.
//   - healthy: X is present in the node set.
//   - failed but not yet removed: X is present in the node set but absent
//     from every assignment entry.
type ClusterState struct {
	nodes      map[model.NodeID]*StorageNode
	assignment *ShardToTeamMap
	config     model.ClusterConfig

	log *slog.Logger
}

func NewClusterState() *ClusterState {
	return &ClusterState{
		nodes:      make(map[model.NodeID]*StorageNode),
		assignment: NewShardToTeamMap(model.FullKeyRange()),
		config:     model.NewClusterConfig(),
		log:        slog.With(slog.String("component", "cluster-state")),
	}
}

// InitializeEmptyCluster resets the model to a freshly bootstrapped
// cluster: one empty shard covering the whole key space, held Completed at
// size zero by a single team of config.StorageTeamSize nodes, with no move
// in progress.
func (c *ClusterState) InitializeEmptyCluster(config model.ClusterConfig, defaultDiskSpace uint64) error {
	if err := config.Validate(); err != nil {
		return err
	}
	c.config = config
	c.nodes = make(map[model.NodeID]*StorageNode)
	c.assignment = NewShardToTeamMap(model.FullKeyRange())

	band := SizeBand{Min: config.MinShardSize, Max: config.MaxShardSize}
	nodeIDs := make([]model.NodeID, 0, config.StorageTeamSize)
	for i := uint32(1); i <= config.StorageTeamSize; i++ {
		id := model.IndexToNodeID(i)
		nodeIDs = append(nodeIDs, id)

		node := NewStorageNode(model.ServerForNodeID(id), defaultDiskSpace)
		node.sizeBand = band
		if err := node.seedShard(model.FullKeyRange(), model.ShardRecord{
			Status: model.ShardStatusCompleted,
			Size:   0,
		}); err != nil {
			return err
		}
		c.nodes[id] = node
	}

	if err := c.assignment.AssignRange(model.FullKeyRange(), model.NewTeam(true, nodeIDs...)); err != nil {
		return err
	}

	c.log.Info(
		"Initialized empty cluster",
		slog.Int("team-size", int(config.StorageTeamSize)),
	)
	return nil
}

// AddStorageNode registers a new node with an empty shard map and the given
// disk budget. Registering an id twice is a caller error.
func (c *ClusterState) AddStorageNode(server model.Server, diskSpace uint64) (*StorageNode, error) {
	id := server.GetNodeID()
	if _, ok := c.nodes[id]; ok {
		return nil, errors.Wrapf(ErrNodeAlreadyExists, "node %s", id)
	}
	node := NewStorageNode(server, diskSpace)
	node.sizeBand = SizeBand{Min: c.config.MinShardSize, Max: c.config.MaxShardSize}
	c.nodes[id] = node
	return node, nil
}

// RemoveStorageNode prunes a node object once nothing in the assignment map
// references it anymore.
func (c *ClusterState) RemoveStorageNode(id model.NodeID) error {
	if _, ok := c.nodes[id]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "node %s", id)
	}
	if c.assignment.ShardCountForNode(id) > 0 {
		return errors.Wrapf(ErrNodeStillAssigned, "node %s", id)
	}
	delete(c.nodes, id)
	return nil
}

// Node returns the storage node registered under id, if any.
func (c *ClusterState) Node(id model.NodeID) (*StorageNode, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// NodeCount returns the number of registered nodes.
func (c *ClusterState) NodeCount() int {
	return len(c.nodes)
}

// Assignment exposes the shard-to-team map; the driving workload is its
// sole mutator.
func (c *ClusterState) Assignment() *ShardToTeamMap {
	return c.assignment
}

func (c *ClusterState) Config() model.ClusterConfig {
	return c.config
}

// ServerIsSourceForShard reports whether the node belongs to the source
// team of the shard and holds all of it Completed. With inFlight false the
// shard must be static (no destination team); with inFlight true it must
// be in motion.
func (c *ClusterState) ServerIsSourceForShard(id model.NodeID, shard model.KeyRange, inFlight bool) bool {
	node, ok := c.nodes[id]
	if !ok {
		return false
	}
	if !node.AllShardStatusEqual(shard, model.ShardStatusCompleted) {
		return false
	}

	source, dest, err := c.assignment.TeamsFor(shard)
	if err != nil {
		return false
	}
	if inFlight != (len(dest) > 0) {
		return false
	}
	return model.AnyTeamHasNode(source, id)
}

// ServerIsDestForShard reports whether the node belongs to a non-empty
// destination team of the shard and reports the whole shard InFlight or
// Completed (a destination may have finished fetching before the move is
// promoted).
func (c *ClusterState) ServerIsDestForShard(id model.NodeID, shard model.KeyRange) bool {
	node, ok := c.nodes[id]
	if !ok {
		return false
	}
	if !node.AllShardStatusIn(shard, model.ShardStatusInFlight, model.ShardStatusCompleted) {
		return false
	}

	_, dest, err := c.assignment.TeamsFor(shard)
	if err != nil {
		return false
	}
	return len(dest) > 0 && model.AnyTeamHasNode(dest, id)
}

// AllShardsRemovedFromServer reports whether the node appears in no entry
// of the assignment map, regardless of whether its object still exists in
// the node set. Combined with Node it distinguishes "failed but not yet
// removed" from fully removed.
func (c *ClusterState) AllShardsRemovedFromServer(id model.NodeID) bool {
	return c.assignment.ShardCountForNode(id) == 0
}

// ShardIsLost reports whether the shard has no destination team and every
// source node verified data loss for it.
func (c *ClusterState) ShardIsLost(shard model.KeyRange) bool {
	source, dest, err := c.assignment.TeamsFor(shard)
	if err != nil || len(source) == 0 || len(dest) > 0 {
		return false
	}
	for _, team := range source {
		for _, id := range team.Nodes {
			node, ok := c.nodes[id]
			if !ok || !node.AllShardStatusEqual(shard, model.ShardStatusEmpty) {
				return false
			}
		}
	}
	return true
}

// CheckConsistency validates the shard status contract over every entry of
// the assignment map, aggregating all violations.
func (c *ClusterState) CheckConsistency() error {
	var err error
	for _, e := range c.assignment.Entries() {
		err = multierr.Append(err, c.checkEntry(e))
	}
	return err
}

func (c *ClusterState) checkEntry(e AssignmentEntry) error {
	var err error

	sourceNodes := make([]*StorageNode, 0)
	for _, team := range e.Source {
		for _, id := range team.Nodes {
			node, ok := c.nodes[id]
			if !ok {
				err = multierr.Append(err, errors.Errorf(
					"range %s references unknown source node %s", e.Range, id))
				continue
			}
			sourceNodes = append(sourceNodes, node)
		}
	}

	if len(e.Dest) == 0 {
		// static or lost, decided per sub-range: node shard maps may be
		// split finer than the assignment entry, and a uniformly lost
		// sub-range next to a held one is still a legal state
		for _, sub := range subRanges(sourceNodes, e.Range) {
			completed, empty := 0, 0
			for _, node := range sourceNodes {
				if node.AllShardStatusEqual(sub, model.ShardStatusCompleted) {
					completed++
				}
				if node.AllShardStatusEqual(sub, model.ShardStatusEmpty) {
					empty++
				}
			}
			if completed != len(sourceNodes) && empty != len(sourceNodes) {
				err = multierr.Append(err, errors.Errorf(
					"range %s is neither static nor lost: %d/%d sources completed, %d empty",
					sub, completed, len(sourceNodes), empty))
			}
		}
		return err
	}

	// in motion: sources all Completed, dest nodes InFlight or Completed.
	// Both predicates require a uniform status over every sub-entry, so
	// checking the whole range is already equivalent to checking each
	// sub-range of the partition.
	for _, node := range sourceNodes {
		if !node.AllShardStatusEqual(e.Range, model.ShardStatusCompleted) {
			err = multierr.Append(err, errors.Errorf(
				"range %s in motion but source node %s is not Completed", e.Range, node.ID()))
		}
	}
	for _, team := range e.Dest {
		for _, id := range team.Nodes {
			node, ok := c.nodes[id]
			if !ok {
				err = multierr.Append(err, errors.Errorf(
					"range %s references unknown dest node %s", e.Range, id))
				continue
			}
			if !node.AllShardStatusIn(e.Range, model.ShardStatusInFlight, model.ShardStatusCompleted) {
				err = multierr.Append(err, errors.Errorf(
					"range %s in motion but dest node %s is neither InFlight nor Completed",
					e.Range, id))
			}
		}
	}
	return err
}

// subRanges partitions r at the union of the nodes' shard boundaries, so
// that every returned sub-range is uniform on every node.
func subRanges(nodes []*StorageNode, r model.KeyRange) []model.KeyRange {
	cutSet := common.NewSet[model.Key]()
	cutSet.Add(r.Start)
	cutSet.Add(r.End)
	for _, n := range nodes {
		entries, err := n.shards.Intersecting(r)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if r.ContainsKey(e.Range.Start) {
				cutSet.Add(e.Range.Start)
			}
			if r.ContainsKey(e.Range.End) {
				cutSet.Add(e.Range.End)
			}
		}
	}

	cuts := cutSet.GetSorted()
	res := make([]model.KeyRange, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		res = append(res, model.KeyRange{Start: cuts[i], End: cuts[i+1]})
	}
	return res
}
