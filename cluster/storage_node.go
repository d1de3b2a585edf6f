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

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/streamnative/shardsim/cluster/model"
	"github.com/streamnative/shardsim/cluster/rangemap"
)

// DefaultDiskSpace is the disk budget given to a node when none is specified.
const DefaultDiskSpace = uint64(1000 * 1024 * 1024 * 1024)

// StorageNode models one storage server's view of its own shards, plus the
// control-plane statistics associated with it. The shard map is owned
// exclusively by the node: all mutation goes through its methods.
//
// Not safe for concurrent use; the driving simulation serializes access.
type StorageNode struct {
	id     model.NodeID
	server model.Server

	usedDiskSpace      uint64
	availableDiskSpace uint64

	// per-node counterpart of the serverKeys system keyspace
	shards *rangemap.RangeMap[model.ShardRecord]

	// key ranges whose byte samples have been invalidated
	byteSampleClears *rangemap.RangeMap[bool]

	// opaque sampled-metrics payload, stored and returned untouched
	sampledMetrics any

	primary bool

	sizeBand   SizeBand
	sizePolicy SizePolicy

	log *slog.Logger
}

func NewStorageNode(server model.Server, availableDiskSpace uint64) *StorageNode {
	id := server.GetNodeID()
	return &StorageNode{
		id:                 id,
		server:             server,
		availableDiskSpace: availableDiskSpace,
		shards:             rangemap.NewRangeMap(model.FullKeyRange(), model.ShardRecord{Status: model.ShardStatusUnset}),
		byteSampleClears:   rangemap.NewRangeMap(model.FullKeyRange(), false),
		primary:            true,
		sizeBand:           SizeBand{Min: model.DefaultMinShardSize, Max: model.DefaultMaxShardSize},
		sizePolicy:         NewRandomSizePolicy(0),
		log: slog.With(
			slog.String("component", "storage-node"),
			slog.String("node", string(id)),
		),
	}
}

// WithSizePolicy overrides the synthesized-size policy used by splits that
// do not conserve the original total.
func (n *StorageNode) WithSizePolicy(policy SizePolicy, band SizeBand) *StorageNode {
	n.sizePolicy = policy
	n.sizeBand = band
	return n
}

func (n *StorageNode) ID() model.NodeID {
	return n.id
}

func (n *StorageNode) Server() model.Server {
	return n.server
}

func (n *StorageNode) IsPrimary() bool {
	return n.primary
}

func (n *StorageNode) UsedDiskSpace() uint64 {
	return n.usedDiskSpace
}

func (n *StorageNode) AvailableDiskSpace() uint64 {
	return n.availableDiskSpace
}

// AdjustUsedDiskSpace applies a delta to the disk usage bookkeeping. Disk
// usage and shard sizes are tracked independently: callers keep them
// consistent through this API.
func (n *StorageNode) AdjustUsedDiskSpace(delta int64) error {
	if delta < 0 {
		// negate without overflowing on math.MinInt64
		dec := uint64(-(delta + 1)) + 1
		if dec > n.usedDiskSpace {
			return errors.Errorf("disk usage underflow: used %d, delta %d", n.usedDiskSpace, delta)
		}
		n.usedDiskSpace -= dec
		return nil
	}
	updated := n.usedDiskSpace + uint64(delta)
	if updated < n.usedDiskSpace || updated > n.availableDiskSpace {
		return errors.Errorf("disk usage %s exceeds budget %s",
			humanize.IBytes(updated), humanize.IBytes(n.availableDiskSpace))
	}
	n.usedDiskSpace = updated
	return nil
}

func (n *StorageNode) SetSampledMetrics(m any) {
	n.sampledMetrics = m
}

func (n *StorageNode) SampledMetrics() any {
	return n.sampledMetrics
}

// Ranges returns the node's shard map entries, sorted and coalesced.
func (n *StorageNode) Ranges() []rangemap.Entry[model.ShardRecord] {
	return n.shards.Ranges()
}

// AllShardStatusEqual reports whether every sub-entry overlapping r has
// exactly the given status. A malformed range is never equal to anything.
func (n *StorageNode) AllShardStatusEqual(r model.KeyRange, status model.ShardStatus) bool {
	entries, err := n.shards.Intersecting(r)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Value.Status != status {
			return false
		}
	}
	return true
}

// AllShardStatusIn reports whether every sub-entry overlapping r has one of
// the given statuses.
func (n *StorageNode) AllShardStatusIn(r model.KeyRange, statuses ...model.ShardStatus) bool {
	entries, err := n.shards.Intersecting(r)
	if err != nil {
		return false
	}
	for _, e := range entries {
		matched := false
		for _, s := range statuses {
			if e.Value.Status == s {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// SumRangeSize sums the recorded sizes of all sub-entries overlapping r.
// Each overlapping entry contributes its whole size: exact totals require
// r to be aligned to shard boundaries.
func (n *StorageNode) SumRangeSize(r model.KeyRange) (uint64, error) {
	return n.shards.SumBy(r, func(rec model.ShardRecord) uint64 {
		return rec.Size
	})
}

// SetShardStatus changes the status of r, splitting overlapping shards so
// that their boundaries align with r.Start and r.End. With restrictSize the
// sizes of the split pieces sum exactly to the pre-split shard; otherwise
// each piece gets a size drawn by the node's size policy. The transition is
// validated for every sub-range overlapping r before any state changes;
// re-asserting the current status is not a violation.
func (n *StorageNode) SetShardStatus(r model.KeyRange, status model.ShardStatus, restrictSize bool) error {
	entries, err := n.shards.Intersecting(r)
	if err != nil {
		return err
	}

	for _, e := range entries {
		old := e.Value.Status
		if !model.IsTransitionValid(old, status) && old != status {
			n.log.Error(
				"Invalid shard status transition",
				slog.String("from", old.String()),
				slog.String("to", status.String()),
				slog.String("range", e.Range.String()),
			)
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s on %s", old, status, e.Range)
		}
	}

	first := entries[0]
	last := entries[len(entries)-1]
	if len(entries) == 1 && first.Range.Start < r.Start && r.End < first.Range.End {
		n.threeWayShardSplitting(first, r, restrictSize)
	} else {
		if first.Range.Start < r.Start {
			n.twoWayShardSplitting(first, r.Start, restrictSize)
		}
		if last.Range.End > r.End {
			n.twoWayShardSplitting(last, r.End, restrictSize)
		}
	}

	// boundaries are aligned now; the covered pieces collapse into one
	// entry carrying their combined size
	covered, err := n.shards.Intersecting(r)
	if err != nil {
		return err
	}
	var newSize uint64
	for _, e := range covered {
		newSize += e.Value.Size
	}

	shardStatusTransitions.Inc()
	return n.shards.Set(r, model.ShardRecord{Status: status, Size: newSize})
}

// threeWayShardSplitting cuts the outer shard [a, d) at the boundaries of
// the inner range [b, c), producing [a, b), [b, c), [c, d).
func (n *StorageNode) threeWayShardSplitting(outer rangemap.Entry[model.ShardRecord], inner model.KeyRange, restrictSize bool) {
	var parts []uint64
	if restrictSize {
		parts = splitSizeEvenly(outer.Value.Size, 3)
	} else {
		parts = []uint64{
			n.sizePolicy(model.KeyRange{Start: outer.Range.Start, End: inner.Start}, n.sizeBand),
			n.sizePolicy(inner, n.sizeBand),
			n.sizePolicy(model.KeyRange{Start: inner.End, End: outer.Range.End}, n.sizeBand),
		}
	}

	_ = n.shards.SplitAt(inner.Start, func(old model.ShardRecord) (model.ShardRecord, model.ShardRecord) {
		return model.ShardRecord{Status: old.Status, Size: parts[0]},
			model.ShardRecord{Status: old.Status, Size: parts[1] + parts[2]}
	})
	_ = n.shards.SplitAt(inner.End, func(old model.ShardRecord) (model.ShardRecord, model.ShardRecord) {
		return model.ShardRecord{Status: old.Status, Size: parts[1]},
			model.ShardRecord{Status: old.Status, Size: parts[2]}
	})
	shardSplits.Add(2)
}

// twoWayShardSplitting cuts the shard containing splitPoint into two pieces.
func (n *StorageNode) twoWayShardSplitting(e rangemap.Entry[model.ShardRecord], splitPoint model.Key, restrictSize bool) {
	var left, right uint64
	if restrictSize {
		parts := splitSizeEvenly(e.Value.Size, 2)
		left, right = parts[0], parts[1]
	} else {
		left = n.sizePolicy(model.KeyRange{Start: e.Range.Start, End: splitPoint}, n.sizeBand)
		right = n.sizePolicy(model.KeyRange{Start: splitPoint, End: e.Range.End}, n.sizeBand)
	}

	_ = n.shards.SplitAt(splitPoint, func(old model.ShardRecord) (model.ShardRecord, model.ShardRecord) {
		return model.ShardRecord{Status: old.Status, Size: left},
			model.ShardRecord{Status: old.Status, Size: right}
	})
	shardSplits.Inc()
}

// RemoveShard erases an aligned range from the node, leaving the freed key
// space Unset. Misaligned calls signal caller misuse and fail without
// implicit splitting.
func (n *StorageNode) RemoveShard(r model.KeyRange) error {
	size, err := n.SumRangeSize(r)
	if err != nil {
		return err
	}
	if err = n.shards.Erase(r); err != nil {
		return err
	}
	n.log.Debug(
		"Removed shard",
		slog.String("range", r.String()),
		slog.String("size", humanize.IBytes(size)),
	)
	return nil
}

// ClearByteSample marks the byte samples of r as invalidated.
func (n *StorageNode) ClearByteSample(r model.KeyRange) error {
	return n.byteSampleClears.Set(r, true)
}

// ByteSampleCleared reports whether the byte samples of the whole of r have
// been invalidated.
func (n *StorageNode) ByteSampleCleared(r model.KeyRange) bool {
	entries, err := n.byteSampleClears.Intersecting(r)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.Value {
			return false
		}
	}
	return true
}

// seedShard installs a record directly, bypassing transition checks. Used
// only while bootstrapping a cluster.
func (n *StorageNode) seedShard(r model.KeyRange, rec model.ShardRecord) error {
	return n.shards.Set(r, rec)
}
