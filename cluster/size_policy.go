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
	"math/rand"

	"github.com/streamnative/shardsim/cluster/model"
)

// SizeBand bounds the synthesized size of a shard piece.
type SizeBand struct {
	Min uint64
	Max uint64
}

// SizePolicy assigns a size to a freshly split shard piece when the split
// is not required to conserve the original total. It is injectable so that
// tests can substitute a fixed policy for the default randomized one.
type SizePolicy func(r model.KeyRange, band SizeBand) uint64

// NewRandomSizePolicy draws sizes uniformly from the band, from a seeded
// source so that a simulation run is reproducible.
func NewRandomSizePolicy(seed int64) SizePolicy {
	rnd := rand.New(rand.NewSource(seed))
	return func(_ model.KeyRange, band SizeBand) uint64 {
		if band.Max <= band.Min {
			return band.Min
		}
		return band.Min + uint64(rnd.Int63n(int64(band.Max-band.Min+1)))
	}
}

// FixedSizePolicy always returns the same size, regardless of range or band.
func FixedSizePolicy(size uint64) SizePolicy {
	return func(model.KeyRange, SizeBand) uint64 {
		return size
	}
}

// splitSizeEvenly divides total into n parts that sum exactly to total,
// remainder bytes attributed to the leftmost parts.
func splitSizeEvenly(total uint64, n int) []uint64 {
	parts := make([]uint64, n)
	base := total / uint64(n)
	rem := total % uint64(n)
	for i := range parts {
		parts[i] = base
		if uint64(i) < rem {
			parts[i]++
		}
	}
	return parts
}
