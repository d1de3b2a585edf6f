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

package model

import (
	"bytes"
	"encoding/json"
)

type ShardStatus uint16

const (
	// ShardStatusUnset is the uninitialized default: the node holds no
	// information about the range.
	ShardStatusUnset ShardStatus = iota

	// ShardStatusEmpty denotes verified data loss: the node is known to
	// hold no data for the range.
	ShardStatusEmpty

	// ShardStatusInFlight denotes an in-progress incoming copy.
	ShardStatusInFlight

	// ShardStatusCompleted denotes the range is fully and correctly held.
	ShardStatusCompleted
)

func (s ShardStatus) String() string {
	return shardStatusToString[s]
}

var shardStatusToString = map[ShardStatus]string{
	ShardStatusUnset:     "Unset",
	ShardStatusEmpty:     "Empty",
	ShardStatusInFlight:  "InFlight",
	ShardStatusCompleted: "Completed",
}

var stringToShardStatus = map[string]ShardStatus{
	"Unset":     ShardStatusUnset,
	"Empty":     ShardStatusEmpty,
	"InFlight":  ShardStatusInFlight,
	"Completed": ShardStatusCompleted,
}

// MarshalJSON marshals the enum as a quoted json string
func (s ShardStatus) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(shardStatusToString[s])
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

// UnmarshalJSON unmarshals a quoted json string to the enum value
func (s *ShardStatus) UnmarshalJSON(b []byte) error {
	var j string
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	// If the string cannot be found then it will be set to the Unset status value.
	*s = stringToShardStatus[j]
	return nil
}

// IsTransitionValid reports whether a shard on a node is allowed to move
// from one status to another. A completed shard can only be declared lost
// (Empty); it never re-enters InFlight or falls back to Unset.
func IsTransitionValid(from, to ShardStatus) bool {
	switch from {
	case ShardStatusUnset, ShardStatusEmpty, ShardStatusInFlight:
		return to == ShardStatusCompleted || to == ShardStatusInFlight || to == ShardStatusEmpty
	case ShardStatusCompleted:
		return to == ShardStatusEmpty
	}
	return false
}

// ShardRecord is the per-range entry in a node's shard map. Two records
// compare equal when both status and size match, which is what drives
// coalescing of adjacent ranges.
type ShardRecord struct {
	Status ShardStatus `json:"status" yaml:"status"`
	Size   uint64      `json:"size" yaml:"size"`
}
