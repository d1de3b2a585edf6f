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

import "github.com/pkg/errors"

const (
	DefaultMinShardSize = uint64(128 * 1024)
	DefaultMaxShardSize = uint64(64 * 1024 * 1024)
)

// ClusterConfig carries the externally decided replication parameters of
// the modeled database. The model threads it through bootstrap without
// interpreting it beyond the initial team membership count.
type ClusterConfig struct {
	// StorageTeamSize is the number of nodes in each replica team
	StorageTeamSize uint32 `json:"storageTeamSize" yaml:"storageTeamSize"`

	// ReplicationFactor is the number of data copies the cluster targets
	ReplicationFactor uint32 `json:"replicationFactor" yaml:"replicationFactor"`

	// MinShardSize and MaxShardSize bound the synthesized shard sizes used
	// when splits are not required to conserve the original total
	MinShardSize uint64 `json:"minShardSize" yaml:"minShardSize"`
	MaxShardSize uint64 `json:"maxShardSize" yaml:"maxShardSize"`
}

func NewClusterConfig() ClusterConfig {
	return ClusterConfig{
		StorageTeamSize:   3,
		ReplicationFactor: 3,
		MinShardSize:      DefaultMinShardSize,
		MaxShardSize:      DefaultMaxShardSize,
	}
}

func (c ClusterConfig) Validate() error {
	if c.StorageTeamSize == 0 {
		return errors.New("storageTeamSize must be > 0")
	}
	if c.ReplicationFactor == 0 {
		return errors.New("replicationFactor must be > 0")
	}
	if c.MinShardSize > c.MaxShardSize {
		return errors.Errorf("invalid shard size band [%d, %d]", c.MinShardSize, c.MaxShardSize)
	}
	return nil
}
