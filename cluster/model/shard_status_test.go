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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardStatus_String(t *testing.T) {
	assert.Equal(t, "Unset", ShardStatusUnset.String())
	assert.Equal(t, "Empty", ShardStatusEmpty.String())
	assert.Equal(t, "InFlight", ShardStatusInFlight.String())
	assert.Equal(t, "Completed", ShardStatusCompleted.String())
}

func TestShardStatus_JSON(t *testing.T) {
	j, err := ShardStatusInFlight.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, []byte("\"InFlight\""), j)

	var s ShardStatus
	err = s.UnmarshalJSON(j)
	assert.NoError(t, err)
	assert.Equal(t, ShardStatusInFlight, s)

	err = s.UnmarshalJSON([]byte("xyz"))
	assert.Error(t, err)
}

func TestShardStatus_TransitionTable(t *testing.T) {
	all := []ShardStatus{ShardStatusUnset, ShardStatusEmpty, ShardStatusInFlight, ShardStatusCompleted}

	for _, from := range []ShardStatus{ShardStatusUnset, ShardStatusEmpty, ShardStatusInFlight} {
		for _, to := range all {
			expected := to != ShardStatusUnset
			assert.Equal(t, expected, IsTransitionValid(from, to),
				"%s -> %s", from, to)
		}
	}

	// a completed shard can only be declared lost
	assert.True(t, IsTransitionValid(ShardStatusCompleted, ShardStatusEmpty))
	assert.False(t, IsTransitionValid(ShardStatusCompleted, ShardStatusInFlight))
	assert.False(t, IsTransitionValid(ShardStatusCompleted, ShardStatusCompleted))
	assert.False(t, IsTransitionValid(ShardStatusCompleted, ShardStatusUnset))
}
