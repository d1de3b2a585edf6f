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

func TestKeyRange_IsValid(t *testing.T) {
	assert.True(t, NewKeyRange("a", "b").IsValid())
	assert.True(t, FullKeyRange().IsValid())
	assert.False(t, NewKeyRange("a", "a").IsValid())
	assert.False(t, NewKeyRange("b", "a").IsValid())
}

func TestKeyRange_ContainsKey(t *testing.T) {
	r := NewKeyRange("b", "d")
	assert.False(t, r.ContainsKey("a"))
	assert.True(t, r.ContainsKey("b"))
	assert.True(t, r.ContainsKey("c"))
	assert.False(t, r.ContainsKey("d"))

	assert.True(t, FullKeyRange().ContainsKey(""))
	assert.False(t, FullKeyRange().ContainsKey(KeySpaceEnd))
}

func TestKeyRange_Contains(t *testing.T) {
	outer := NewKeyRange("b", "f")
	assert.True(t, outer.Contains(NewKeyRange("b", "f")))
	assert.True(t, outer.Contains(NewKeyRange("c", "e")))
	assert.False(t, outer.Contains(NewKeyRange("a", "c")))
	assert.False(t, outer.Contains(NewKeyRange("e", "g")))
	assert.True(t, FullKeyRange().Contains(outer))
}

func TestKeyRange_Overlaps(t *testing.T) {
	r := NewKeyRange("b", "d")
	assert.True(t, r.Overlaps(NewKeyRange("c", "e")))
	assert.True(t, r.Overlaps(NewKeyRange("a", "c")))
	assert.True(t, r.Overlaps(NewKeyRange("b", "d")))
	// adjacent ranges share no key
	assert.False(t, r.Overlaps(NewKeyRange("d", "e")))
	assert.False(t, r.Overlaps(NewKeyRange("a", "b")))
}
