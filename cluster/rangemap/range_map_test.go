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

package rangemap

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamnative/shardsim/cluster/model"
)

func k(i int) model.Key {
	return model.Key(fmt.Sprintf("%08d", i))
}

func kr(start, end int) model.KeyRange {
	return model.NewKeyRange(k(start), k(end))
}

// assertPartition checks the coverage invariant: entries sorted by start,
// no gaps, no overlaps, full space covered.
func assertPartition[V comparable](t *testing.T, m *RangeMap[V]) {
	t.Helper()

	entries := m.Ranges()
	assert.NotEmpty(t, entries)
	assert.Equal(t, m.Full().Start, entries[0].Range.Start)
	assert.Equal(t, m.Full().End, entries[len(entries)-1].Range.End)
	for i := 0; i < len(entries)-1; i++ {
		assert.Equal(t, entries[i].Range.End, entries[i+1].Range.Start)
		assert.True(t, entries[i].Range.IsValid())
	}
}

// assertCoalesced checks that no two adjacent entries carry equal values.
func assertCoalesced[V comparable](t *testing.T, m *RangeMap[V]) {
	t.Helper()

	entries := m.Ranges()
	for i := 0; i < len(entries)-1; i++ {
		assert.NotEqual(t, entries[i].Value, entries[i+1].Value,
			"entries %s and %s not coalesced", entries[i].Range, entries[i+1].Range)
	}
}

func TestRangeMap_InitialCoverage(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)

	entries := m.Ranges()
	assert.Len(t, entries, 1)
	assert.Equal(t, model.FullKeyRange(), entries[0].Range)
	assert.Equal(t, 0, entries[0].Value)
	assertPartition(t, m)
}

func TestRangeMap_SetSplits(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)

	assert.NoError(t, m.Set(kr(10, 20), 7))

	entries := m.Ranges()
	assert.Len(t, entries, 3)
	assert.Equal(t, model.NewKeyRange(m.Full().Start, k(10)), entries[0].Range)
	assert.Equal(t, 0, entries[0].Value)
	assert.Equal(t, kr(10, 20), entries[1].Range)
	assert.Equal(t, 7, entries[1].Value)
	assert.Equal(t, model.NewKeyRange(k(20), m.Full().End), entries[2].Range)
	assert.Equal(t, 0, entries[2].Value)

	assertPartition(t, m)
	assertCoalesced(t, m)
}

func TestRangeMap_SetMalformedRange(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)

	err := m.Set(model.NewKeyRange(k(10), k(10)), 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	err = m.Set(model.NewKeyRange(k(20), k(10)), 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	err = m.Set(model.NewKeyRange(k(10), model.KeySpaceEnd+"x"), 1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	// the failed calls left the map untouched
	assert.Len(t, m.Ranges(), 1)
}

func TestRangeMap_Get(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)
	assert.NoError(t, m.Set(kr(10, 20), 7))

	v, err := m.Get(k(10))
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = m.Get(k(15))
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = m.Get(k(20))
	assert.NoError(t, err)
	assert.Equal(t, 0, v)

	_, err = m.Get(model.KeySpaceEnd)
	assert.ErrorIs(t, err, ErrKeyOutOfSpace)
}

func TestRangeMap_CoalesceNeighbors(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)

	assert.NoError(t, m.Set(kr(10, 20), 7))
	assert.NoError(t, m.Set(kr(20, 30), 7))

	entries := m.Ranges()
	assert.Len(t, entries, 3)
	assert.Equal(t, kr(10, 30), entries[1].Range)

	// overwriting back to the unset value collapses everything
	assert.NoError(t, m.Set(kr(10, 30), 0))
	assert.Len(t, m.Ranges(), 1)

	assertPartition(t, m)
	assertCoalesced(t, m)
}

func TestRangeMap_SplitAtAndAligned(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 10)

	err := m.SplitAt(k(50), func(old int) (int, int) {
		return old / 2, old - old/2
	})
	assert.NoError(t, err)

	entries := m.Ranges()
	assert.Len(t, entries, 2)
	assert.Equal(t, 5, entries[0].Value)
	assert.Equal(t, 5, entries[1].Value)
	assertPartition(t, m)

	aligned, err := m.Aligned(model.NewKeyRange(m.Full().Start, k(50)))
	assert.NoError(t, err)
	assert.True(t, aligned)

	aligned, err = m.Aligned(kr(50, 60))
	assert.NoError(t, err)
	assert.False(t, aligned)

	// splitting at an existing boundary is a no-op
	err = m.SplitAt(k(50), func(old int) (int, int) { return 0, 0 })
	assert.NoError(t, err)
	assert.Len(t, m.Ranges(), 2)
}

func TestRangeMap_Erase(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), 0)

	assert.NoError(t, m.Set(kr(10, 20), 7))
	assert.NoError(t, m.Set(kr(20, 30), 8))

	err := m.Erase(kr(15, 30))
	assert.ErrorIs(t, err, ErrMisalignedRange)

	assert.NoError(t, m.Erase(kr(10, 30)))
	assert.Len(t, m.Ranges(), 1)
	assertPartition(t, m)
}

func TestRangeMap_SumBy(t *testing.T) {
	m := NewRangeMap(model.FullKeyRange(), uint64(0))

	assert.NoError(t, m.Set(kr(0, 10), 100))
	assert.NoError(t, m.Set(kr(10, 20), 50))
	assert.NoError(t, m.Set(kr(20, 30), 25))

	ident := func(v uint64) uint64 { return v }

	total, err := m.SumBy(kr(0, 30), ident)
	assert.NoError(t, err)
	assert.EqualValues(t, 175, total)

	// a misaligned query attributes whole entries, no interpolation
	total, err = m.SumBy(kr(15, 25), ident)
	assert.NoError(t, err)
	assert.EqualValues(t, 75, total)

	_, err = m.SumBy(model.NewKeyRange(k(10), k(5)), ident)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRangeMap_RandomizedInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	m := NewRangeMap(model.FullKeyRange(), 0)

	for i := 0; i < 1000; i++ {
		a := rnd.Intn(1000)
		b := a + 1 + rnd.Intn(1000-a)
		v := rnd.Intn(4)

		assert.NoError(t, m.Set(kr(a, b), v))
		assertPartition(t, m)
		assertCoalesced(t, m)
	}
}
