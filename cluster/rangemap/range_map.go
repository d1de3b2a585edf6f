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

// Package rangemap provides a coalescing map from key ranges to values.
//
// The map always partitions its full key space into contiguous,
// non-overlapping entries sorted by range start. Entries are kept in a
// single sorted slice rather than a tree, so splits, overwrites and
// coalescing are cheap linear scans over contiguous memory.
package rangemap

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/streamnative/shardsim/cluster/model"
)

var (
	ErrInvalidRange    = errors.New("shardsim: invalid key range")
	ErrMisalignedRange = errors.New("shardsim: range not aligned to entry boundaries")
	ErrKeyOutOfSpace   = errors.New("shardsim: key outside of the map key space")
)

// Entry is one maximal range of the key space carrying a single value.
type Entry[V comparable] struct {
	Range model.KeyRange
	Value V
}

// RangeMap maps every key of a fixed key space to a value of type V.
// It is not safe for concurrent use.
type RangeMap[V comparable] struct {
	full    model.KeyRange
	unset   V
	entries []Entry[V]
}

// NewRangeMap creates a map covering full, with every key initially
// mapped to unset.
func NewRangeMap[V comparable](full model.KeyRange, unset V) *RangeMap[V] {
	return &RangeMap[V]{
		full:    full,
		unset:   unset,
		entries: []Entry[V]{{Range: full, Value: unset}},
	}
}

func (m *RangeMap[V]) Full() model.KeyRange {
	return m.full
}

// Ranges returns a copy of all entries, sorted by range start. The entries
// partition the full key space with no gaps and no overlaps.
func (m *RangeMap[V]) Ranges() []Entry[V] {
	r := make([]Entry[V], len(m.entries))
	copy(r, m.entries)
	return r
}

func (m *RangeMap[V]) checkRange(r model.KeyRange) error {
	if !r.IsValid() || !m.full.Contains(r) {
		return errors.Wrapf(ErrInvalidRange, "range %s in space %s", r, m.full)
	}
	return nil
}

// indexOf returns the index of the entry containing k. The caller
// guarantees k is inside the key space.
func (m *RangeMap[V]) indexOf(k model.Key) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Range.End > k
	})
}

// Get returns the value recorded for the entry containing k.
func (m *RangeMap[V]) Get(k model.Key) (V, error) {
	if !m.full.ContainsKey(k) {
		var zero V
		return zero, errors.Wrapf(ErrKeyOutOfSpace, "key %q", string(k))
	}
	return m.entries[m.indexOf(k)].Value, nil
}

// Intersecting returns the entries overlapping r, in order.
func (m *RangeMap[V]) Intersecting(r model.KeyRange) ([]Entry[V], error) {
	if err := m.checkRange(r); err != nil {
		return nil, err
	}
	first := m.indexOf(r.Start)
	var res []Entry[V]
	for i := first; i < len(m.entries) && m.entries[i].Range.Start < r.End; i++ {
		res = append(res, m.entries[i])
	}
	return res, nil
}

// Aligned reports whether both boundaries of r fall on existing entry
// boundaries.
func (m *RangeMap[V]) Aligned(r model.KeyRange) (bool, error) {
	if err := m.checkRange(r); err != nil {
		return false, err
	}
	return m.isBoundary(r.Start) && m.isBoundary(r.End), nil
}

func (m *RangeMap[V]) isBoundary(k model.Key) bool {
	if k == m.full.Start || k == m.full.End {
		return true
	}
	return m.entries[m.indexOf(k)].Range.Start == k
}

// SplitAt cuts the entry containing k into two pieces at k, assigning the
// values returned by partition to the left and right piece. It is a no-op
// when k is already an entry boundary. The two pieces are deliberately not
// coalesced: callers performing multi-step splits coalesce once at the end.
func (m *RangeMap[V]) SplitAt(k model.Key, partition func(old V) (left, right V)) error {
	if !m.full.ContainsKey(k) {
		return errors.Wrapf(ErrKeyOutOfSpace, "split point %q", string(k))
	}
	if m.isBoundary(k) {
		return nil
	}
	i := m.indexOf(k)
	old := m.entries[i]
	lv, rv := partition(old.Value)

	m.entries = append(m.entries, Entry[V]{})
	copy(m.entries[i+2:], m.entries[i+1:])
	m.entries[i] = Entry[V]{Range: model.KeyRange{Start: old.Range.Start, End: k}, Value: lv}
	m.entries[i+1] = Entry[V]{Range: model.KeyRange{Start: k, End: old.Range.End}, Value: rv}
	return nil
}

// Set overwrites exactly r with v, splitting boundary entries as needed and
// coalescing with equal-valued neighbors afterwards.
func (m *RangeMap[V]) Set(r model.KeyRange, v V) error {
	if err := m.checkRange(r); err != nil {
		return err
	}
	identity := func(old V) (V, V) { return old, old }
	_ = m.SplitAt(r.Start, identity)
	if r.End < m.full.End {
		_ = m.SplitAt(r.End, identity)
	}

	first := m.indexOf(r.Start)
	last := first
	for last < len(m.entries) && m.entries[last].Range.End < r.End {
		last++
	}
	// replace entries[first..last] with a single entry for r
	m.entries[first] = Entry[V]{Range: r, Value: v}
	m.entries = append(m.entries[:first+1], m.entries[last+1:]...)

	m.Coalesce(r)
	return nil
}

// Erase resets r back to the unset value. r must already be aligned to
// entry boundaries; misaligned calls signal caller misuse.
func (m *RangeMap[V]) Erase(r model.KeyRange) error {
	aligned, err := m.Aligned(r)
	if err != nil {
		return err
	}
	if !aligned {
		return errors.Wrapf(ErrMisalignedRange, "erase %s", r)
	}
	return m.Set(r, m.unset)
}

// Coalesce merges adjacent equal-valued entries in and around r.
func (m *RangeMap[V]) Coalesce(r model.KeyRange) {
	first := m.indexOf(r.Start)
	if first > 0 {
		first--
	}
	i := first
	for i < len(m.entries)-1 && m.entries[i].Range.Start <= r.End {
		if m.entries[i].Value == m.entries[i+1].Value {
			m.entries[i].Range.End = m.entries[i+1].Range.End
			m.entries = append(m.entries[:i+1], m.entries[i+2:]...)
		} else {
			i++
		}
	}
}

// SumBy sums f over all entries overlapping r. Each overlapping entry
// contributes its whole recorded value, with no proportional attribution:
// exact totals require r to be aligned to entry boundaries.
func (m *RangeMap[V]) SumBy(r model.KeyRange, f func(V) uint64) (uint64, error) {
	entries, err := m.Intersecting(r)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		total += f(e.Value)
	}
	return total, nil
}
