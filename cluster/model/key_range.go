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

import "fmt"

// Key is an opaque byte-string, ordered lexicographically.
type Key string

// KeySpaceEnd is the exclusive upper bound of the modeled key space.
// User keys are always strictly below it.
const KeySpaceEnd Key = "\xff\xff"

// KeyRange is a half-open interval [Start, End) over the key space.
type KeyRange struct {
	Start Key `json:"start" yaml:"start"`
	End   Key `json:"end" yaml:"end"`
}

// FullKeyRange returns the range covering the whole key space.
func FullKeyRange() KeyRange {
	return KeyRange{Start: "", End: KeySpaceEnd}
}

func NewKeyRange(start, end Key) KeyRange {
	return KeyRange{Start: start, End: end}
}

// IsValid reports whether the range is non-empty and not inverted.
func (r KeyRange) IsValid() bool {
	return r.Start < r.End
}

// ContainsKey reports whether k falls inside [Start, End).
func (r KeyRange) ContainsKey(k Key) bool {
	return r.Start <= k && k < r.End
}

// Contains reports whether other is fully inside r.
func (r KeyRange) Contains(other KeyRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges share at least one key.
func (r KeyRange) Overlaps(other KeyRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r KeyRange) String() string {
	return fmt.Sprintf("[%q, %q)", string(r.Start), string(r.End))
}
