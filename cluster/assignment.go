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
	"sort"

	"github.com/pkg/errors"

	"github.com/streamnative/shardsim/common"

	"github.com/streamnative/shardsim/cluster/model"
	"github.com/streamnative/shardsim/cluster/rangemap"
)

// AssignmentEntry is one key range of the cluster-wide shard-to-team map:
// the teams currently owning the range, and the teams an in-progress move
// is copying it to. An empty Dest means the range is static; a non-empty
// Dest means it is in motion.
type AssignmentEntry struct {
	Range  model.KeyRange `json:"range" yaml:"range"`
	Source []model.Team   `json:"source" yaml:"source"`
	Dest   []model.Team   `json:"dest,omitempty" yaml:"dest,omitempty"`
}

type assignEntry struct {
	rng    model.KeyRange
	source []model.Team
	dest   []model.Team
}

// ShardToTeamMap is the cluster-wide counterpart of the keyServers system
// keyspace: for every key range, the source team(s) owning it and the
// optional destination team(s) of an in-progress move. External drivers
// are its sole mutators. Not safe for concurrent use.
type ShardToTeamMap struct {
	full    model.KeyRange
	entries []assignEntry
}

func NewShardToTeamMap(full model.KeyRange) *ShardToTeamMap {
	return &ShardToTeamMap{
		full:    full,
		entries: []assignEntry{{rng: full}},
	}
}

func (m *ShardToTeamMap) checkRange(r model.KeyRange) error {
	if !r.IsValid() || !m.full.Contains(r) {
		return errors.Wrapf(rangemap.ErrInvalidRange, "range %s in space %s", r, m.full)
	}
	return nil
}

func (m *ShardToTeamMap) indexOf(k model.Key) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].rng.End > k
	})
}

// splitAt cuts the entry containing k in two, both pieces keeping the
// entry's teams. No-op when k is already a boundary.
func (m *ShardToTeamMap) splitAt(k model.Key) {
	if k == m.full.Start || k == m.full.End {
		return
	}
	i := m.indexOf(k)
	old := m.entries[i]
	if old.rng.Start == k {
		return
	}
	m.entries = append(m.entries, assignEntry{})
	copy(m.entries[i+2:], m.entries[i+1:])
	m.entries[i] = assignEntry{
		rng:    model.KeyRange{Start: old.rng.Start, End: k},
		source: model.CloneTeams(old.source),
		dest:   model.CloneTeams(old.dest),
	}
	m.entries[i+1] = assignEntry{
		rng:    model.KeyRange{Start: k, End: old.rng.End},
		source: old.source,
		dest:   old.dest,
	}
}

// coveredIndexes aligns entry boundaries to r and returns the index range
// [first, last] of the covered entries.
func (m *ShardToTeamMap) coveredIndexes(r model.KeyRange) (first, last int) {
	m.splitAt(r.Start)
	m.splitAt(r.End)
	first = m.indexOf(r.Start)
	last = first
	for last < len(m.entries) && m.entries[last].rng.End < r.End {
		last++
	}
	return first, last
}

// coalesce merges adjacent entries carrying identical source and dest
// teams, so that entries split by a finished or cancelled move do not
// accumulate.
func (m *ShardToTeamMap) coalesce() {
	i := 0
	for i < len(m.entries)-1 {
		if model.TeamsEqual(m.entries[i].source, m.entries[i+1].source) &&
			model.TeamsEqual(m.entries[i].dest, m.entries[i+1].dest) {
			m.entries[i].rng.End = m.entries[i+1].rng.End
			m.entries = append(m.entries[:i+1], m.entries[i+2:]...)
		} else {
			i++
		}
	}
}

// AssignRange makes teams the owners of exactly r, clearing any previous
// ownership or in-progress move over it.
func (m *ShardToTeamMap) AssignRange(r model.KeyRange, teams ...model.Team) error {
	if err := m.checkRange(r); err != nil {
		return err
	}
	if len(teams) == 0 {
		return errors.Wrapf(ErrNoSourceTeams, "assign %s", r)
	}
	first, last := m.coveredIndexes(r)
	m.entries[first] = assignEntry{rng: r, source: model.CloneTeams(teams)}
	m.entries = append(m.entries[:first+1], m.entries[last+1:]...)
	m.coalesce()
	return nil
}

// MoveShard marks r as moving to the given destination teams. The source
// teams are left untouched.
func (m *ShardToTeamMap) MoveShard(r model.KeyRange, dest ...model.Team) error {
	if err := m.checkRange(r); err != nil {
		return err
	}
	if len(dest) == 0 {
		return errors.Wrapf(ErrNoDestination, "move %s", r)
	}
	first, last := m.coveredIndexes(r)
	for i := first; i <= last; i++ {
		m.entries[i].dest = model.CloneTeams(dest)
	}
	m.coalesce()
	return nil
}

// FinishMove promotes the destination teams of r to owners and clears the
// move. Every covered entry must actually be in motion.
func (m *ShardToTeamMap) FinishMove(r model.KeyRange) error {
	if err := m.checkRange(r); err != nil {
		return err
	}
	first, last := m.coveredIndexes(r)
	for i := first; i <= last; i++ {
		if len(m.entries[i].dest) == 0 {
			return errors.Wrapf(ErrRangeNotInMotion, "finish move %s", m.entries[i].rng)
		}
	}
	for i := first; i <= last; i++ {
		m.entries[i].source = m.entries[i].dest
		m.entries[i].dest = nil
	}
	m.coalesce()
	return nil
}

// CancelMove drops any in-progress move over r, keeping current owners.
func (m *ShardToTeamMap) CancelMove(r model.KeyRange) error {
	if err := m.checkRange(r); err != nil {
		return err
	}
	first, last := m.coveredIndexes(r)
	for i := first; i <= last; i++ {
		m.entries[i].dest = nil
	}
	m.coalesce()
	return nil
}

// TeamsFor returns the source and destination teams of the entry containing
// the start of r. The mutation API keeps entries aligned to the ranges the
// drivers operate on, so a well-formed driver never observes a mixed answer.
func (m *ShardToTeamMap) TeamsFor(r model.KeyRange) (source, dest []model.Team, err error) {
	if err = m.checkRange(r); err != nil {
		return nil, nil, err
	}
	e := m.entries[m.indexOf(r.Start)]
	return model.CloneTeams(e.source), model.CloneTeams(e.dest), nil
}

// ShardCountForNode counts the assignment entries whose source or
// destination teams include the node.
func (m *ShardToTeamMap) ShardCountForNode(id model.NodeID) int {
	count := 0
	for _, e := range m.entries {
		if model.AnyTeamHasNode(e.source, id) || model.AnyTeamHasNode(e.dest, id) {
			count++
		}
	}
	return count
}

// RemoveNode strips the node from every team in the map. Teams emptied by
// the removal are dropped.
func (m *ShardToTeamMap) RemoveNode(id model.NodeID) {
	for i := range m.entries {
		m.entries[i].source = removeNodeFromTeams(m.entries[i].source, id)
		m.entries[i].dest = removeNodeFromTeams(m.entries[i].dest, id)
	}
	m.coalesce()
}

func removeNodeFromTeams(teams []model.Team, id model.NodeID) []model.Team {
	if teams == nil {
		return nil
	}
	res := make([]model.Team, 0, len(teams))
	for _, t := range teams {
		nodes := make([]model.NodeID, 0, len(t.Nodes))
		for _, n := range t.Nodes {
			if n != id {
				nodes = append(nodes, n)
			}
		}
		if len(nodes) > 0 {
			res = append(res, model.Team{Nodes: nodes, Primary: t.Primary})
		}
	}
	if len(res) == 0 {
		return nil
	}
	return res
}

// ReferencedNodes returns the set of node ids appearing in any team.
func (m *ShardToTeamMap) ReferencedNodes() common.Set[model.NodeID] {
	res := common.NewSet[model.NodeID]()
	for _, e := range m.entries {
		for _, teams := range [][]model.Team{e.source, e.dest} {
			for _, t := range teams {
				for _, n := range t.Nodes {
					res.Add(n)
				}
			}
		}
	}
	return res
}

// RangesInMotion counts the entries with a non-empty destination.
func (m *ShardToTeamMap) RangesInMotion() int {
	count := 0
	for _, e := range m.entries {
		if len(e.dest) > 0 {
			count++
		}
	}
	return count
}

// Entries returns a snapshot of all assigned entries, in key order.
// Unassigned gaps of the key space are skipped.
func (m *ShardToTeamMap) Entries() []AssignmentEntry {
	res := make([]AssignmentEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if len(e.source) == 0 && len(e.dest) == 0 {
			continue
		}
		res = append(res, AssignmentEntry{
			Range:  e.rng,
			Source: model.CloneTeams(e.source),
			Dest:   model.CloneTeams(e.dest),
		})
	}
	return res
}
