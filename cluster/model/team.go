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

// Team is a set of nodes jointly holding one replica group of a key range.
type Team struct {
	Nodes   []NodeID `json:"nodes" yaml:"nodes"`
	Primary bool     `json:"primary" yaml:"primary"`
}

func NewTeam(primary bool, nodes ...NodeID) Team {
	return Team{Nodes: nodes, Primary: primary}
}

func (t Team) HasNode(id NodeID) bool {
	for _, n := range t.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

func (t Team) Clone() Team {
	r := Team{
		Nodes:   make([]NodeID, len(t.Nodes)),
		Primary: t.Primary,
	}
	copy(r.Nodes, t.Nodes)
	return r
}

// AnyTeamHasNode reports whether id belongs to at least one of the teams.
func AnyTeamHasNode(teams []Team, id NodeID) bool {
	for _, t := range teams {
		if t.HasNode(id) {
			return true
		}
	}
	return false
}

// TeamsEqual reports whether the two team lists are identical, including
// node order.
func TeamsEqual(a, b []Team) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Primary != b[i].Primary || len(a[i].Nodes) != len(b[i].Nodes) {
			return false
		}
		for j := range a[i].Nodes {
			if a[i].Nodes[j] != b[i].Nodes[j] {
				return false
			}
		}
	}
	return true
}

func CloneTeams(teams []Team) []Team {
	if teams == nil {
		return nil
	}
	r := make([]Team, len(teams))
	for i, t := range teams {
		r[i] = t.Clone()
	}
	return r
}
