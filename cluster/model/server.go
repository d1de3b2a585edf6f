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

type NodeID string

// Server is the RPC-reachable descriptor of a storage node. The model only
// stores and returns it, it never dials anything.
type Server struct {
	// Public is the endpoint that is advertised to clients
	Public string `json:"public" yaml:"public"`

	// Internal is the endpoint for server->server RPCs
	Internal string `json:"internal" yaml:"internal"`
}

func (s *Server) GetNodeID() NodeID {
	// use the internal address as the node id by default.
	return NodeID(s.Internal)
}

// IndexToNodeID maps a small ordinal to a synthetic node id, used when
// bootstrapping a modeled cluster.
func IndexToNodeID(i uint32) NodeID {
	return NodeID(fmt.Sprintf("node-%d", i))
}

// ServerForNodeID builds a synthetic descriptor whose identity resolves
// back to the given id.
func ServerForNodeID(id NodeID) Server {
	return Server{
		Public:   string(id),
		Internal: string(id),
	}
}
