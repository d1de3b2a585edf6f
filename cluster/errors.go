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

import "github.com/pkg/errors"

// All of these signal programming errors by the caller, not recoverable
// conditions. The model refuses to coerce its state and surfaces them
// immediately.
var (
	ErrInvalidTransition = errors.New("shardsim: illegal shard status transition")
	ErrNodeAlreadyExists = errors.New("shardsim: storage node already registered")
	ErrNodeNotFound      = errors.New("shardsim: storage node not found")
	ErrNodeStillAssigned = errors.New("shardsim: storage node still referenced by the assignment map")
	ErrNoDestination     = errors.New("shardsim: destination teams must not be empty")
	ErrRangeNotInMotion  = errors.New("shardsim: range has no destination team")
	ErrNoSourceTeams     = errors.New("shardsim: source teams must not be empty")
)
