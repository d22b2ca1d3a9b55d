// Copyright 2025 Poiesic Systems
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


// Package session stores conversations in BadgerDB.
//
// Each session is a sequence of turns ordered by insertion. Turn keys
// embed the session ID and a monotonically increasing turn ID in
// big-endian form, so a prefix iteration over a session yields its turns
// in chronological order without sorting.
//
// The Backend wraps the database handle; Store implements the
// conversational operations on top of it. Opening with inMemory set
// gives an ephemeral store, used by tests and by deployments that do
// not want conversation persistence.
package session
