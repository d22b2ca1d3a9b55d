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


// Package match maps free-form query text onto indexed intents.
//
// A Matcher holds one immutable snapshot of a loaded bundle (index,
// records, config, and the embedder the bundle was built with). Queries
// embed the input text, run an exact nearest-neighbor search, and apply
// a similarity threshold to decide matched versus unmatched. Absence of
// a match above threshold is a normal outcome, not an error; querying
// before any successful load is an error, never an empty result.
//
// # Reloading
//
// Load and SetBundle construct the replacement snapshot completely off
// to the side, validate it, and publish it with a single atomic pointer
// swap. Searches in flight keep reading the snapshot they started with,
// so no query ever observes a half-updated index. A failed load leaves
// the previous snapshot (or the unloaded state) untouched.
package match
