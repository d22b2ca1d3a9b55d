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


// Package index provides an in-memory flat index for exact nearest-neighbor
// search over embedding vectors.
//
// The Flat index computes true distances against every stored vector, with
// no approximation. At the dataset sizes this engine targets (low thousands
// of vectors) exhaustive search is both fast enough and exactly correct,
// which keeps ranking deterministic and testable.
//
// Results are ordered by ascending distance; exact-equal distances break by
// lower insertion position, so repeated searches always return the same
// ranking.
//
// # Concurrency
//
// A Flat index is not safe for concurrent mutation: Add must not run
// concurrently with Search or another Add. Once construction is complete
// the index is read-only and any number of goroutines may Search it
// concurrently without locking. Callers that rebuild an index swap in the
// fully constructed replacement atomically (see the match package).
//
// # Persistence
//
// WriteTo and ReadFrom implement a versioned binary format with a fixed
// header (magic, version, distance strategy, dimension, count) followed by
// the raw little-endian float32 vector data and a CRC32 trailer. The vector
// count is recoverable from the header alone.
package index
