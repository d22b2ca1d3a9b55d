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


// Package bundle persists and restores a complete index bundle: the flat
// vector index, its positionally aligned records, and the configuration
// that describes both.
//
// A bundle is one directory holding three artifacts:
//
//	vectors.bin   binary flat index (see the index package format)
//	records.bin   versioned, length-prefixed MUS-encoded records
//	config.json   {model_name, dimension, total_vectors}
//
// The three artifacts form one atomic unit. Save writes the index first,
// then the records, then the config; each artifact goes through a temp
// file renamed into place. Because the config is written last, its
// presence marks the bundle complete, so a reader never finds a config
// without its matching index and records.
//
// Load reads the config first and validates it, then the index, then the
// records, cross-checking the vector count and record count at each step.
// Any inconsistency fails the whole load; partial loads do not happen.
package bundle
