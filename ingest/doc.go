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


// Package ingest turns intent definitions into searchable bundles.
//
// An intent file is JSON of the form:
//
//	{"intents": [{"tag": "...", "patterns": [...], "responses": [...]}]}
//
// Each pattern becomes one indexed record carrying its intent's tag and
// responses. Flattening preserves file order, so index positions are
// reproducible across builds of the same file.
//
// The Builder embeds pattern texts in batches on a worker pool and
// assembles the vectors, records, and config into a bundle. Batch
// boundaries affect throughput only; vector order always matches record
// order.
package ingest
