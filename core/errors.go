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


package core

import "errors"

// Retrieval error taxonomy. Callers distinguish these with errors.Is so
// the host can map them to distinct status codes.
var (
	// ErrEmptyQuery indicates a blank or whitespace-only query text.
	// Rejected before the query ever reaches the embedder.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrNotLoaded indicates a query operation was attempted before a
	// successful load or build. Never disguised as "zero results".
	ErrNotLoaded = errors.New("index not loaded")

	// ErrEmbeddingFailed indicates the embedding model was unavailable
	// or text encoding failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrInvalidConfig indicates a malformed bundle configuration.
	ErrInvalidConfig = errors.New("invalid bundle config")

	// ErrCorruptedBundle indicates an inconsistent persisted bundle,
	// such as mismatched vector and record counts.
	ErrCorruptedBundle = errors.New("corrupted bundle")

	// ErrDimensionMismatch indicates a vector whose width differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidRecord indicates a Record failed validation at ingest.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyRecordText indicates the Text field is empty.
	ErrEmptyRecordText = errors.New("record text cannot be empty")

	// ErrEmptyRecordTag indicates the Tag field is empty.
	ErrEmptyRecordTag = errors.New("record tag cannot be empty")

	// ErrNoResponses indicates a Record carries no candidate responses.
	ErrNoResponses = errors.New("record must have at least one response")

	// ErrInvalidRecordKind indicates an invalid RecordKind value.
	ErrInvalidRecordKind = errors.New("invalid record kind")

	// ErrInvalidSpeaker indicates an invalid Speaker value.
	ErrInvalidSpeaker = errors.New("invalid speaker")

	// ErrEmptyContent indicates the Content field of a turn is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
