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


// Package rag grounds text generation in retrieved intents.
//
// The Service retrieves the intents most similar to a query, assembles
// their responses into a deduplicated context block, and hands that
// block to a Generator as part of the system prompt. When the model is
// unreachable the service degrades to the best retrieved response rather
// than failing the conversation.
//
// DirectMatch short-circuits generation entirely: a query that lands on
// an indexed pattern with very high confidence gets that pattern's
// canned response with no model round trip.
package rag
