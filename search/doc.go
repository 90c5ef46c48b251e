// Copyright 2025 Sozialkompass
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

// Package search orchestrates semantic retrieval: it turns catalog entries
// into stored vectors with display metadata, and answers queries against
// them with cosine ranking plus an optional heuristic reranking pass.
//
// Indexing is tolerant of bad input: entries without an id or without any
// extractable text are counted as failures, never aborting a batch. Batch
// indexing embeds all eligible texts in one pass through the embedding
// service and persists the vector repository once at the end.
package search
