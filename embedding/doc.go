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

// Package embedding provides a caching embedding service on top of an
// ai.Embedder and a storage.CacheRepository.
//
// Vectors are cached content-addressed by (model, normalized text), so
// re-embedding unchanged text never hits the provider. Batch embedding
// partitions inputs into cached and uncached subsets, chunks provider calls,
// and merges results back in input order. The service keeps running token
// and cost counters for observability.
package embedding
