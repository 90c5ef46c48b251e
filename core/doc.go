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


// Package core defines the domain model shared by all semcore packages:
// entries from the entry store, indexed vector entries, cached embeddings,
// similarity matches, retrieval context documents, and generated answers.
//
// It also provides the two pieces of arithmetic the rest of the system is
// built on: content-addressed cache keys (BLAKE2b over model + normalized
// text) and cosine similarity over float32 vectors.
//
// The package has no dependencies on storage or AI providers so that domain
// logic can be tested in isolation.
package core
