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


// Package storage defines the persistence interfaces for the vector index
// and the embedding cache, plus the MUS serialization used by embedded-KV
// backends.
//
// Two implementations ship with semcore:
//
//   - storage/jsonfile: in-memory maps persisted as whole-file,
//     human-inspectable JSON documents. This is the default and matches the
//     on-disk format consumed by operators.
//   - storage/badger: BadgerDB-backed repositories for deployments where
//     rewriting a whole JSON file per save is too expensive. Values are
//     MUS-encoded; cache TTL is enforced natively by badger.
//
// Business logic depends only on the interfaces, so the persistence strategy
// can change without touching it.
//
// Concurrency: repositories are mutated by a single writer. The jsonfile
// implementations guard their maps with a mutex so concurrent readers are
// safe; badger provides its own transactional isolation.
package storage
