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


// Package badger implements the storage repositories over BadgerDB for
// deployments where rewriting whole JSON files per save is too expensive.
//
// Values are MUS-encoded (see storage/serialization.go). The cache uses
// badger's native per-entry TTL; the vector index persists its established
// dimensionality under a meta key. An in-memory mode backs the test
// helpers.
package badger
