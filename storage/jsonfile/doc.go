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


// Package jsonfile implements the storage repositories over in-memory maps
// persisted as whole-file JSON documents.
//
// The files are human-inspectable key-value JSON: one maps cache keys to
// cache records, the other maps vector ids to vectors and metadata. Both
// are loaded fully into memory at startup and rewritten wholesale on save.
// Saves go through a temp-file-and-rename so a crash cannot leave a
// truncated file behind.
package jsonfile
