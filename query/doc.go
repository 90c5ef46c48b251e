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

// Package query analyzes raw user queries before retrieval: rule-based
// intent classification, entity term extraction, and synonym expansion
// seeded with German benefits vocabulary. The expansion strategy is
// pluggable; the original query is always preserved alongside the expanded
// one.
package query
