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

// Package rag generates grounded answers from retrieved context. It builds
// token-budgeted context blocks from search results, prompts the generation
// provider to answer only from that context with [id] citations, and
// validates the result: cited ids must exist in the context and answer
// sentences are heuristically checked for traceability. Pipeline composes
// query processing, retrieval, context assembly, and generation into a
// single Ask call.
package rag
