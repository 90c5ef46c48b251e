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


package core

import (
	"fmt"
	"strings"
)

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//
// NOT validated here:
//   - Text content (entries without text are counted as indexing failures
//     by the orchestrator rather than rejected up front)
//   - Metadata (opaque to the core)
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if strings.TrimSpace(entry.Id) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrMissingID)
	}

	return nil
}

// HasText reports whether the entry carries any indexable text.
func (e *Entry) HasText() bool {
	return strings.TrimSpace(e.Title) != "" ||
		strings.TrimSpace(e.Description) != "" ||
		strings.TrimSpace(e.Content) != ""
}
