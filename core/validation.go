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

package core

import (
	"fmt"
	"time"
)

// ValidateRecords checks snapshot-level record invariants.
//
// Validation rules:
//   - identifiers are unique across the slice
//
// NOT validated:
//   - empty fields (every field may legitimately be blank)
//   - empty identifiers, which are exempt from the uniqueness check
func ValidateRecords(records []Record) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			continue
		}
		if prev, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: %w: %q at records %d and %d", ErrSchema, ErrDuplicateID, r.ID, prev, i)
		}
		seen[r.ID] = i
	}
	return nil
}

// ValidateTurn validates a conversation Turn.
//
// Validation rules:
//   - Text must not be empty
//   - Role must be valid (User or Assistant)
//   - At must not be in the future
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrEmptyText)
	}
	if turn.Text == "" {
		return ErrEmptyText
	}
	if err := ValidateRole(turn.Role); err != nil {
		return err
	}
	if !IsValidTimestamp(turn.At) {
		return fmt.Errorf("turn timestamp %s is in the future", turn.At.Format(time.RFC3339))
	}
	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is not in the future.
// Allows a 1 second tolerance for clock skew.
func IsValidTimestamp(t time.Time) bool {
	return !t.After(time.Now().Add(time.Second))
}
