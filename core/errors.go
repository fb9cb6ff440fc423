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

import "errors"

// Domain errors
var (
	// ErrSchema indicates the dataset does not have the expected eight-column
	// shape or violates a record invariant such as identifier uniqueness.
	ErrSchema = errors.New("schema error")

	// ErrEmbedding indicates the embedding collaborator failed or returned
	// vectors that cannot form a consistent index.
	ErrEmbedding = errors.New("embedding error")

	// ErrGeneration indicates the generative collaborator failed.
	ErrGeneration = errors.New("generation error")

	// ErrEmptyDataset indicates a snapshot with zero records. It is a soft
	// condition; queries against it resolve to the none mode.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrUnknownColumn indicates a column name that is not part of the schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrDuplicateID indicates two records share an identifier.
	ErrDuplicateID = errors.New("duplicate record identifier")

	// ErrInvalidRole indicates an invalid Role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyText indicates a conversation turn without text.
	ErrEmptyText = errors.New("text cannot be empty")
)
