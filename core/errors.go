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

// Domain validation errors
var (
	// ErrInvalidEmail indicates an EmailDraft failed validation.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptySubject indicates the Subject field is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")

	// ErrEmptyBody indicates the Body field is empty.
	ErrEmptyBody = errors.New("body cannot be empty")

	// ErrEmptySender indicates the Sender field is empty.
	ErrEmptySender = errors.New("sender cannot be empty")

	// ErrNoRecipients indicates the Recipients field is empty.
	ErrNoRecipients = errors.New("at least one recipient required")

	// ErrInvalidIdentity indicates a sender/recipient identity string is malformed.
	ErrInvalidIdentity = errors.New("invalid identity string")

	// ErrEmptyContent indicates the chunk Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyVector indicates the chunk Vector field is empty.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidOrderIndex indicates a chunk order index below 1.
	ErrInvalidOrderIndex = errors.New("order index must be 1 or greater")
)
