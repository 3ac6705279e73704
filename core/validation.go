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
	"net/mail"
	"strings"
)

// ValidateEmailDraft validates an EmailDraft according to domain rules.
//
// Validation rules:
//   - Subject and Body must not be empty (whitespace-only counts as empty)
//   - Sender must be a valid identity string
//   - Recipients must contain at least one entry
//   - Every recipient, cc, and bcc entry must be a valid identity string
//
// Nothing is persisted for a draft that fails validation.
func ValidateEmailDraft(draft *EmailDraft) error {
	if draft == nil {
		return fmt.Errorf("%w: draft is nil", ErrInvalidEmail)
	}

	if strings.TrimSpace(draft.Subject) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, ErrEmptySubject)
	}

	if strings.TrimSpace(draft.Body) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, ErrEmptyBody)
	}

	if draft.Sender == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, ErrEmptySender)
	}
	if err := ValidateIdentity(draft.Sender); err != nil {
		return fmt.Errorf("%w: sender: %w", ErrInvalidEmail, err)
	}

	if len(draft.Recipients) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, ErrNoRecipients)
	}
	for _, identity := range draft.Recipients {
		if err := ValidateIdentity(identity); err != nil {
			return fmt.Errorf("%w: recipient: %w", ErrInvalidEmail, err)
		}
	}
	for _, identity := range draft.Cc {
		if err := ValidateIdentity(identity); err != nil {
			return fmt.Errorf("%w: cc: %w", ErrInvalidEmail, err)
		}
	}
	for _, identity := range draft.Bcc {
		if err := ValidateIdentity(identity); err != nil {
			return fmt.Errorf("%w: bcc: %w", ErrInvalidEmail, err)
		}
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Vector must not be empty (a chunk is never persisted without one)
//   - OrderIndex must be 1 or greater
//
// NOT validated (enforced by the store):
//   - Id (0 is valid until a database sequence assigns one)
//   - EmailId referential integrity
//   - Vector dimensionality
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if len(chunk.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyVector)
	}

	if chunk.OrderIndex < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidOrderIndex)
	}

	return nil
}

// ValidateIdentity checks that an identity string is a bare, syntactically
// valid address. Display names ("Ada <ada@x.com>") are rejected; identities
// are stored and matched as plain addresses.
func ValidateIdentity(identity string) error {
	addr, err := mail.ParseAddress(identity)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	if addr.Name != "" || addr.Address != identity {
		return fmt.Errorf("%w: %q is not a bare address", ErrInvalidIdentity, identity)
	}
	return nil
}

// NormalizeIdentity lowercases an identity string for case-insensitive
// matching. Filter keys and comparisons use the normalized form; records
// keep the identity as given.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
