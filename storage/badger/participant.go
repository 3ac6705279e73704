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


package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/storage"
)

// EmailIDsForParticipant returns the set of email IDs in which the given
// identity appears as sender or direct recipient. Cc and Bcc identities
// are not indexed. Matching is case-insensitive.
func (r *EmailRepository) EmailIDsForParticipant(ctx context.Context, identity string) (map[core.ID]struct{}, error) {
	normalized := core.NormalizeIdentity(identity)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty participant identity", storage.ErrInvalidQuery)
	}

	ids := make(map[core.ID]struct{})
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialParticipantKey(normalized)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			emailID, err := parseParticipantKey(iter.Item().Key())
			if err != nil {
				return err
			}
			ids[emailID] = struct{}{}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return ids, nil
}

// participantIdentities returns the deduplicated, normalized identities
// the participant index covers for an email: sender and recipients only.
func participantIdentities(email *core.Email) []string {
	seen := make(map[string]struct{})
	var identities []string
	for _, identity := range email.Participants() {
		normalized := core.NormalizeIdentity(identity)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		identities = append(identities, normalized)
	}
	return identities
}

// writeParticipantEntries adds one index entry per indexed identity.
// Entries carry no value; the key alone encodes the tuple.
func writeParticipantEntries(tx *badger.Txn, email *core.Email) error {
	for _, identity := range participantIdentities(email) {
		if err := tx.Set(makeParticipantKey(identity, email.Id), nil); err != nil {
			return err
		}
	}
	return nil
}

// deleteParticipantEntries removes the index entries written by
// writeParticipantEntries.
func deleteParticipantEntries(tx *badger.Txn, email *core.Email) error {
	for _, identity := range participantIdentities(email) {
		if err := tx.Delete(makeParticipantKey(identity, email.Id)); err != nil {
			return err
		}
	}
	return nil
}
