package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/storage"
)

// EmailRepository implements storage.EmailRepository for BadgerDB.
type EmailRepository struct {
	backend  *Backend
	mailSeq  *badger.Sequence
	chunkSeq *badger.Sequence
}

var _ storage.EmailRepository = (*EmailRepository)(nil)

// NewEmailRepository creates a new EmailRepository.
func NewEmailRepository(backend *Backend) (*EmailRepository, error) {
	mailSeq, err := backend.GetSequence(emailIDSeq)
	if err != nil {
		return nil, err
	}

	chunkSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		mailSeq.Release()
		return nil, err
	}

	return &EmailRepository{
		backend:  backend,
		mailSeq:  mailSeq,
		chunkSeq: chunkSeq,
	}, nil
}

// Close releases the ID sequences.
func (r *EmailRepository) Close() error {
	return errors.Join(r.mailSeq.Release(), r.chunkSeq.Release())
}

// WithTransaction delegates to the backend.
func (r *EmailRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// QuerySimilar delegates to the backend.
func (r *EmailRepository) QuerySimilar(ctx context.Context, vector []float32, k int) ([]*core.VectorMatch, error) {
	return r.backend.QuerySimilar(ctx, vector, k)
}

// QuerySimilarFiltered delegates to the backend.
func (r *EmailRepository) QuerySimilarFiltered(ctx context.Context, vector []float32, k int, emailIDs map[core.ID]struct{}) ([]*core.VectorMatch, error) {
	return r.backend.QuerySimilarFiltered(ctx, vector, k, emailIDs)
}

// CreateEmail validates the draft and persists a new email along with its
// participant index entries. No chunks exist yet when this returns.
func (r *EmailRepository) CreateEmail(ctx context.Context, draft *core.EmailDraft) (*core.Email, error) {
	if err := core.ValidateEmailDraft(draft); err != nil {
		return nil, err
	}

	id, err := nextID(r.mailSeq)
	if err != nil {
		return nil, err
	}

	email := &core.Email{
		Id:         id,
		Subject:    draft.Subject,
		Sender:     draft.Sender,
		Recipients: draft.Recipients,
		Cc:         draft.Cc,
		Bcc:        draft.Bcc,
		Body:       draft.Body,
		CreatedAt:  time.Now().UTC(),
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEmailKey(email.Id)
		if err := tx.Set(key, storage.MarshalEmail(email)); err != nil {
			return err
		}
		if err := writeParticipantEntries(tx, email); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)

	if err != nil {
		return nil, err
	}
	return email, nil
}

// AppendChunk persists one chunk with its vector. The chunk record, order
// index entry, and vector index entry go in a single transaction, so a
// chunk visible in the store is always visible in the vector index.
func (r *EmailRepository) AppendChunk(ctx context.Context, emailID core.ID, content string, vector []float32, orderIndex uint64) (*core.Chunk, error) {
	chunk := &core.Chunk{
		EmailId:    emailID,
		Content:    content,
		Vector:     vector,
		OrderIndex: orderIndex,
		CreatedAt:  time.Now().UTC(),
	}
	if err := core.ValidateChunk(chunk); err != nil {
		return nil, err
	}

	id, err := nextID(r.chunkSeq)
	if err != nil {
		return nil, err
	}
	chunk.Id = id

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		// The owning email must exist before any chunk write.
		if _, err := tx.Get(makeEmailKey(emailID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: email %d", storage.ErrEmailNotFound, emailID)
			}
			return err
		}

		if err := checkDimension(tx, len(vector)); err != nil {
			return err
		}

		orderKey := makeChunkOrderKey(emailID, orderIndex)
		if _, err := tx.Get(orderKey); err == nil {
			return fmt.Errorf("%w: email %d already has order index %d", storage.ErrDuplicateOrder, emailID, orderIndex)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
			return err
		}
		if err := tx.Set(orderKey, storage.MarshalID(chunk.Id)); err != nil {
			return err
		}
		entry := &core.VectorEntry{EmailId: emailID, Vector: vector}
		if err := tx.Set(makeVectorEntryKey(chunk.Id), storage.MarshalVectorEntry(entry)); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)

	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetEmail retrieves an email by ID.
func (r *EmailRepository) GetEmail(ctx context.Context, id core.ID) (*core.Email, error) {
	var result *core.Email
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEmail(tx, makeEmailKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrEmailNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunk retrieves a single chunk by ID.
func (r *EmailRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves all chunks of an email, ascending by order index.
func (r *EmailRepository) GetChunks(ctx context.Context, emailID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeEmailKey(emailID)); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrEmailNotFound
			}
			return err
		}

		// The order index keys sort by BigEndian order index, so plain
		// ascending iteration yields chunks in original body order.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkOrderKey(emailID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetChunksByID retrieves multiple chunks by their IDs. Missing chunks
// are skipped without error.
func (r *EmailRepository) GetChunksByID(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteEmail removes an email and cascades to its chunks, their order
// index entries, their vector index entries, and the email's participant
// index entries, all in one transaction.
func (r *EmailRepository) DeleteEmail(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		email, err := readEmail(tx, makeEmailKey(id))
		if err != nil {
			return err
		}
		if email == nil {
			return storage.ErrEmailNotFound
		}

		// Enumerate the cascade set first; mutating while iterating is
		// not safe with Badger iterators.
		var orderKeys [][]byte
		var chunkIDs []core.ID

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkOrderKey(id)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			orderKeys = append(orderKeys, item.KeyCopy(nil))

			var chunkID core.ID
			if err := item.Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			chunkIDs = append(chunkIDs, chunkID)
		}
		iter.Close()

		for i, chunkID := range chunkIDs {
			if err := tx.Delete(makeChunkKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorEntryKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(orderKeys[i]); err != nil {
				return err
			}
		}

		if err := deleteParticipantEntries(tx, email); err != nil {
			return err
		}

		if err := tx.Delete(makeEmailKey(id)); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)
}

// CountChunks returns the total number of stored chunks.
func (r *EmailRepository) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ChunkIDs returns the IDs of all stored chunks, ascending.
func (r *EmailRepository) ChunkIDs(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, err := parseChunkKey(iter.Item().Key())
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Record keys are decimal strings, so iteration order is
	// lexicographic; sort numerically before returning.
	slices.Sort(ids)
	return ids, nil
}

// UpdateChunkVectors rewrites the vectors of existing chunks together
// with their vector index entries. All vectors in one call must share a
// dimensionality, which becomes the store's established dimension.
func (r *EmailRepository) UpdateChunkVectors(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	dim := len(chunks[0].Vector)
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if len(chunk.Vector) != dim {
			return nil, fmt.Errorf("%w: batch mixes dimensions %d and %d", storage.ErrDimensionMismatch, dim, len(chunk.Vector))
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			existing, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, chunk.Id)
			}

			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			entry := &core.VectorEntry{EmailId: chunk.EmailId, Vector: chunk.Vector}
			if err := tx.Set(makeVectorEntryKey(chunk.Id), storage.MarshalVectorEntry(entry)); err != nil {
				return err
			}
		}

		if err := setDimension(tx, dim); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Helper methods

// nextID draws the next ID from a sequence, skipping 0 so that 0 stays
// reserved for "unassigned".
func nextID(seq *badger.Sequence) (core.ID, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		n, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(n), nil
}

// readEmail reads an email record from the transaction.
// Returns nil, nil when the key is absent.
func readEmail(tx *badger.Txn, key []byte) (*core.Email, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var email *core.Email
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		email, unmarshalErr = storage.UnmarshalEmail(val)
		return unmarshalErr
	})
	return email, err
}

// readChunk reads a chunk record from the transaction.
// Returns nil, nil when the key is absent.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}

// checkDimension enforces the store's established vector dimensionality,
// establishing it from the first vector written.
func checkDimension(tx *badger.Txn, dim int) error {
	item, err := tx.Get(makeDimensionKey())
	if err == badger.ErrKeyNotFound {
		return setDimension(tx, dim)
	}
	if err != nil {
		return err
	}

	var established uint64
	if err := item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: dimension value has %d bytes", storage.ErrTruncatedData, len(val))
		}
		established = binary.BigEndian.Uint64(val)
		return nil
	}); err != nil {
		return err
	}

	if established != uint64(dim) {
		return fmt.Errorf("%w: store has dimension %d, vector has %d", storage.ErrDimensionMismatch, established, dim)
	}
	return nil
}

// setDimension records the store's vector dimensionality.
func setDimension(tx *badger.Txn, dim int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return tx.Set(makeDimensionKey(), buf)
}
