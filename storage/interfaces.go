package storage

import (
	"context"

	"github.com/poiesic/mailvec/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorIndex provides nearest-neighbor lookup over stored chunk vectors.
// The index is maintained in the same transaction as chunk writes, so a
// chunk visible in the store is always visible here and vice versa.
type VectorIndex interface {
	// QuerySimilar returns up to k chunks ranked by cosine similarity to
	// the query vector, highest first. Ties are broken by chunk ID
	// ascending so results are reproducible. k <= 0 yields an empty
	// result; an empty query vector fails with ErrInvalidQuery.
	QuerySimilar(ctx context.Context, vector []float32, k int) ([]*core.VectorMatch, error)

	// QuerySimilarFiltered behaves like QuerySimilar but restricts
	// candidates to chunks belonging to the given emails. A nil or empty
	// filter set yields an empty result.
	QuerySimilarFiltered(ctx context.Context, vector []float32, k int, emailIDs map[core.ID]struct{}) ([]*core.VectorMatch, error)
}

// EmailRepository provides operations for managing emails and their chunks.
type EmailRepository interface {
	Repository
	VectorIndex

	// CreateEmail validates the draft and persists a new email with an
	// ID from sequence and a UTC creation timestamp. Participant index
	// entries are written for the sender and each primary recipient
	// (cc/bcc are stored on the record but not indexed). Returns before
	// any chunks exist; validation failures (core.ErrInvalidEmail) leave
	// nothing written.
	CreateEmail(ctx context.Context, draft *core.EmailDraft) (*core.Email, error)

	// AppendChunk persists one chunk of an email together with its
	// vector. The chunk record, its order index entry, and its vector
	// index entry are written in a single transaction.
	// Fails with ErrEmailNotFound if the email does not exist, with
	// ErrDuplicateOrder if orderIndex is already used for the email, and
	// with ErrDimensionMismatch if the vector's dimensionality differs
	// from the one established by the first chunk in the store.
	AppendChunk(ctx context.Context, emailID core.ID, content string, vector []float32, orderIndex uint64) (*core.Chunk, error)

	// GetEmail retrieves an email by ID.
	// Returns ErrEmailNotFound if the email doesn't exist.
	GetEmail(ctx context.Context, id core.ID) (*core.Email, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves all chunks of an email, ascending by order
	// index. Returns ErrEmailNotFound if the email doesn't exist; an
	// email with no chunks yet yields an empty slice.
	GetChunks(ctx context.Context, emailID core.ID) ([]*core.Chunk, error)

	// GetChunksByID retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunksByID(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// DeleteEmail removes an email and cascades to its chunks: chunk
	// records, order index entries, vector index entries, and
	// participant index entries all go in one transaction.
	// Returns ErrEmailNotFound if the email doesn't exist.
	DeleteEmail(ctx context.Context, id core.ID) error

	// EmailIDsForParticipant returns the IDs of emails whose sender or
	// primary recipients include the given identity. Matching is
	// case-insensitive on the normalized address.
	EmailIDsForParticipant(ctx context.Context, identity string) (map[core.ID]struct{}, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int64, error)

	// ChunkIDs returns the IDs of all stored chunks, ascending.
	// Used by maintenance jobs that iterate the whole chunk space.
	ChunkIDs(ctx context.Context) ([]core.ID, error)

	// UpdateChunkVectors rewrites the vectors of existing chunks,
	// keeping chunk records and vector index entries consistent in one
	// transaction per call. All vectors in a call must share one
	// dimensionality, which becomes the store's established dimension;
	// intended for re-embedding migrations that rewrite every chunk.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunkVectors(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)
}
