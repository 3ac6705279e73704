package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/storage"
)

func newTestStore(t *testing.T) storage.EmailRepository {
	t.Helper()
	repo, backend, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { repo.Close(); backend.Close() })
	return repo
}

func testDraft() *core.EmailDraft {
	return &core.EmailDraft{
		Subject:    "Project update",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com", "carol@example.com"},
		Cc:         []string{"dan@example.com"},
		Bcc:        []string{"eve@example.com"},
		Body:       "The migration finished over the weekend without incident.",
	}
}

func TestEmailBasics(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	if email.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if email.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	// Retrieve it back
	retrieved, err := repo.GetEmail(ctx, email.Id)
	if err != nil {
		t.Fatalf("Failed to get email: %v", err)
	}

	if retrieved.Subject != "Project update" {
		t.Fatalf("Expected 'Project update', got '%s'", retrieved.Subject)
	}
	if retrieved.Sender != "alice@example.com" {
		t.Fatalf("Expected sender to round-trip, got '%s'", retrieved.Sender)
	}
	if len(retrieved.Recipients) != 2 {
		t.Fatalf("Expected 2 recipients, got %d", len(retrieved.Recipients))
	}
}

func TestCreateEmail_InvalidDraft(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	draft := testDraft()
	draft.Subject = "   "

	_, err := repo.CreateEmail(ctx, draft)
	if !errors.Is(err, core.ErrInvalidEmail) {
		t.Fatalf("Expected ErrInvalidEmail, got %v", err)
	}

	// A rejected draft leaves no trace: not even participant entries.
	ids, err := repo.EmailIDsForParticipant(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected empty participant index, got %d entries", len(ids))
	}
}

func TestGetEmail_NotFound(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.GetEmail(context.Background(), 9999)
	if !errors.Is(err, storage.ErrEmailNotFound) {
		t.Fatalf("Expected ErrEmailNotFound, got %v", err)
	}
}

func TestAppendChunk(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	chunk, err := repo.AppendChunk(ctx, email.Id, "first segment", []float32{0.1, 0.2, 0.3}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}
	if chunk.Id == 0 {
		t.Fatal("Expected non-zero chunk ID")
	}
	if chunk.EmailId != email.Id {
		t.Fatalf("Expected chunk to reference email %d, got %d", email.Id, chunk.EmailId)
	}

	retrieved, err := repo.GetChunk(ctx, chunk.Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.Content != "first segment" {
		t.Fatalf("Expected 'first segment', got '%s'", retrieved.Content)
	}
	if len(retrieved.Vector) != 3 {
		t.Fatalf("Expected 3-dimensional vector, got %d", len(retrieved.Vector))
	}
}

func TestAppendChunk_EmailNotFound(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.AppendChunk(context.Background(), 4242, "orphan", []float32{0.1}, 1)
	if !errors.Is(err, storage.ErrEmailNotFound) {
		t.Fatalf("Expected ErrEmailNotFound, got %v", err)
	}
}

func TestAppendChunk_DuplicateOrder(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	_, err = repo.AppendChunk(ctx, email.Id, "first", []float32{0.1, 0.2}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}

	_, err = repo.AppendChunk(ctx, email.Id, "again", []float32{0.3, 0.4}, 1)
	if !errors.Is(err, storage.ErrDuplicateOrder) {
		t.Fatalf("Expected ErrDuplicateOrder, got %v", err)
	}

	// The same order index on a different email is fine.
	other, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create second email: %v", err)
	}
	_, err = repo.AppendChunk(ctx, other.Id, "first of other", []float32{0.5, 0.6}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk to second email: %v", err)
	}
}

func TestAppendChunk_DimensionMismatch(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	// First append establishes the store's dimensionality.
	_, err = repo.AppendChunk(ctx, email.Id, "establishes dim 3", []float32{0.1, 0.2, 0.3}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}

	_, err = repo.AppendChunk(ctx, email.Id, "wrong dim", []float32{0.1, 0.2}, 2)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	// The rejected chunk must not appear in the order sequence.
	chunks, err := repo.GetChunks(ctx, email.Id)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
}

func TestGetChunks_OrderedByIndex(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	// Append out of order; retrieval must sort by order index.
	for _, order := range []uint64{3, 1, 2} {
		_, err := repo.AppendChunk(ctx, email.Id, "segment", []float32{0.1, 0.2}, order)
		if err != nil {
			t.Fatalf("Failed to append chunk %d: %v", order, err)
		}
	}

	chunks, err := repo.GetChunks(ctx, email.Id)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.OrderIndex != uint64(i+1) {
			t.Fatalf("Expected order index %d at position %d, got %d", i+1, i, chunk.OrderIndex)
		}
	}
}

func TestGetChunks_EmailNotFound(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.GetChunks(context.Background(), 31337)
	if !errors.Is(err, storage.ErrEmailNotFound) {
		t.Fatalf("Expected ErrEmailNotFound, got %v", err)
	}
}

func TestGetChunksByID_SkipsMissing(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	first, err := repo.AppendChunk(ctx, email.Id, "one", []float32{0.1}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}
	second, err := repo.AppendChunk(ctx, email.Id, "two", []float32{0.2}, 2)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}

	chunks, err := repo.GetChunksByID(ctx, first.Id, 8888, second.Id)
	if err != nil {
		t.Fatalf("Failed to get chunks by ID: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
}

func TestDeleteEmail_Cascades(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}
	keeper, err := repo.CreateEmail(ctx, &core.EmailDraft{
		Subject:    "Unrelated",
		Sender:     "frank@example.com",
		Recipients: []string{"grace@example.com"},
		Body:       "untouched by the delete",
	})
	if err != nil {
		t.Fatalf("Failed to create second email: %v", err)
	}

	var chunkIDs []core.ID
	for order := uint64(1); order <= 3; order++ {
		chunk, err := repo.AppendChunk(ctx, email.Id, "segment", []float32{1.0, 0.0}, order)
		if err != nil {
			t.Fatalf("Failed to append chunk: %v", err)
		}
		chunkIDs = append(chunkIDs, chunk.Id)
	}
	kept, err := repo.AppendChunk(ctx, keeper.Id, "keeper segment", []float32{1.0, 0.0}, 1)
	if err != nil {
		t.Fatalf("Failed to append keeper chunk: %v", err)
	}

	if err := repo.DeleteEmail(ctx, email.Id); err != nil {
		t.Fatalf("Failed to delete email: %v", err)
	}

	// Email record gone
	if _, err := repo.GetEmail(ctx, email.Id); !errors.Is(err, storage.ErrEmailNotFound) {
		t.Fatalf("Expected ErrEmailNotFound after delete, got %v", err)
	}

	// Chunk records gone
	for _, id := range chunkIDs {
		if _, err := repo.GetChunk(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Expected chunk %d to be deleted, got %v", id, err)
		}
	}

	// Vector index entries gone: only the keeper's chunk matches now.
	matches, err := repo.QuerySimilar(ctx, []float32{1.0, 0.0}, 10)
	if err != nil {
		t.Fatalf("Failed to query vector index: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 vector match after delete, got %d", len(matches))
	}
	if matches[0].ChunkId != kept.Id {
		t.Fatalf("Expected keeper chunk %d, got %d", kept.Id, matches[0].ChunkId)
	}

	// Participant index entries gone
	ids, err := repo.EmailIDsForParticipant(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected no participant entries after delete, got %d", len(ids))
	}

	// Keeper untouched
	if _, err := repo.GetEmail(ctx, keeper.Id); err != nil {
		t.Fatalf("Expected keeper email to survive, got %v", err)
	}
}

func TestDeleteEmail_NotFound(t *testing.T) {
	repo := newTestStore(t)

	err := repo.DeleteEmail(context.Background(), 7777)
	if !errors.Is(err, storage.ErrEmailNotFound) {
		t.Fatalf("Expected ErrEmailNotFound, got %v", err)
	}
}

func TestEmailIDsForParticipant(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	// Sender matches
	ids, err := repo.EmailIDsForParticipant(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if _, ok := ids[email.Id]; !ok {
		t.Fatal("Expected sender to match")
	}

	// Recipient matches
	ids, err = repo.EmailIDsForParticipant(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if _, ok := ids[email.Id]; !ok {
		t.Fatal("Expected recipient to match")
	}

	// Matching is case-insensitive
	ids, err = repo.EmailIDsForParticipant(ctx, "ALICE@Example.COM")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if _, ok := ids[email.Id]; !ok {
		t.Fatal("Expected case-insensitive match")
	}

	// Cc and Bcc identities are not participants
	for _, identity := range []string{"dan@example.com", "eve@example.com"} {
		ids, err = repo.EmailIDsForParticipant(ctx, identity)
		if err != nil {
			t.Fatalf("Failed to query participant index: %v", err)
		}
		if len(ids) != 0 {
			t.Fatalf("Expected %s not to match, got %d emails", identity, len(ids))
		}
	}

	// Unknown identity matches nothing
	ids, err = repo.EmailIDsForParticipant(ctx, "stranger@example.com")
	if err != nil {
		t.Fatalf("Failed to query participant index: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected no matches for unknown identity, got %d", len(ids))
	}
}

func TestEmailIDsForParticipant_EmptyIdentity(t *testing.T) {
	repo := newTestStore(t)

	_, err := repo.EmailIDsForParticipant(context.Background(), "   ")
	if !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestCountChunks(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	count, err := repo.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 chunks in fresh store, got %d", count)
	}

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}
	for order := uint64(1); order <= 5; order++ {
		if _, err := repo.AppendChunk(ctx, email.Id, "segment", []float32{0.1}, order); err != nil {
			t.Fatalf("Failed to append chunk: %v", err)
		}
	}

	count, err = repo.CountChunks(ctx)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 5 {
		t.Fatalf("Expected 5 chunks, got %d", count)
	}
}

func TestChunkIDs_NumericAscending(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}

	// Twelve chunks so IDs cross the single-digit boundary, where
	// lexicographic and numeric orders diverge.
	for order := uint64(1); order <= 12; order++ {
		if _, err := repo.AppendChunk(ctx, email.Id, "segment", []float32{0.1}, order); err != nil {
			t.Fatalf("Failed to append chunk: %v", err)
		}
	}

	ids, err := repo.ChunkIDs(ctx)
	if err != nil {
		t.Fatalf("Failed to list chunk IDs: %v", err)
	}
	if len(ids) != 12 {
		t.Fatalf("Expected 12 IDs, got %d", len(ids))
	}
	for i := 0; i < len(ids)-1; i++ {
		if ids[i] >= ids[i+1] {
			t.Fatalf("Expected strictly ascending IDs, got %d before %d", ids[i], ids[i+1])
		}
	}
}

func TestUpdateChunkVectors(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}
	chunk, err := repo.AppendChunk(ctx, email.Id, "segment", []float32{1.0, 0.0}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}

	// Re-embed with a different dimensionality, as a model migration would.
	chunk.Vector = []float32{0.0, 1.0, 0.0}
	updated, err := repo.UpdateChunkVectors(ctx, chunk)
	if err != nil {
		t.Fatalf("Failed to update chunk vectors: %v", err)
	}
	if len(updated) != 1 {
		t.Fatalf("Expected 1 updated chunk, got %d", len(updated))
	}

	retrieved, err := repo.GetChunk(ctx, chunk.Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if len(retrieved.Vector) != 3 {
		t.Fatalf("Expected 3-dimensional vector after update, got %d", len(retrieved.Vector))
	}

	// The vector index entry follows the update.
	matches, err := repo.QuerySimilar(ctx, []float32{0.0, 1.0, 0.0}, 1)
	if err != nil {
		t.Fatalf("Failed to query vector index: %v", err)
	}
	if len(matches) != 1 || matches[0].ChunkId != chunk.Id {
		t.Fatalf("Expected updated vector in index, got %v", matches)
	}

	// The store's dimension moved with the update: the old width is
	// now rejected.
	_, err = repo.AppendChunk(ctx, email.Id, "stale width", []float32{1.0, 0.0}, 2)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch after migration, got %v", err)
	}
}

func TestUpdateChunkVectors_Missing(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	ghost := &core.Chunk{
		Id:         5555,
		EmailId:    1,
		Content:    "never stored",
		Vector:     []float32{0.1},
		OrderIndex: 1,
	}
	_, err := repo.UpdateChunkVectors(ctx, ghost)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateChunkVectors_MixedDimensions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, testDraft())
	if err != nil {
		t.Fatalf("Failed to create email: %v", err)
	}
	first, err := repo.AppendChunk(ctx, email.Id, "one", []float32{1.0, 0.0}, 1)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}
	second, err := repo.AppendChunk(ctx, email.Id, "two", []float32{0.0, 1.0}, 2)
	if err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}

	first.Vector = []float32{0.1, 0.2, 0.3}
	second.Vector = []float32{0.1, 0.2}

	_, err = repo.UpdateChunkVectors(ctx, first, second)
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch for mixed batch, got %v", err)
	}
}
