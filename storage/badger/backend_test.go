package badger

import (
	"context"
	"testing"

	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

// seedChunks ingests one email with the given vectors as its chunks and
// returns the created chunks in append order.
func seedChunks(t *testing.T, repo storage.EmailRepository, vectors [][]float32) (*core.Email, []*core.Chunk) {
	t.Helper()
	ctx := context.Background()

	email, err := repo.CreateEmail(ctx, &core.EmailDraft{
		Subject:    "Quarterly numbers",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com"},
		Body:       "numbers attached",
	})
	require.NoError(t, err)

	chunks := make([]*core.Chunk, len(vectors))
	for i, vec := range vectors {
		chunk, err := repo.AppendChunk(ctx, email.Id, "chunk content", vec, uint64(i+1))
		require.NoError(t, err)
		chunks[i] = chunk
	}
	return email, chunks
}

func TestQuerySimilar_NoEntries(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	results, err := backend.QuerySimilar(ctx, []float32{0.1, 0.2, 0.3}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuerySimilar_EmptyVector(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	_, err = backend.QuerySimilar(ctx, nil, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = backend.QuerySimilar(ctx, []float32{}, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestQuerySimilar_NonPositiveK(t *testing.T) {
	repo, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	seedChunks(t, repo, [][]float32{{1.0, 0.0, 0.0}})

	ctx := context.Background()

	results, err := backend.QuerySimilar(ctx, []float32{1.0, 0.0, 0.0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = backend.QuerySimilar(ctx, []float32{1.0, 0.0, 0.0}, -3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuerySimilar_Ordering(t *testing.T) {
	repo, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	_, chunks := seedChunks(t, repo, [][]float32{
		{0.0, 0.0, 1.0}, // orthogonal to the query
		{1.0, 0.0, 0.0}, // identical to the query
		{0.9, 0.1, 0.0}, // close
	})

	ctx := context.Background()
	results, err := backend.QuerySimilar(ctx, []float32{1.0, 0.0, 0.0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Descending score
	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}

	assert.Equal(t, chunks[1].Id, results[0].ChunkId)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
	assert.Equal(t, chunks[2].Id, results[1].ChunkId)
	assert.Equal(t, chunks[0].Id, results[2].ChunkId)
	assert.InDelta(t, 0.0, results[2].Score, 0.0001)
}

func TestQuerySimilar_TieBreakByChunkID(t *testing.T) {
	repo, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	// Same vector four times: every score ties exactly.
	_, chunks := seedChunks(t, repo, [][]float32{
		{0.6, 0.8, 0.0},
		{0.6, 0.8, 0.0},
		{0.6, 0.8, 0.0},
		{0.6, 0.8, 0.0},
	})

	ctx := context.Background()
	results, err := backend.QuerySimilar(ctx, []float32{0.6, 0.8, 0.0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Ties resolve by ascending chunk ID.
	for i := 0; i < len(results)-1; i++ {
		assert.Less(t, results[i].ChunkId, results[i+1].ChunkId)
	}
	assert.Equal(t, chunks[0].Id, results[0].ChunkId)
}

func TestQuerySimilar_TruncatesToK(t *testing.T) {
	repo, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	vectors := make([][]float32, 10)
	for i := range vectors {
		vectors[i] = []float32{0.9, 0.1, 0.0}
	}
	seedChunks(t, repo, vectors)

	ctx := context.Background()

	t.Run("k smaller than candidates", func(t *testing.T) {
		results, err := backend.QuerySimilar(ctx, []float32{1.0, 0.0, 0.0}, 3)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("k larger than candidates", func(t *testing.T) {
		results, err := backend.QuerySimilar(ctx, []float32{1.0, 0.0, 0.0}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 10)
	})
}

func TestQuerySimilarFiltered(t *testing.T) {
	repo, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	emailA, err := repo.CreateEmail(ctx, &core.EmailDraft{
		Subject:    "A",
		Sender:     "alice@example.com",
		Recipients: []string{"bob@example.com"},
		Body:       "a",
	})
	require.NoError(t, err)
	emailB, err := repo.CreateEmail(ctx, &core.EmailDraft{
		Subject:    "B",
		Sender:     "carol@example.com",
		Recipients: []string{"dave@example.com"},
		Body:       "b",
	})
	require.NoError(t, err)

	chunkA, err := repo.AppendChunk(ctx, emailA.Id, "from A", []float32{1.0, 0.0, 0.0}, 1)
	require.NoError(t, err)
	_, err = repo.AppendChunk(ctx, emailB.Id, "from B", []float32{1.0, 0.0, 0.0}, 1)
	require.NoError(t, err)

	query := []float32{1.0, 0.0, 0.0}

	t.Run("filter restricts to matching emails", func(t *testing.T) {
		filter := map[core.ID]struct{}{emailA.Id: {}}
		results, err := backend.QuerySimilarFiltered(ctx, query, 10, filter)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, chunkA.Id, results[0].ChunkId)
		assert.Equal(t, emailA.Id, results[0].EmailId)
	})

	t.Run("empty filter set yields no results", func(t *testing.T) {
		results, err := backend.QuerySimilarFiltered(ctx, query, 10, map[core.ID]struct{}{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("empty vector rejected before filter check", func(t *testing.T) {
		_, err := backend.QuerySimilarFiltered(ctx, nil, 10, map[core.ID]struct{}{})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical unit vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "identical non-unit vectors",
			a:        []float32{2.0, 0.0, 0.0},
			b:        []float32{5.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "general case",
			a:        []float32{0.6, 0.8},
			b:        []float32{0.8, 0.6},
			expected: 0.96,
		},
		{
			name:     "zero vector yields zero",
			a:        []float32{0.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("successful transaction", func(t *testing.T) {
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		testErr := assert.AnError
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return testErr
		})
		assert.Equal(t, testErr, err)
	})
}

func TestGetSequence(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("test_sequence")
	require.NoError(t, err)
	require.NotNil(t, seq)
	defer seq.Release()

	id1, err := seq.Next()
	require.NoError(t, err)

	id2, err := seq.Next()
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}
