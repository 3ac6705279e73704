package search

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/poiesic/mailvec/ai"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/storage"
)

const (
	// DefaultThreshold is the similarity floor used by FindSimilar when no
	// explicit threshold is given. A chunk must score strictly above it.
	DefaultThreshold = 0.60

	// MaxSearchResults is the hard cap on results from a single search,
	// regardless of the requested limit.
	MaxSearchResults = 200
)

// Searcher provides participant-scoped semantic search over email chunks.
type Searcher struct {
	repository storage.EmailRepository
	embedder   ai.Embedder
	threshold  float64
	monitor    SearchMonitor
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithThreshold sets the similarity floor used by FindSimilar.
// Default is DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		s.threshold = threshold
		return nil
	}
}

// WithMonitor sets a monitor observing every search through this searcher.
// Default is a no-op monitor.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repository storage.EmailRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		repository: repository,
		embedder:   embedder,
		threshold:  DefaultThreshold,
		monitor:    &noopMonitor{},
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search ranks the chunks of emails involving identity by cosine similarity
// to queryVector and returns those scoring strictly above threshold, best
// first; exact ties resolve by ascending chunk ID. Identity matches emails
// where it is the sender or a direct recipient, case-insensitively; cc and
// bcc do not count.
//
// At most min(limit, MaxSearchResults) results are returned. A limit of
// zero or less yields an empty result, not an error.
func (s *Searcher) Search(ctx context.Context, queryVector []float32, threshold float64, limit int, identity string) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return []*core.SearchResult{}, nil
	}
	if strings.TrimSpace(identity) == "" {
		return nil, ErrEmptyIdentity
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	s.monitor.Start(identity)

	if limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	// 1. Resolve the candidate emails for the identity.
	normalized := core.NormalizeIdentity(identity)
	emailIDs, err := s.repository.EmailIDsForParticipant(ctx, normalized)
	if err != nil {
		s.logger.Error("error resolving participant emails", "identity", normalized, "err", err)
		return nil, err
	}
	s.monitor.AfterIdentityResolution(maps.Keys(emailIDs))

	if len(emailIDs) == 0 {
		s.monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	// 2. Rank those emails' chunks against the query vector.
	matches, err := s.repository.QuerySimilarFiltered(ctx, queryVector, limit, emailIDs)
	if err != nil {
		s.logger.Error("error querying similar chunks", "err", err)
		return nil, err
	}
	s.monitor.AfterVectorSearch(matches)

	// 3. Keep strictly above-threshold scores; boundary scores drop.
	survivors := make([]*core.VectorMatch, 0, len(matches))
	for _, match := range matches {
		if float64(match.Score) > threshold {
			survivors = append(survivors, match)
		}
	}
	s.monitor.AfterThresholdFilter(survivors)

	if len(survivors) == 0 {
		s.monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	// 4. Hydrate content for the survivors only.
	ids := make([]core.ID, len(survivors))
	for i, match := range survivors {
		ids[i] = match.ChunkId
	}

	chunks, err := s.repository.GetChunksByID(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving chunks", "chunkCount", len(ids), "err", err)
		return nil, err
	}
	s.monitor.AfterChunkRetrieval(chunks)

	byID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.Id] = chunk
	}

	// Pair scores with hydrated chunks, preserving ranked order.
	results := make([]*core.SearchResult, 0, len(survivors))
	for _, match := range survivors {
		chunk, ok := byID[match.ChunkId]
		if !ok {
			// Deleted between scoring and hydration
			continue
		}
		results = append(results, &core.SearchResult{
			Chunk: chunk,
			Score: match.Score,
		})
	}

	s.monitor.Finish(results)
	return results, nil
}

// SearchText embeds queryText and searches with the resulting vector.
func (s *Searcher) SearchText(ctx context.Context, queryText string, threshold float64, limit int, identity string) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return []*core.SearchResult{}, nil
	}
	if strings.TrimSpace(identity) == "" {
		return nil, ErrEmptyIdentity
	}

	embedding, err := s.embedder.EmbedText(ctx, queryText)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	return s.Search(ctx, embedding, threshold, limit, identity)
}

// FindSimilar searches for chunks similar to the query text in emails
// involving identity, using the searcher's configured threshold.
// Returns up to maxHits results, ranked by similarity.
func (s *Searcher) FindSimilar(ctx context.Context, query, identity string, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchText(ctx, query, s.threshold, maxHits, identity)
}
