package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/mailvec/ai"
	"github.com/poiesic/mailvec/chunker"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/reindex"
	"github.com/poiesic/mailvec/storage"
)

const (
	defaultPoolSize    = 4
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

// Orchestrator drives the per-email ingestion sequence: validate, persist
// the email, chunk the body, then embed and persist each chunk in order.
// A single email is always processed sequentially; the worker pool only
// spreads distinct emails across goroutines.
type Orchestrator struct {
	repository  storage.EmailRepository
	embedder    ai.Embedder
	chunker     *chunker.Chunker
	pool        *ants.Pool
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Receipt summarizes a completed ingestion.
type Receipt struct {
	// EmailID identifies the ingested email.
	EmailID core.ID

	// ChunkCount is the number of chunks persisted for the email.
	ChunkCount int

	// Resumed reports whether this receipt came from Resume rather
	// than a fresh Ingest.
	Resumed bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithChunker sets the chunker used to segment email bodies.
// Default is a chunker with the standard word budget.
func WithChunker(c *chunker.Chunker) Option {
	return func(o *Orchestrator) error {
		if c == nil {
			return nil
		}
		o.chunker = c
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent multi-email
// ingestion. Default is 4, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}

		if o.pool != nil {
			o.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithRetry configures retries for transient provider failures during
// embedding. Default is 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *Orchestrator) error {
		if maxAttempts < 1 {
			return reindex.ErrInvalidMaxAttempts
		}
		o.maxAttempts = maxAttempts
		o.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a new ingestion orchestrator.
func NewOrchestrator(repository storage.EmailRepository, embedder ai.Embedder, opts ...Option) (*Orchestrator, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	segmenter, err := chunker.New()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		repository:  repository,
		embedder:    embedder,
		chunker:     segmenter,
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Ingest validates and persists a draft, then embeds and persists its
// chunks in order. A draft that fails validation leaves nothing behind.
//
// A failure while embedding or persisting chunk i returns *IngestionError:
// the email and chunks 1..LastOrder stay committed, and Resume continues
// from there. Nothing is rolled back.
func (o *Orchestrator) Ingest(ctx context.Context, draft *core.EmailDraft) (*Receipt, error) {
	if err := core.ValidateEmailDraft(draft); err != nil {
		return nil, err
	}

	email, err := o.repository.CreateEmail(ctx, draft)
	if err != nil {
		return nil, err
	}

	segments := o.chunker.Chunk(email.Body)
	o.logger.Info("ingesting email", "email", email.Id, "chunks", len(segments))

	count, err := o.appendSegments(ctx, email.Id, segments, 0)
	if err != nil {
		return nil, err
	}

	return &Receipt{EmailID: email.Id, ChunkCount: count}, nil
}

// Resume continues a partially ingested email. Chunks are recomputed from
// the stored body; order indexes already persisted are skipped and
// ingestion picks up at the first missing one. Resuming a complete email
// is a no-op.
func (o *Orchestrator) Resume(ctx context.Context, emailID core.ID) (*Receipt, error) {
	email, err := o.repository.GetEmail(ctx, emailID)
	if err != nil {
		return nil, err
	}

	existing, err := o.repository.GetChunks(ctx, emailID)
	if err != nil {
		return nil, err
	}

	segments := o.chunker.Chunk(email.Body)
	o.logger.Info("resuming email", "email", email.Id, "persisted", len(existing), "chunks", len(segments))

	count, err := o.appendSegments(ctx, emailID, segments, len(existing))
	if err != nil {
		return nil, err
	}

	return &Receipt{EmailID: emailID, ChunkCount: count, Resumed: true}, nil
}

// IngestMany ingests drafts concurrently through the worker pool. Receipts
// are positional: receipts[i] belongs to drafts[i] and is nil when that
// draft failed. One draft's failure never aborts its siblings; all errors
// come back joined.
func (o *Orchestrator) IngestMany(ctx context.Context, drafts []*core.EmailDraft) ([]*Receipt, error) {
	receipts := make([]*Receipt, len(drafts))
	errs := make([]error, len(drafts))

	var wg sync.WaitGroup
	for i, draft := range drafts {
		wg.Add(1)
		submitErr := o.pool.Submit(func() {
			defer wg.Done()
			receipt, err := o.Ingest(ctx, draft)
			if err != nil {
				errs[i] = fmt.Errorf("draft %d: %w", i, err)
				return
			}
			receipts[i] = receipt
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("draft %d: %w", i, submitErr)
		}
	}
	wg.Wait()

	return receipts, errors.Join(errs...)
}

// Release releases the worker pool.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// appendSegments embeds and persists segments[persisted:] one at a time,
// in order. Returns the total number of chunks the email holds on success.
// On failure the already-persisted prefix stays committed and the error
// carries the resume point.
func (o *Orchestrator) appendSegments(ctx context.Context, emailID core.ID, segments []string, persisted int) (int, error) {
	for i := persisted; i < len(segments); i++ {
		vector, err := o.embedSegment(ctx, segments[i])
		if err != nil {
			return i, &IngestionError{EmailID: emailID, LastOrder: uint64(i), Err: err}
		}

		if _, err := o.repository.AppendChunk(ctx, emailID, segments[i], vector, uint64(i+1)); err != nil {
			return i, &IngestionError{EmailID: emailID, LastOrder: uint64(i), Err: err}
		}
	}

	return len(segments), nil
}

// embedSegment obtains the vector for one chunk. Transient provider
// failures are retried with exponential backoff; any other error is
// returned as-is on the first attempt.
func (o *Orchestrator) embedSegment(ctx context.Context, text string) ([]float32, error) {
	vector, err := o.embedder.EmbedText(ctx, text)
	if err == nil || !errors.Is(err, ai.ErrProvider) || o.maxAttempts <= 1 {
		return vector, err
	}

	o.logger.Warn("embedding failed, retrying", "err", err)

	retryErr := reindex.RetryWithBackoff(ctx, o.maxAttempts-1, o.retryDelay, func() error {
		var embedErr error
		vector, embedErr = o.embedder.EmbedText(ctx, text)
		return embedErr
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return vector, nil
}
