// Package ingestion provides orchestration for turning email drafts into
// stored, embedded chunks.
//
// The Orchestrator type manages the ingestion workflow for each email:
//   - Validating the draft
//   - Persisting the email record
//   - Chunking the body
//   - Embedding and persisting each chunk, strictly in order
//
// Within one email the sequence is sequential so the chunk ordering
// invariant holds; a worker pool spreads distinct emails across goroutines.
// A chunk-level failure leaves the persisted prefix committed and returns
// an *IngestionError carrying the resume point.
package ingestion
