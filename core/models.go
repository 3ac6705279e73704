package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Email is a single ingested email document. Emails are immutable once
// created; deleting one cascades to all of its chunks.
type Email struct {
	Id         ID
	Subject    string
	Sender     string
	Recipients []string // primary recipients, at least one
	Cc         []string
	Bcc        []string
	Body       string
	CreatedAt  time.Time // When the email row was persisted
}

// Participants returns the identities the participant filter matches on:
// the sender and the primary recipients. Cc and bcc are stored on the
// record but intentionally excluded here.
func (e *Email) Participants() []string {
	out := make([]string, 0, len(e.Recipients)+1)
	out = append(out, e.Sender)
	out = append(out, e.Recipients...)
	return out
}

// Chunk is a contiguous, size-bounded slice of an email body together
// with its embedding vector. A chunk is never persisted without its
// vector, and it cannot outlive its owning email.
type Chunk struct {
	Id         ID
	EmailId    ID
	Content    string
	Vector     []float32 // Embedding vector, fixed dimensionality per store
	OrderIndex uint64    // 1-based position within the owning email
	CreatedAt  time.Time
}

// EmailDraft is the pre-persistence input to ingestion. It carries no
// identity or timestamp; those are assigned by the store on creation.
type EmailDraft struct {
	Subject    string
	Sender     string
	Recipients []string
	Cc         []string
	Bcc        []string
	Body       string
}

// VectorEntry is the similarity index payload for one chunk: the owning
// email and the chunk's embedding. The chunk identity lives in the index
// key, so the entry is a non-owning reference that must stay consistent
// with the chunk record it mirrors.
type VectorEntry struct {
	EmailId ID
	Vector  []float32
}

// VectorMatch is a raw hit from the similarity index: a chunk identity
// and its cosine similarity to the query vector.
type VectorMatch struct {
	ChunkId ID
	EmailId ID
	Score   float32
}

// SearchResult is a ranked retrieval hit with the full chunk hydrated.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
