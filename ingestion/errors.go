package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/mailvec/core"
)

var (
	// ErrRepositoryRequired is returned when an email repository is not provided.
	ErrRepositoryRequired = errors.New("email repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// IngestionError reports a partial ingestion failure. The email record and
// chunks 1..LastOrder stayed committed; nothing is rolled back. Resume picks
// up at LastOrder+1.
type IngestionError struct {
	// EmailID identifies the partially ingested email.
	EmailID core.ID

	// LastOrder is the highest order index persisted before the failure.
	// 0 means the email record exists but carries no chunks yet.
	LastOrder uint64

	// Err is the underlying cause.
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of email %d stopped after chunk %d: %v", e.EmailID, e.LastOrder, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
