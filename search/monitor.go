package search

import (
	"iter"

	"github.com/poiesic/mailvec/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(identity string)
	AfterIdentityResolution(emailIds iter.Seq[core.ID])
	AfterVectorSearch(matches []*core.VectorMatch)
	AfterThresholdFilter(matches []*core.VectorMatch)
	AfterChunkRetrieval(chunks []*core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterIdentityResolution(_ iter.Seq[core.ID]) {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.VectorMatch)     {}
func (n *noopMonitor) AfterThresholdFilter(_ []*core.VectorMatch)  {}
func (n *noopMonitor) AfterChunkRetrieval(_ []*core.Chunk)         {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)               {}
