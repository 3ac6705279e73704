// Package chunker provides deterministic segmentation of email bodies into
// size-bounded chunks.
//
// Text is split on whitespace and words are greedily accumulated into chunks
// joined by single spaces, so the ordered chunks of a body reconstruct it up
// to whitespace collapsing. Words are never split mid-word, even when a
// single word exceeds the budget.
package chunker
