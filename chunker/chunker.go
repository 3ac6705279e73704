// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultBudget is the default chunk size budget in characters.
const DefaultBudget = 2000

// ErrInvalidBudget is returned when a budget below 1 is configured.
var ErrInvalidBudget = errors.New("chunk budget must be at least 1")

// Chunker splits text into ordered, size-bounded chunks.
// It is stateless after construction and safe for concurrent use.
type Chunker struct {
	budget int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithBudget sets the chunk size budget in characters.
// Default is DefaultBudget.
func WithBudget(budget int) Option {
	return func(c *Chunker) error {
		if budget < 1 {
			return ErrInvalidBudget
		}
		c.budget = budget
		return nil
	}
}

// New creates a new Chunker.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		budget: DefaultBudget,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Budget returns the configured chunk size budget.
func (c *Chunker) Budget() int {
	return c.budget
}

// Chunk splits text into ordered chunks of at most the configured budget.
//
// Words (whitespace-separated tokens) are accumulated greedily and joined
// by single spaces; a word that would push the current chunk past the
// budget closes it and opens the next. The final partial chunk is emitted
// if non-empty. A single word longer than the budget becomes its own
// oversized chunk rather than being split. Empty or whitespace-only input
// yields nil.
//
// The caller assigns order indexes 1..N from the returned ordering.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks  []string
		current strings.Builder
		curLen  int // rune count of current, including joining spaces
	)

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)

		if curLen == 0 {
			current.WriteString(word)
			curLen = wordLen
			continue
		}

		if curLen+1+wordLen > c.budget {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(word)
			curLen = wordLen
			continue
		}

		current.WriteByte(' ')
		current.WriteString(word)
		curLen += 1 + wordLen
	}

	if curLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
