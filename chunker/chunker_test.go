package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := New()
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.Budget() != DefaultBudget {
			t.Errorf("Budget() = %d, want %d", c.Budget(), DefaultBudget)
		}
	})

	t.Run("with budget", func(t *testing.T) {
		c, err := New(WithBudget(64))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.Budget() != 64 {
			t.Errorf("Budget() = %d, want 64", c.Budget())
		}
	})

	t.Run("zero budget rejected", func(t *testing.T) {
		_, err := New(WithBudget(0))
		if !errors.Is(err, ErrInvalidBudget) {
			t.Errorf("New(WithBudget(0)) error = %v, want %v", err, ErrInvalidBudget)
		}
	})

	t.Run("negative budget rejected", func(t *testing.T) {
		_, err := New(WithBudget(-10))
		if !errors.Is(err, ErrInvalidBudget) {
			t.Errorf("New(WithBudget(-10)) error = %v, want %v", err, ErrInvalidBudget)
		}
	})
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		budget int
		text   string
		want   []string
	}{
		{
			name:   "empty input",
			budget: 10,
			text:   "",
			want:   nil,
		},
		{
			name:   "whitespace only",
			budget: 10,
			text:   " \t \n ",
			want:   nil,
		},
		{
			name:   "single short word",
			budget: 10,
			text:   "hello",
			want:   []string{"hello"},
		},
		{
			name:   "fits in one chunk",
			budget: 11,
			text:   "hello world",
			want:   []string{"hello world"},
		},
		{
			name:   "word exactly at boundary stays",
			budget: 7,
			text:   "abc def",
			want:   []string{"abc def"},
		},
		{
			name:   "word one past boundary splits",
			budget: 7,
			text:   "abc defg",
			want:   []string{"abc", "defg"},
		},
		{
			name:   "oversized word emitted alone",
			budget: 5,
			text:   "abcdefgh",
			want:   []string{"abcdefgh"},
		},
		{
			name:   "oversized word between short ones",
			budget: 5,
			text:   "aa abcdefgh bb",
			want:   []string{"aa", "abcdefgh", "bb"},
		},
		{
			name:   "internal whitespace collapsed",
			budget: 20,
			text:   "one\t\ttwo\n three",
			want:   []string{"one two three"},
		},
		{
			name:   "multibyte runes counted as single characters",
			budget: 5,
			text:   "héllo wörld",
			want:   []string{"héllo", "wörld"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(WithBudget(tt.budget))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			got := c.Chunk(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunk() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Chunk()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Joining the chunks with single spaces must reconstruct the input up to
// whitespace collapsing, and no chunk may exceed the budget unless it is a
// single oversized word.
func TestChunk_Reconstruction(t *testing.T) {
	texts := []string{
		"the quick brown fox jumps over the lazy dog",
		"a b c d e f g h i j k l m n o p",
		"supercalifragilisticexpialidocious and a few short words",
		"   leading and trailing   whitespace   everywhere   ",
		"one",
	}
	budgets := []int{1, 3, 8, 17, 100}

	for _, text := range texts {
		for _, budget := range budgets {
			c, err := New(WithBudget(budget))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			chunks := c.Chunk(text)

			want := strings.Join(strings.Fields(text), " ")
			got := strings.Join(chunks, " ")
			if got != want {
				t.Errorf("budget %d: reconstruction = %q, want %q", budget, got, want)
			}

			for i, chunk := range chunks {
				if chunk == "" {
					t.Errorf("budget %d: chunk %d is empty", budget, i)
				}
				if utf8.RuneCountInString(chunk) > budget && strings.ContainsRune(chunk, ' ') {
					t.Errorf("budget %d: multi-word chunk %q exceeds budget", budget, chunk)
				}
			}
		}
	}
}

// A 3500-character body at the default 2000 budget yields exactly two
// chunks, the first of which stays under budget.
func TestChunk_TwoChunkBody(t *testing.T) {
	body := strings.Repeat("abcdefghi ", 350)
	if len(body) != 3500 {
		t.Fatalf("test body length = %d, want 3500", len(body))
	}

	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	chunks := c.Chunk(body)
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}
	if ln := utf8.RuneCountInString(chunks[0]); ln > 2000 {
		t.Errorf("first chunk length = %d, want <= 2000", ln)
	}
	if ln := utf8.RuneCountInString(chunks[1]); ln > 2000 {
		t.Errorf("second chunk length = %d, want <= 2000", ln)
	}
}
