package textproc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/liliang-cn/ragdesk/internal/domain"
)

// separators tried in order by the recursive splitter
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text into overlapping pieces measured in runes
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker. An overlap that is negative or not smaller
// than size is clamped.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(defaultSeparators),
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

// Split applies the named strategy to text
func (c *Chunker) Split(text, strategy string) ([]string, error) {
	var chunks []string
	switch strategy {
	case domain.ChunkingFixed:
		chunks = c.Fixed(text)
	case domain.ChunkingRecursive:
		chunks = c.Recursive(text)
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrInvalidRequest, strategy)
	}
	return chunks, nil
}

// Fixed slides a window of size runes over text, advancing by size-overlap
func (c *Chunker) Fixed(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.size {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return nil
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			chunks = append(chunks, s)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Recursive splits on paragraph, line, word and finally rune boundaries,
// then merges neighbouring pieces up to size with overlap carried over.
func (c *Chunker) Recursive(text string) []string {
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		// not expected for character separators; fall back to the window
		return c.Fixed(text)
	}

	var out []string
	for _, s := range pieces {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
