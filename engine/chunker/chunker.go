// Package chunker splits raw document text into overlapping fixed-size spans
// suitable for embedding and retrieval. Splitting prefers natural boundaries
// (paragraph, then sentence, then word) before falling back to a hard cut, so
// chunks rarely end mid-token.
package chunker

import (
	"strings"

	"github.com/askdocs/askdocs/engine/domain"
)

const (
	// DefaultChunkSize is the target number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultOverlap is the number of characters shared between consecutive
	// chunks, so no span shorter than chunkSize-overlap is lost at a boundary.
	DefaultOverlap = 200
)

// Chunker produces overlapping character windows from text. Splitting is
// deterministic: the same input always yields the same chunk sequence.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Non-positive size falls back to DefaultChunkSize;
// negative overlap is clamped to zero, and overlap is clamped below size.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the overlapping chunks of text. Empty or whitespace-only
// input yields zero chunks. Each chunk is an exact substring of the input,
// and consecutive chunks share exactly the overlap suffix/prefix, so the
// original text is reconstructible from the sequence.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end = c.breakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))

		next := end - c.overlap
		if next <= start {
			// Forward progress for degenerate size/overlap combinations.
			next = end
		}
		start = next
	}
	return chunks
}

// ChunkDocument splits text and wraps each span in chunk metadata for the
// given tenant and document.
func (c *Chunker) ChunkDocument(tenantID, docID, docName, text string) []domain.Chunk {
	spans := c.Split(text)
	chunks := make([]domain.Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = domain.NewChunk(span, tenantID, docID, docName, i)
	}
	return chunks
}

// breakPoint finds where to end the chunk starting at start whose hard limit
// is end. It scans backwards for a paragraph break, then a sentence end, then
// a word gap, never retreating past the midpoint of the window. Returns end
// unchanged when no boundary is found (hard character cut).
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	floor := start + c.size/2

	// Paragraph: break after a blank line.
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// Sentence: break after terminal punctuation followed by space, or
	// after a single newline.
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
		if i+1 < end && isSpace(runes[i+1]) && (runes[i] == '.' || runes[i] == '!' || runes[i] == '?') {
			return i + 2
		}
	}

	// Word: break after a space.
	for i := end - 1; i > floor; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
