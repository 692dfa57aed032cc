package chunker

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	c := New(1000, 200)
	for _, text := range []string{"", "   ", "\n\t\n  "} {
		if got := c.Split(text); len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", text, len(got))
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New(1000, 200)
	text := "The refund window is 30 days. Shipping takes 5 days."
	got := c.Split(text)
	if len(got) != 1 {
		t.Fatalf("Split returned %d chunks, want 1", len(got))
	}
	if got[0] != text {
		t.Errorf("single chunk = %q, want original text", got[0])
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("All work and no play makes a dull document. ", 50)
	a := c.Split(text)
	b := c.Split(text)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_ChunkSizeBound(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("word ", 500)
	for i, chunk := range c.Split(text) {
		if n := len([]rune(chunk)); n > 100 {
			t.Errorf("chunk %d has %d runes, limit 100", i, n)
		}
	}
}

// Reconstructing the input from chunks by stripping each successor's overlap
// prefix must give back the original text exactly.
func TestSplit_RoundTrip(t *testing.T) {
	const overlap = 20
	c := New(100, overlap)
	texts := []string{
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		strings.Repeat("paragraph one\n\nparagraph two with more text in it\n\n", 20),
		strings.Repeat("nowhitespaceatall", 60),
	}
	for _, text := range texts {
		chunks := c.Split(text)
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks for %d chars", len(text))
		}
		var sb strings.Builder
		sb.WriteString(chunks[0])
		for _, chunk := range chunks[1:] {
			runes := []rune(chunk)
			sb.WriteString(string(runes[overlap:]))
		}
		if sb.String() != text {
			t.Error("round-trip reconstruction does not match original text")
		}
	}
}

func TestSplit_OverlapShared(t *testing.T) {
	const overlap = 20
	c := New(100, overlap)
	text := strings.Repeat("Sentences make boundaries more natural to find. ", 30)
	chunks := c.Split(text)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		suffix := string(prev[len(prev)-overlap:])
		prefix := string(cur[:overlap])
		if suffix != prefix {
			t.Errorf("chunks %d/%d: overlap mismatch: %q vs %q", i-1, i, suffix, prefix)
		}
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	c := New(100, 10)
	text := strings.Repeat("A full sentence that ends properly. ", 10)
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatal("expected multiple chunks")
	}
	// All non-final chunks should end right after sentence punctuation.
	for i, chunk := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(chunk, " ")
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("chunk %d ends mid-sentence: %q", i, chunk[len(chunk)-20:])
		}
	}
}

func TestChunkDocument_Metadata(t *testing.T) {
	c := New(50, 10)
	chunks := c.ChunkDocument("7", "doc-1", "notes.txt", strings.Repeat("short sentence here. ", 10))
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for i, ch := range chunks {
		if ch.TenantID != "7" || ch.DocumentID != "doc-1" || ch.DocumentName != "notes.txt" {
			t.Errorf("chunk %d metadata wrong: %+v", i, ch)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, ch.ChunkIndex)
		}
		want := "notes.txt_chunk_"
		if !strings.HasPrefix(ch.SourceLabel, want) {
			t.Errorf("chunk %d source label = %q", i, ch.SourceLabel)
		}
	}
}

func TestNew_DegenerateParams(t *testing.T) {
	c := New(0, -5)
	if c.size != DefaultChunkSize || c.overlap != 0 {
		t.Errorf("New(0,-5) = size %d overlap %d", c.size, c.overlap)
	}
	c = New(10, 50)
	if c.overlap >= c.size {
		t.Errorf("overlap %d not clamped below size %d", c.overlap, c.size)
	}
}
