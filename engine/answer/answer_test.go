package answer

import (
	"context"
	"strings"
	"testing"

	"github.com/askdocs/askdocs/engine/domain"
)

// --- mocks ---

type mockBackend struct {
	resp    string
	err     error
	calls   int
	lastReq CompletionRequest
}

func (m *mockBackend) Complete(_ context.Context, req CompletionRequest) (string, error) {
	m.calls++
	m.lastReq = req
	return m.resp, m.err
}

func chunksOf(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.NewChunk(text, "1", "doc-1", "doc.txt", i)
	}
	return chunks
}

// --- tests ---

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		question string
		want     Intent
	}{
		{"Please summarize this", IntentSummarize},
		{"Give me a SUMMARY of everything", IntentSummarize},
		{"Could you summarise the report?", IntentSummarize},
		{"Run text summarization", IntentSummarize},
		{"What is the refund policy?", IntentAsk},
		{"", IntentAsk},
	}
	for _, tt := range tests {
		if got := ClassifyIntent(tt.question); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %v, want %v", tt.question, got, tt.want)
		}
	}
}

func TestAnswer_NoChunks(t *testing.T) {
	backend := &mockBackend{resp: "should not be used"}
	s := New(backend, nil)

	got := s.Answer(context.Background(), "anything?", nil)
	if got != MsgNoDocuments {
		t.Errorf("Answer = %q, want no-documents message", got)
	}
	if backend.calls != 0 {
		t.Error("backend invoked despite zero chunks")
	}
}

func TestAnswer_BackendSuccess(t *testing.T) {
	backend := &mockBackend{resp: "The refund window is 30 days."}
	s := New(backend, nil)

	chunks := chunksOf("The refund window is 30 days.", "Shipping takes 5 days.")
	got := s.Answer(context.Background(), "What is the refund window?", chunks)
	if got != backend.resp {
		t.Errorf("Answer = %q, want backend response", got)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want exactly 1", backend.calls)
	}
	if !strings.Contains(backend.lastReq.System, "The refund window is 30 days.") {
		t.Error("context block missing from system prompt")
	}
	if backend.lastReq.Temperature != askTemperature || backend.lastReq.MaxTokens != askMaxTokens {
		t.Errorf("ask parameters = (%v, %d)", backend.lastReq.Temperature, backend.lastReq.MaxTokens)
	}
}

func TestAnswer_BackendFailureFallsBack(t *testing.T) {
	backend := &mockBackend{err: domain.NewBackendError(domain.BackendRateLimit, context.DeadlineExceeded)}
	s := New(backend, nil)

	chunks := chunksOf("The refund window is 30 days. Shipping takes 5 days.")
	got := s.Answer(context.Background(), "What is the refund window?", chunks)
	if !strings.Contains(got, "30 days") {
		t.Errorf("fallback answer %q does not reference the matching chunk", got)
	}
	if !strings.HasPrefix(got, "Based on the documents") {
		t.Errorf("fallback answer %q missing prefix", got)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want exactly 1 attempt (no retries)", backend.calls)
	}
}

func TestAnswer_NoBackendUsesFallback(t *testing.T) {
	s := New(nil, nil)
	chunks := chunksOf("The refund window is 30 days.")
	got := s.Answer(context.Background(), "What is the refund window?", chunks)
	if !strings.Contains(got, "30 days") {
		t.Errorf("fallback answer = %q", got)
	}
}

func TestFallback_NoKeywordMatch(t *testing.T) {
	s := New(nil, nil)
	chunks := chunksOf("Completely unrelated text about weather patterns.")
	got := s.Answer(context.Background(), "What are quarterly dividends?", chunks)
	if got != MsgNoMatch {
		t.Errorf("Answer = %q, want no-match message", got)
	}
}

func TestFallback_ShortWordsIgnored(t *testing.T) {
	s := New(nil, nil)
	// "the" and "cat" appear in the chunk but are too short to count.
	chunks := chunksOf("the cat is here")
	got := s.Answer(context.Background(), "is the cat in", chunks)
	if got != MsgNoMatch {
		t.Errorf("short question words matched: %q", got)
	}
}

func TestFallback_Deterministic(t *testing.T) {
	s := New(nil, nil)
	chunks := chunksOf(
		"Refund requests must arrive within 30 days of delivery.",
		"Shipping usually takes five business days.",
		"Refund processing takes one week.",
	)
	question := "How do refund requests work?"

	first := s.Answer(context.Background(), question, chunks)
	for i := 0; i < 10; i++ {
		if got := s.Answer(context.Background(), question, chunks); got != first {
			t.Fatal("fallback answer differs across identical calls")
		}
	}
}

func TestFallback_ExcerptBounds(t *testing.T) {
	s := New(nil, nil)
	long := "refund " + strings.Repeat("x", 500)
	chunks := chunksOf(long, long, long, long, long)
	got := s.Answer(context.Background(), "refund policy", chunks)

	parts := strings.Split(strings.TrimPrefix(got, "Based on the documents, here's what I found:\n\n"), "\n\n")
	if len(parts) != 3 {
		t.Fatalf("got %d excerpts, want 3", len(parts))
	}
	for i, p := range parts {
		if n := len([]rune(strings.TrimSuffix(p, "..."))); n > 200 {
			t.Errorf("excerpt %d has %d runes, limit 200", i, n)
		}
	}
}

func TestSummarize_NoChunks(t *testing.T) {
	s := New(&mockBackend{}, nil)
	if got := s.Summarize(context.Background(), nil); got != MsgNoSummary {
		t.Errorf("Summarize = %q", got)
	}
}

func TestSummarize_BackendParameters(t *testing.T) {
	backend := &mockBackend{resp: "A summary."}
	s := New(backend, nil)

	got := s.Summarize(context.Background(), chunksOf("First point. Second point."))
	if got != "A summary." {
		t.Errorf("Summarize = %q", got)
	}
	if backend.lastReq.Temperature != summarizeTemperature || backend.lastReq.MaxTokens != summarizeMaxTokens {
		t.Errorf("summarize parameters = (%v, %d)", backend.lastReq.Temperature, backend.lastReq.MaxTokens)
	}
}

func TestSummarize_FallbackTakesLeadingSentences(t *testing.T) {
	s := New(nil, nil)
	chunks := chunksOf("One. Two. Three. Four. Five. Six. Seven.")
	got := s.Summarize(context.Background(), chunks)
	if !strings.HasPrefix(got, "Summary of documents:\n\n") {
		t.Errorf("summary prefix missing: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("summary ellipsis missing: %q", got)
	}
	if strings.Contains(got, "Six") {
		t.Errorf("summary kept more than five sentences: %q", got)
	}
}

func TestAnswerWithTiming(t *testing.T) {
	s := New(nil, nil)

	text, elapsed := s.AnswerWithTiming(context.Background(), "What is here?", nil)
	if text != MsgNoDocuments {
		t.Errorf("text = %q", text)
	}
	if elapsed < 0 {
		t.Errorf("elapsed = %v, want non-negative", elapsed)
	}

	text, _ = s.AnswerWithTiming(context.Background(), "summarize it", chunksOf("Alpha. Beta."))
	if !strings.HasPrefix(text, "Summary of documents:") {
		t.Errorf("summarize intent not routed: %q", text)
	}
}
