// Package answer synthesizes a response from a question and the retrieved
// chunks, either through a language-model backend or a deterministic
// keyword-matching fallback. The synthesizer is state-free and operates
// per-call; backend availability is decided once at construction and a
// transient backend failure degrades only that single call.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/askdocs/askdocs/engine/domain"
)

// Fixed user-facing messages. The end user never sees a raw backend error;
// they see a synthesized answer, a fallback answer, or one of these.
const (
	MsgNoDocuments = "I don't have any documents to search through. Please upload some documents first."
	MsgNoMatch     = "I found some documents but couldn't find specific information to answer your question. Please try rephrasing your question or upload more relevant documents."
	MsgNoSummary   = "No documents to summarize. Please upload some documents first."
)

const (
	askTemperature       = 0.7
	askMaxTokens         = 1000
	summarizeTemperature = 0.3
	summarizeMaxTokens   = 1500

	// fallbackKeywordMinLen: question words must be longer than this to count
	// for keyword overlap.
	fallbackKeywordMinLen = 3
	// fallbackMaxExcerpts caps how many matching chunks the fallback returns.
	fallbackMaxExcerpts = 3
	// fallbackExcerptLen is the leading excerpt length per matching chunk.
	fallbackExcerptLen = 200
	// fallbackSummarySentences is how many leading sentences the fallback
	// summary keeps.
	fallbackSummarySentences = 5

	// defaultCallTimeout bounds a single completion request; the backend call
	// must never hang indefinitely.
	defaultCallTimeout = 60 * time.Second
)

const askSystemPrompt = `You are a helpful AI assistant that answers questions based on the provided context.
Use only the information from the context to answer the question. If the context doesn't contain enough information to answer the question,
say "I don't have enough information to answer this question based on the provided documents."

Context:
%CONTEXT%`

const summarizeSystemPrompt = `You are a helpful AI assistant that creates concise summaries of documents.
Create a clear, well-structured summary that captures the main points and key information from the provided content.
Focus on the most important details and organize the summary logically.`

// Intent classifies what the user wants from the pipeline.
type Intent int

const (
	IntentAsk Intent = iota
	IntentSummarize
)

var summarizeKeywords = []string{"summarize", "summary", "summarise", "summarization"}

// CompletionRequest is a single completion call to a language model.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Backend issues completion requests against a language model. Errors should
// be *domain.BackendError so the cause can be logged.
type Backend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Synthesizer turns retrieved chunks into an answer. A nil backend means the
// deterministic fallback handles every call.
type Synthesizer struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates a Synthesizer. backend may be nil (fallback-only mode); logger
// may be nil.
func New(backend Backend, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		backend: backend,
		logger:  logger,
		timeout: defaultCallTimeout,
		now:     time.Now,
	}
}

// BackendAvailable reports whether a language-model backend is configured.
func (s *Synthesizer) BackendAvailable() bool { return s.backend != nil }

// ClassifyIntent returns IntentSummarize iff the lowercased, trimmed question
// contains a summarization keyword. Checked before any LLM or fallback call.
func ClassifyIntent(question string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, kw := range summarizeKeywords {
		if strings.Contains(q, kw) {
			return IntentSummarize
		}
	}
	return IntentAsk
}

// Answer produces an answer for the Ask path. With no chunks it returns the
// fixed no-documents message without touching the backend. Backend failures
// are logged and converted to the fallback; exactly one LLM attempt is made.
func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return MsgNoDocuments
	}
	if s.backend == nil {
		return s.fallbackAnswer(question, chunks)
	}

	text, err := s.complete(ctx, CompletionRequest{
		System:      strings.ReplaceAll(askSystemPrompt, "%CONTEXT%", contextBlock(chunks)),
		User:        question,
		Temperature: askTemperature,
		MaxTokens:   askMaxTokens,
	})
	if err != nil {
		s.logBackendFailure("answer", err)
		return s.fallbackAnswer(question, chunks)
	}
	return text
}

// Summarize produces a summary of the chunks, with the same backend-or-
// fallback branching as Answer but a larger output budget and lower
// temperature.
func (s *Synthesizer) Summarize(ctx context.Context, chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return MsgNoSummary
	}
	if s.backend == nil {
		return fallbackSummary(chunks)
	}

	text, err := s.complete(ctx, CompletionRequest{
		System:      summarizeSystemPrompt,
		User:        "Please provide a comprehensive summary of the following documents:\n\n" + contextBlock(chunks),
		Temperature: summarizeTemperature,
		MaxTokens:   summarizeMaxTokens,
	})
	if err != nil {
		s.logBackendFailure("summarize", err)
		return fallbackSummary(chunks)
	}
	return text
}

// AnswerWithTiming classifies the question and runs the matching path,
// measuring wall-clock time around the synthesis call only.
func (s *Synthesizer) AnswerWithTiming(ctx context.Context, question string, chunks []domain.Chunk) (string, float64) {
	start := s.now()

	var text string
	if ClassifyIntent(question) == IntentSummarize {
		text = s.Summarize(ctx, chunks)
	} else {
		text = s.Answer(ctx, question, chunks)
	}

	elapsed := s.now().Sub(start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return text, elapsed
}

func (s *Synthesizer) complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.backend.Complete(ctx, req)
}

func (s *Synthesizer) logBackendFailure(op string, err error) {
	kind := domain.BackendTransport
	var be *domain.BackendError
	if errors.As(err, &be) {
		kind = be.Kind
	}
	s.logger.Warn("llm backend failed, using fallback", "op", op, "kind", string(kind), "err", err)
}

// contextBlock concatenates chunk texts in retrieval order.
func contextBlock(chunks []domain.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}

// fallbackAnswer keeps chunks where any question word longer than
// fallbackKeywordMinLen appears, case-insensitively, and returns their
// leading excerpts. Deterministic for a fixed (question, chunks) pair.
func (s *Synthesizer) fallbackAnswer(question string, chunks []domain.Chunk) string {
	words := strings.Fields(strings.ToLower(question))

	var excerpts []string
	for _, c := range chunks {
		if len(excerpts) == fallbackMaxExcerpts {
			break
		}
		content := strings.ToLower(c.Text)
		for _, w := range words {
			if len(w) > fallbackKeywordMinLen && strings.Contains(content, w) {
				excerpts = append(excerpts, excerpt(c.Text, fallbackExcerptLen))
				break
			}
		}
	}

	if len(excerpts) == 0 {
		return MsgNoMatch
	}
	return "Based on the documents, here's what I found:\n\n" + strings.Join(excerpts, "\n\n")
}

// fallbackSummary takes the leading sentences of the concatenated chunk text.
func fallbackSummary(chunks []domain.Chunk) string {
	sentences := strings.Split(contextBlock(chunks), ". ")
	if len(sentences) > fallbackSummarySentences {
		sentences = sentences[:fallbackSummarySentences]
	}
	return "Summary of documents:\n\n" + strings.Join(sentences, ". ") + "..."
}

// excerpt returns the first n runes of text, with an ellipsis when truncated.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text + "..."
	}
	return string(runes[:n]) + "..."
}
