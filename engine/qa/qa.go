// Package qa orchestrates the document question-answering pipeline. It routes
// uploads through chunking, embedding, and per-tenant indexing, and questions
// through retrieval and answer synthesis, emitting events and metrics along
// the way.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/askdocs/askdocs/engine/answer"
	"github.com/askdocs/askdocs/engine/domain"
	"github.com/askdocs/askdocs/pkg/fn"
	"github.com/askdocs/askdocs/pkg/metrics"
	"github.com/askdocs/askdocs/pkg/natsutil"
)

// MsgNoRelevantDocs is returned when the tenant has documents but retrieval
// found nothing for the question. A valid answer, not an error.
const MsgNoRelevantDocs = "I found your documents but couldn't find specific information to answer your question. Please try rephrasing your question or ask about a different topic."

// Retriever abstracts the tenant index registry.
type Retriever interface {
	AddDocument(ctx context.Context, tenantID, docID, docName, text string) ([]string, error)
	Search(ctx context.Context, tenantID, query string, k int) ([]domain.ScoredChunk, error)
	HasDocuments(ctx context.Context, tenantID string) bool
	Reload()
	CollectionInfo(ctx context.Context, tenantID string) (domain.CollectionInfo, error)
}

// Synthesizer abstracts answer generation.
type Synthesizer interface {
	AnswerWithTiming(ctx context.Context, question string, chunks []domain.Chunk) (string, float64)
}

// Options configures the pipeline.
type Options struct {
	// TopK is how many chunks retrieval feeds the synthesizer.
	TopK int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{TopK: 4}
}

// Service is the QA orchestration service.
type Service struct {
	retriever Retriever
	synth     Synthesizer
	opts      Options
	logger    *slog.Logger

	nc *nats.Conn // optional event bus

	uploads       *metrics.Counter
	questions     *metrics.Counter
	answerSeconds *metrics.Histogram
}

// New creates a Service. nc may be nil (no events published); reg may be nil
// (no metrics recorded); logger may be nil.
func New(retriever Retriever, synth Synthesizer, opts Options, nc *nats.Conn, reg *metrics.Registry, logger *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		retriever: retriever,
		synth:     synth,
		opts:      opts,
		logger:    logger,
		nc:        nc,
	}
	if reg != nil {
		s.uploads = reg.Counter("qa_uploads_total", "Documents ingested into the vector index.")
		s.questions = reg.Counter("qa_questions_total", "Questions answered.")
		s.answerSeconds = reg.Histogram("qa_answer_seconds", "Answer synthesis latency.", nil)
	}
	return s
}

// Upload chunks, embeds, and indexes already-decoded document text for a
// tenant, returning one identifier per stored chunk. Persistence failures
// surface as domain.ErrIndexWrite; the caller decides severity. The document
// metadata row committed upstream is intentionally not rolled back on
// failure.
func (s *Service) Upload(ctx context.Context, tenantID, docID, filename, text string) ([]string, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	ids, err := s.retriever.AddDocument(ctx, tenantID, docID, filename, text)
	if err != nil {
		return nil, fmt.Errorf("qa: upload %s: %w", filename, err)
	}

	if s.uploads != nil {
		s.uploads.Inc()
	}
	s.publish(ctx, SubjectDocumentIndexed, DocumentIndexed{
		TenantID:     tenantID,
		DocumentID:   docID,
		DocumentName: filename,
		Chunks:       len(ids),
		At:           time.Now().UTC(),
	})
	return ids, nil
}

// Ask answers a natural-language question from the tenant's documents. "No
// content" and "no match" are valid answers, never errors; Ask fails only on
// input validation or an embedding provider it cannot route around.
func (s *Service) Ask(ctx context.Context, tenantID, question string) (domain.Answer, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return domain.Answer{}, err
	}
	if err := domain.ValidateQuestion(question); err != nil {
		return domain.Answer{}, err
	}

	var ans domain.Answer
	switch {
	case !s.retriever.HasDocuments(ctx, tenantID):
		ans = domain.Answer{Text: answer.MsgNoDocuments}

	default:
		hits, err := s.retriever.Search(ctx, tenantID, question, s.opts.TopK)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("qa: retrieve for tenant %s: %w", tenantID, err)
		}
		if len(hits) == 0 {
			ans = domain.Answer{Text: MsgNoRelevantDocs}
			break
		}

		chunks := fn.Map(hits, func(h domain.ScoredChunk) domain.Chunk { return h.Chunk })
		text, elapsed := s.synth.AnswerWithTiming(ctx, question, chunks)
		ans = domain.Answer{
			Text:           text,
			ElapsedSeconds: elapsed,
			Sources:        fn.Map(chunks, func(c domain.Chunk) string { return c.SourceLabel }),
		}
	}

	if s.questions != nil {
		s.questions.Inc()
	}
	if s.answerSeconds != nil {
		s.answerSeconds.Observe(ans.ElapsedSeconds)
	}
	s.logger.Info("question answered",
		"tenant", tenantID,
		"question_len", len(question),
		"sources", len(ans.Sources),
		"elapsed_s", ans.ElapsedSeconds,
	)
	s.publish(ctx, SubjectQuestionAnswered, QuestionAnswered{
		TenantID:       tenantID,
		Question:       question,
		Answer:         ans.Text,
		ElapsedSeconds: ans.ElapsedSeconds,
		Sources:        ans.Sources,
		At:             time.Now().UTC(),
	})
	return ans, nil
}

// Reload drops all cached tenant index handles so the next access re-opens
// from persisted storage.
func (s *Service) Reload() { s.retriever.Reload() }

// CollectionInfo exposes the registry's diagnostic snapshot.
func (s *Service) CollectionInfo(ctx context.Context, tenantID string) (domain.CollectionInfo, error) {
	return s.retriever.CollectionInfo(ctx, tenantID)
}

func (s *Service) publish(ctx context.Context, subject string, v any) {
	if s.nc == nil {
		return
	}
	if err := natsutil.Publish(ctx, s.nc, subject, v); err != nil {
		s.logger.Warn("event publish failed", "subject", subject, "err", err)
	}
}
