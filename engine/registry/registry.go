// Package registry owns one isolated vector index per tenant, created on
// demand, and routes all add and search operations to the correct index.
// Tenant isolation is structural: every tenant gets its own index instance
// under its own persisted namespace, so a search can never surface another
// tenant's chunks.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/engine/chunker"
	"github.com/askdocs/askdocs/engine/domain"
	"github.com/askdocs/askdocs/engine/embedding"
	"github.com/askdocs/askdocs/engine/index"
	"github.com/askdocs/askdocs/pkg/fn"
)

// probeQuery is the fixed text embedded for index probes (hasDocuments,
// collectionInfo). Any query works; what matters is whether anything at all
// comes back.
const probeQuery = "test"

// infoSampleK bounds the collectionInfo probe. The sample is diagnostic, not
// an exact cardinality.
const infoSampleK = 5

// Registry routes per-tenant index operations. The cache of open indexes is
// shared mutable state: creation is synchronized per tenant so concurrent
// getOrCreate calls for the same tenant never race to two handles, while
// different tenants never block each other.
type Registry struct {
	opener   index.Opener
	embedder embedding.Provider
	splitter *chunker.Chunker
	logger   *slog.Logger
	retry    fn.RetryOpts

	mu      sync.Mutex
	tenants map[string]*tenantEntry
}

type tenantEntry struct {
	once sync.Once
	idx  index.Index
	err  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithRetry overrides the embedding retry policy.
func WithRetry(opts fn.RetryOpts) Option {
	return func(r *Registry) { r.retry = opts }
}

// New creates a Registry. splitter and logger may be nil, in which case the
// default chunker and slog.Default() are used.
func New(opener index.Opener, embedder embedding.Provider, splitter *chunker.Chunker, logger *slog.Logger, opts ...Option) *Registry {
	if splitter == nil {
		splitter = chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		opener:   opener,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
		retry:    fn.DefaultRetry,
		tenants:  make(map[string]*tenantEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the cached index for the tenant, opening and caching it
// on first access. A failed open is not cached; the next call retries.
func (r *Registry) GetOrCreate(ctx context.Context, tenantID string) (index.Index, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entry, ok := r.tenants[tenantID]
	if !ok {
		entry = &tenantEntry{}
		r.tenants[tenantID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.idx, entry.err = r.opener.Open(ctx, tenantID)
		if entry.err != nil {
			r.mu.Lock()
			// Drop the failed entry so a later call can retry the open,
			// unless another goroutine already replaced it.
			if r.tenants[tenantID] == entry {
				delete(r.tenants, tenantID)
			}
			r.mu.Unlock()
		} else {
			r.logger.Info("tenant index opened", "tenant", tenantID, "collection", entry.idx.Name())
		}
	})
	if entry.err != nil {
		return nil, fmt.Errorf("registry: open index for tenant %s: %w", tenantID, entry.err)
	}
	return entry.idx, nil
}

// AddDocument chunks the text, embeds each chunk, and stores the pairs in the
// tenant's index, forcing durable persistence before returning. It returns
// one identifier per stored chunk. Empty or whitespace-only text stores
// nothing and returns zero identifiers.
//
// Ingestion is non-transactional across external stores: a persistence
// failure here does not roll back document metadata the caller has already
// committed elsewhere.
func (r *Registry) AddDocument(ctx context.Context, tenantID, docID, docName, text string) ([]string, error) {
	idx, err := r.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	chunks := r.splitter.ChunkDocument(tenantID, docID, docName, text)
	if len(chunks) == 0 {
		r.logger.Warn("document has no indexable content", "tenant", tenantID, "document", docName)
		return nil, nil
	}

	records := make([]index.Record, len(chunks))
	for i, ch := range chunks {
		vec, err := r.embed(ctx, ch.Text)
		if err != nil {
			return nil, fmt.Errorf("registry: embed chunk %d of %s: %w", i, docName, err)
		}
		records[i] = index.Record{ID: uuid.NewString(), Vector: vec, Chunk: ch}
	}

	if err := idx.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("registry: add document %s for tenant %s: %w", docName, tenantID, err)
	}

	r.logger.Info("document indexed",
		"tenant", tenantID,
		"document", docName,
		"chunks", len(records),
	)
	return fn.Map(records, func(rec index.Record) string { return rec.ID }), nil
}

// Search embeds the query and returns up to k chunks from the tenant's index,
// nearest first. Index read failures degrade to an empty result: "no answer
// found" is an acceptable user-facing outcome, a raw storage error is not.
// Embedding provider failures propagate.
func (r *Registry) Search(ctx context.Context, tenantID, query string, k int) ([]domain.ScoredChunk, error) {
	if k < 1 {
		k = 1
	}
	idx, err := r.GetOrCreate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("registry: embed query: %w", err)
	}

	hits, err := idx.Search(ctx, vec, k)
	if err != nil {
		if errors.Is(err, domain.ErrIndexRead) {
			r.logger.Error("index read failed, degrading to empty result",
				"tenant", tenantID, "err", err)
			return nil, nil
		}
		return nil, fmt.Errorf("registry: search tenant %s: %w", tenantID, err)
	}
	return hits, nil
}

// HasDocuments reports whether a trivial k=1 probe against the tenant's index
// returns anything. It is an approximation of "index non-empty" and tolerates
// an index that does not exist yet (false, never an error).
func (r *Registry) HasDocuments(ctx context.Context, tenantID string) bool {
	hits, err := r.Search(ctx, tenantID, probeQuery, 1)
	if err != nil {
		r.logger.Error("hasDocuments probe failed", "tenant", tenantID, "err", err)
		return false
	}
	return len(hits) > 0
}

// Reload drops all cached index handles; subsequent access re-opens from
// persisted storage. Used to recover after external mutation of the
// persistence directory.
func (r *Registry) Reload() {
	r.mu.Lock()
	dropped := r.tenants
	r.tenants = make(map[string]*tenantEntry)
	r.mu.Unlock()

	for tenant, entry := range dropped {
		if entry.idx != nil {
			if err := entry.idx.Close(); err != nil {
				r.logger.Warn("closing tenant index", "tenant", tenant, "err", err)
			}
		}
	}
	r.logger.Info("registry reloaded", "dropped", len(dropped))
}

// CollectionInfo returns a diagnostic snapshot of a tenant's index based on a
// bounded probe.
func (r *Registry) CollectionInfo(ctx context.Context, tenantID string) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{
		TenantID:   tenantID,
		Collection: index.CollectionName(tenantID),
	}
	hits, err := r.Search(ctx, tenantID, probeQuery, infoSampleK)
	if err != nil {
		return info, err
	}
	info.ChunkSample = len(hits)
	info.HasDocuments = len(hits) > 0
	for _, h := range hits {
		if len(info.SampleSources) == 3 {
			break
		}
		info.SampleSources = append(info.SampleSources, h.Chunk.SourceLabel)
	}
	return info, nil
}

// RemoveDocument is intentionally a no-op: the index is append-only in this
// version and document removal is handled by hiding the metadata row
// upstream. It logs so operators can see deletions that did not touch the
// vector index.
func (r *Registry) RemoveDocument(_ context.Context, tenantID, docID string) error {
	r.logger.Warn("vector removal not supported, index is append-only",
		"tenant", tenantID, "document_id", docID)
	return nil
}

// embed calls the provider with transient-failure retries. The retry budget
// covers embedding only; language-model calls are single-attempt by design.
func (r *Registry) embed(ctx context.Context, text string) ([]float32, error) {
	return fn.Retry(ctx, r.retry, func(ctx context.Context) ([]float32, error) {
		return r.embedder.Embed(ctx, strings.TrimSpace(text))
	})
}
