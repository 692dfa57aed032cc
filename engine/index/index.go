// Package index provides per-tenant vector indexes: storage of (vector,
// chunk) pairs with nearest-neighbor search and durable persistence. Each
// tenant gets its own isolated index instance; isolation is structural, not a
// post-hoc filter.
package index

import (
	"context"
	"fmt"

	"github.com/askdocs/askdocs/engine/domain"
)

// Record pairs an embedding vector with its chunk metadata under a unique id.
type Record struct {
	ID     string
	Vector []float32
	Chunk  domain.Chunk
}

// Index is a single tenant's vector index.
type Index interface {
	// Add stores records and forces durable persistence before returning.
	// A failure to persist wraps domain.ErrIndexWrite.
	Add(ctx context.Context, records []Record) error

	// Search returns up to k chunks ordered by descending similarity. It
	// observes any persisted state written before the call (read-after-write
	// within the process). An empty index yields an empty result, not an
	// error.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Name returns the tenant-scoped namespace this index persists under.
	Name() string

	Close() error
}

// Opener opens or creates the persisted index for a tenant namespace.
type Opener interface {
	Open(ctx context.Context, tenantID string) (Index, error)
}

// CollectionName derives the persisted namespace for a tenant.
func CollectionName(tenantID string) string {
	return fmt.Sprintf("user_%s_docs", tenantID)
}
