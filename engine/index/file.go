package index

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/askdocs/askdocs/engine/domain"
)

const (
	// indexFileName is the persisted index file inside a tenant namespace.
	indexFileName = "index.gob"

	// currentFileVersion is the on-disk format version. Bump on breaking
	// changes to fileState.
	currentFileVersion = 1
)

// fileState is the gob-encoded on-disk representation of a tenant index.
type fileState struct {
	Version    int
	Model      string
	Dimensions int
	CreatedAt  time.Time
	Records    []Record
}

// FileIndex is a tenant index persisted as a single gob file under the
// tenant's namespace directory. Search is brute-force cosine similarity;
// at per-tenant document-set scale that beats maintaining an ANN structure.
type FileIndex struct {
	mu   sync.RWMutex
	path string
	name string

	model      string
	dimensions int
	minScore   float32

	records []Record

	// Stat of the file contents currently loaded. Search re-stats the file
	// and reloads when disk is newer, so a completed write is observable by
	// any read issued after it, including through a different handle.
	loadedSize int64
	loadedMod  time.Time
}

// FileOpener opens FileIndex instances under a root directory, one
// subdirectory per tenant namespace.
type FileOpener struct {
	Root       string
	Model      string
	Dimensions int
	// MinScore is the relevance floor: hits scoring below it are dropped.
	MinScore float32
}

// Open implements Opener. The namespace directory is created if absent; an
// existing index file is loaded eagerly so a process restart recovers all
// indexed content.
func (o *FileOpener) Open(_ context.Context, tenantID string) (Index, error) {
	name := CollectionName(tenantID)
	dir := filepath.Join(o.Root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: create namespace %s: %w", name, err)
	}
	idx := &FileIndex{
		path:       filepath.Join(dir, indexFileName),
		name:       name,
		model:      o.Model,
		dimensions: o.Dimensions,
		minScore:   o.MinScore,
	}
	if err := idx.reload(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("index: open %s: %w", name, err)
	}
	return idx, nil
}

// Name implements Index.
func (x *FileIndex) Name() string { return x.name }

// Close implements Index. The file index holds no open handles between
// operations.
func (x *FileIndex) Close() error { return nil }

// Add implements Index: append the records and persist before returning.
func (x *FileIndex) Add(_ context.Context, records []Record) error {
	for _, r := range records {
		if x.dimensions > 0 && len(r.Vector) != x.dimensions {
			return fmt.Errorf("%w: record %s has %d dimensions, want %d",
				domain.ErrIndexWrite, r.ID, len(r.Vector), x.dimensions)
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	// Pick up writes persisted by other handles before appending.
	if err := x.refreshLocked(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: refresh before add: %v", domain.ErrIndexWrite, err)
	}
	x.records = append(x.records, records...)
	if err := x.saveLocked(); err != nil {
		// Roll back the in-memory append so memory matches disk.
		x.records = x.records[:len(x.records)-len(records)]
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Search implements Index.
func (x *FileIndex) Search(_ context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = 1
	}

	x.mu.Lock()
	err := x.refreshLocked()
	x.mu.Unlock()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexRead, err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make([]domain.ScoredChunk, 0, len(x.records))
	for _, r := range x.records {
		score := cosineSimilarity(vector, r.Vector)
		if score < x.minScore {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: r.Chunk, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// saveLocked persists the current records atomically: write a temp file in
// the same directory, then rename over the index file.
func (x *FileIndex) saveLocked() error {
	state := fileState{
		Version:    currentFileVersion,
		Model:      x.model,
		Dimensions: x.dimensions,
		CreatedAt:  time.Now(),
		Records:    x.records,
	}

	tmp := x.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&state); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	if info, err := os.Stat(x.path); err == nil {
		x.loadedSize = info.Size()
		x.loadedMod = info.ModTime()
	}
	return nil
}

// refreshLocked reloads from disk when the persisted file differs from what
// this handle last observed.
func (x *FileIndex) refreshLocked() error {
	info, err := os.Stat(x.path)
	if err != nil {
		return err
	}
	if info.Size() == x.loadedSize && info.ModTime().Equal(x.loadedMod) {
		return nil
	}
	return x.loadLocked(info)
}

func (x *FileIndex) reload() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	info, err := os.Stat(x.path)
	if err != nil {
		return err
	}
	return x.loadLocked(info)
}

func (x *FileIndex) loadLocked(info os.FileInfo) error {
	f, err := os.Open(x.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var state fileState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}
	if state.Version != currentFileVersion {
		return fmt.Errorf("unsupported index version %d (want %d)", state.Version, currentFileVersion)
	}
	x.records = state.Records
	if state.Dimensions > 0 {
		x.dimensions = state.Dimensions
	}
	x.loadedSize = info.Size()
	x.loadedMod = info.ModTime()
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched or zero-norm inputs.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	return dot / denom
}
