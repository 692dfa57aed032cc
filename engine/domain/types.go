// Package domain defines the core types shared across the retrieval and
// answer-generation pipeline: chunks, answers, and the error taxonomy.
package domain

import "fmt"

// Chunk is a bounded span of a document's text, the unit of embedding and
// retrieval. Chunks are immutable once created.
type Chunk struct {
	Text         string `json:"text"`
	TenantID     string `json:"tenant_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	SourceLabel  string `json:"source_label"`
}

// NewChunk builds a Chunk with its derived source label. The source label is
// the only identifier surfaced to end users as a citation.
func NewChunk(text, tenantID, docID, docName string, index int) Chunk {
	return Chunk{
		Text:         text,
		TenantID:     tenantID,
		DocumentID:   docID,
		DocumentName: docName,
		ChunkIndex:   index,
		SourceLabel:  fmt.Sprintf("%s_chunk_%d", docName, index),
	}
}

// ScoredChunk is a retrieval hit: a chunk plus its similarity to the query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// Answer is the final response for a question.
type Answer struct {
	Text           string   `json:"text"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	Sources        []string `json:"sources"`
}

// CollectionInfo is a diagnostic snapshot of a tenant's index. ChunkSample is
// a bounded probe, not an exact count; callers must not treat it as
// authoritative cardinality.
type CollectionInfo struct {
	TenantID      string   `json:"tenant_id"`
	Collection    string   `json:"collection"`
	ChunkSample   int      `json:"chunk_sample"`
	SampleSources []string `json:"sample_sources"`
	HasDocuments  bool     `json:"has_documents"`
}
