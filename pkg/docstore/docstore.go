// Package docstore persists document metadata and question history in SQLite.
//
// The vector index holds the searchable chunks; this store keeps the
// original documents and a log of answered questions per tenant so they
// can be listed and replayed through the API.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Document is a stored upload.
type Document struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	Content    string    `json:"content,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// QueryLog records one answered question.
type QueryLog struct {
	ID              int64     `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Timestamp       time.Time `json:"timestamp"`
	Question        string    `json:"question"`
	Response        string    `json:"response"`
	ResponseSeconds float64   `json:"response_time"`
	Sources         []string  `json:"source_documents,omitempty"`
}

// Store wraps a SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("docstore: opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			content TEXT NOT NULL,
			uploaded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);

		CREATE TABLE IF NOT EXISTS query_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			question TEXT NOT NULL,
			response TEXT NOT NULL,
			response_seconds REAL NOT NULL,
			sources_json TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_query_logs_tenant ON query_logs(tenant_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument inserts a document and returns its assigned id.
func (s *Store) SaveDocument(ctx context.Context, doc Document) (int64, error) {
	uploadedAt := doc.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (tenant_id, filename, file_type, content, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		doc.TenantID, doc.Filename, doc.FileType, doc.Content,
		uploadedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("docstore: inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("docstore: last insert id: %w", err)
	}
	return id, nil
}

// ListDocuments returns a tenant's documents, newest first, without content.
func (s *Store) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, filename, file_type, uploaded_at
		FROM documents WHERE tenant_id = ?
		ORDER BY id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("docstore: listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var uploadedAt string
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Filename, &d.FileType, &uploadedAt); err != nil {
			return nil, fmt.Errorf("docstore: scanning document: %w", err)
		}
		d.UploadedAt, _ = time.Parse(time.RFC3339Nano, uploadedAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument returns one document, including its content.
// Returns sql.ErrNoRows if the document does not exist for the tenant.
func (s *Store) GetDocument(ctx context.Context, tenantID string, id int64) (Document, error) {
	var d Document
	var uploadedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, filename, file_type, content, uploaded_at
		FROM documents WHERE tenant_id = ? AND id = ?`, tenantID, id).
		Scan(&d.ID, &d.TenantID, &d.Filename, &d.FileType, &d.Content, &uploadedAt)
	if err != nil {
		return Document{}, err
	}
	d.UploadedAt, _ = time.Parse(time.RFC3339Nano, uploadedAt)
	return d, nil
}

// SaveQueryLog appends a question/answer record for a tenant.
func (s *Store) SaveQueryLog(ctx context.Context, log QueryLog) (int64, error) {
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var sourcesJSON []byte
	if len(log.Sources) > 0 {
		var err error
		sourcesJSON, err = json.Marshal(log.Sources)
		if err != nil {
			return 0, fmt.Errorf("docstore: encoding sources: %w", err)
		}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_logs (tenant_id, timestamp, question, response, response_seconds, sources_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		log.TenantID, ts.Format(time.RFC3339Nano), log.Question, log.Response,
		log.ResponseSeconds, nullableString(sourcesJSON))
	if err != nil {
		return 0, fmt.Errorf("docstore: inserting query log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("docstore: last insert id: %w", err)
	}
	return id, nil
}

// History returns a tenant's answered questions, newest first.
func (s *Store) History(ctx context.Context, tenantID string) ([]QueryLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, timestamp, question, response, response_seconds, sources_json
		FROM query_logs WHERE tenant_id = ?
		ORDER BY id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("docstore: listing query logs: %w", err)
	}
	defer rows.Close()

	var logs []QueryLog
	for rows.Next() {
		var l QueryLog
		var ts string
		var sourcesJSON sql.NullString
		if err := rows.Scan(&l.ID, &l.TenantID, &ts, &l.Question, &l.Response,
			&l.ResponseSeconds, &sourcesJSON); err != nil {
			return nil, fmt.Errorf("docstore: scanning query log: %w", err)
		}
		l.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &l.Sources); err != nil {
				return nil, fmt.Errorf("docstore: decoding sources: %w", err)
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
