package docstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.SaveDocument(ctx, Document{
		TenantID: "alice", Filename: "notes.txt", FileType: "txt", Content: "hello",
	})
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	id2, err := s.SaveDocument(ctx, Document{
		TenantID: "alice", Filename: "report.pdf", FileType: "pdf", Content: "report body",
	})
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("duplicate ids: %d", id1)
	}

	docs, err := s.ListDocuments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	// Newest first.
	if docs[0].Filename != "report.pdf" || docs[1].Filename != "notes.txt" {
		t.Errorf("order = %q, %q", docs[0].Filename, docs[1].Filename)
	}
	if docs[0].Content != "" {
		t.Error("ListDocuments should not return content")
	}
	if docs[0].UploadedAt.IsZero() {
		t.Error("UploadedAt not set")
	}
}

func TestDocumentsTenantIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveDocument(ctx, Document{TenantID: "alice", Filename: "a.txt", FileType: "txt", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	docs, err := s.ListDocuments(ctx, "bob")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("bob sees %d of alice's documents", len(docs))
	}
}

func TestGetDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveDocument(ctx, Document{TenantID: "alice", Filename: "a.txt", FileType: "txt", Content: "full body"})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.GetDocument(ctx, "alice", id)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Content != "full body" {
		t.Errorf("Content = %q", doc.Content)
	}

	if _, err := s.GetDocument(ctx, "bob", id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("cross-tenant get err = %v, want sql.ErrNoRows", err)
	}
}

func TestQueryLogHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveQueryLog(ctx, QueryLog{
		TenantID: "alice", Question: "q1", Response: "a1", ResponseSeconds: 0.5,
		Sources: []string{"a.txt_chunk_0", "a.txt_chunk_1"},
	}); err != nil {
		t.Fatalf("SaveQueryLog: %v", err)
	}
	if _, err := s.SaveQueryLog(ctx, QueryLog{
		TenantID: "alice", Question: "q2", Response: "a2", ResponseSeconds: 1.25,
	}); err != nil {
		t.Fatalf("SaveQueryLog: %v", err)
	}

	logs, err := s.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	if logs[0].Question != "q2" {
		t.Errorf("newest first: got %q", logs[0].Question)
	}
	if logs[0].Sources != nil {
		t.Errorf("Sources = %v, want nil", logs[0].Sources)
	}
	if got := logs[1].Sources; len(got) != 2 || got[0] != "a.txt_chunk_0" {
		t.Errorf("Sources = %v", got)
	}
	if logs[1].ResponseSeconds != 0.5 {
		t.Errorf("ResponseSeconds = %v", logs[1].ResponseSeconds)
	}

	other, err := s.History(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("bob sees %d of alice's logs", len(other))
	}
}
