package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewChunk_SourceLabel(t *testing.T) {
	c := NewChunk("some text", "42", "doc-1", "report.pdf", 3)
	if c.SourceLabel != "report.pdf_chunk_3" {
		t.Errorf("SourceLabel = %q, want %q", c.SourceLabel, "report.pdf_chunk_3")
	}
	if c.TenantID != "42" || c.ChunkIndex != 3 {
		t.Errorf("unexpected chunk fields: %+v", c)
	}
}

func TestValidateTenantID(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		wantErr  bool
	}{
		{"valid numeric", "42", false},
		{"valid alnum", "user-abc123", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"path traversal", "../other", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenantID(tt.tenantID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTenantID(%q) = %v, wantErr %v", tt.tenantID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	if err := ValidateQuestion("What is the refund policy?"); err != nil {
		t.Errorf("valid question rejected: %v", err)
	}
	if err := ValidateQuestion("  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("empty question: got %v, want ErrEmptyQuestion", err)
	}
	long := strings.Repeat("x", MaxQuestionLen+1)
	if err := ValidateQuestion(long); err == nil {
		t.Error("over-length question accepted")
	}
}

func TestBackendError_Unwrap(t *testing.T) {
	inner := errors.New("HTTP 429")
	be := NewBackendError(BackendRateLimit, inner)
	if !errors.Is(be, inner) {
		t.Error("BackendError should unwrap to the inner error")
	}
	if !strings.Contains(be.Error(), "rate_limit") {
		t.Errorf("Error() = %q, missing kind", be.Error())
	}
}
