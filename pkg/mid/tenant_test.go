package mid

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireTenantAcceptsValidHeader(t *testing.T) {
	var got string
	h := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TenantHeader, "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != "alice" {
		t.Fatalf("expected tenant alice, got %q", got)
	}
}

func TestRequireTenantRejects(t *testing.T) {
	for _, tenant := range []string{"", "a/b", "a\\b", "a.b"} {
		h := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("handler called for tenant %q", tenant)
		}))

		req := httptest.NewRequest("GET", "/", nil)
		if tenant != "" {
			req.Header.Set(TenantHeader, tenant)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("tenant %q: expected 400, got %d", tenant, rec.Code)
		}
	}
}

func TestTenantIDMissing(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := TenantID(req.Context()); got != "" {
		t.Fatalf("expected empty tenant, got %q", got)
	}
}
