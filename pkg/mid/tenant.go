package mid

import (
	"context"
	"net/http"

	"github.com/askdocs/askdocs/engine/domain"
)

// TenantHeader is the request header carrying the tenant identifier.
const TenantHeader = "X-Tenant-ID"

type tenantKey struct{}

// RequireTenant returns middleware that extracts and validates the
// X-Tenant-ID header, rejecting requests without a usable tenant.
func RequireTenant() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := r.Header.Get(TenantHeader)
			if err := domain.ValidateTenantID(tenant); err != nil {
				http.Error(w, "missing or invalid "+TenantHeader+" header", http.StatusBadRequest)
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey{}, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantID returns the tenant stored by RequireTenant, or "" if absent.
func TenantID(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey{}).(string)
	return tenant
}
