package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newRouter(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(Logger(logger))
	r.Use(Metrics)
	r.Use(SecurityHeaders)
	r.Get("/api/v1/lookup/{indicator}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return r
}

func TestLogger_UsesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	newRouter(logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lookup/evil.com", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "route=/api/v1/lookup/{indicator}")
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookup/evil.com", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	newRouter(slog.Default()).ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRoutePattern_FallsBackToPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/unrouted", nil)
	assert.Equal(t, "/unrouted", routePattern(req))
}
