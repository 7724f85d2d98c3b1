package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"gestion-optica-api/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func prodConfig(origins ...string) *config.Config {
	return &config.Config{Environment: config.EnvProduction, CORSOrigins: origins}
}

func devConfig() *config.Config {
	return &config.Config{Environment: config.EnvDevelopment}
}

// newCORSRouter wires the normalizer in front of the origin policy so that
// denials render the same way they do in the server.
func newCORSRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(cfg.IsProduction(), discardLogger(), nil))
	r.Use(CORSMiddleware(NewOriginPolicy(cfg), discardLogger(), nil))
	r.GET("/leads", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func get(r http.Handler, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOriginPolicyDecide(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		origin  string
		allowed bool
		reason  string
	}{
		{"dev allows anything", devConfig(), "https://evil.example", true, ReasonNonProduction},
		{"prod without origin", prodConfig(), "", true, ReasonNoOrigin},
		{"prod explicit exact match", prodConfig("https://shop.example.com"), "https://shop.example.com", true, ReasonAllowList},
		{"prod explicit case and slash", prodConfig("https://shop.example.com"), "HTTPS://Shop.Example.com/", true, ReasonAllowList},
		{"prod explicit rejects platform", prodConfig("https://shop.example.com"), "https://preview-123.vercel.app", false, ReasonNotAllowed},
		{"prod explicit rejects other port", prodConfig("https://shop.example.com"), "https://shop.example.com:8443", false, ReasonNotAllowed},
		{"prod default platform wildcard", prodConfig(), "https://preview-123.vercel.app", true, ReasonPlatform},
		{"prod default list", prodConfig(), "http://localhost:5173", true, ReasonAllowList},
		{"prod suffix lookalike", prodConfig(), "https://vercel.app.evil.com", false, ReasonNotAllowed},
		{"prod unknown", prodConfig(), "https://evil.example", false, ReasonNotAllowed},
		{"prod platform bad scheme", prodConfig(), "ftp://x.vercel.app", false, ReasonNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewOriginPolicy(tt.cfg).Decide(tt.origin)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.origin, d.Raw)
		})
	}
}

func TestCORSAllowedOriginGetsHeaders(t *testing.T) {
	r := newCORSRouter(prodConfig("https://shop.example.com"))

	w := get(r, "/leads", "https://shop.example.com")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSDeniedOriginIsForbidden(t *testing.T) {
	r := newCORSRouter(prodConfig("https://shop.example.com"))

	w := get(r, "/leads", "https://evil.example")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"error":"origin not allowed by CORS policy","code":"CORS_ORIGIN_DENIED"}`, w.Body.String())
}

func TestCORSNoOriginPassesInProduction(t *testing.T) {
	r := newCORSRouter(prodConfig("https://shop.example.com"))

	w := get(r, "/leads", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newCORSRouter(prodConfig("https://shop.example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
