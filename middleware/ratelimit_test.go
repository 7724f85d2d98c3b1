package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gestion-optica-api/internal/ratelimit"
	"gestion-optica-api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(limit int, window time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.New(ratelimit.NewMemoryStore(), limit, window), discardLogger(), nil))
	r.GET("/productos", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitRejectsAfterLimit(t *testing.T) {
	r := newLimitedRouter(100, time.Minute)

	for i := 0; i < 100; i++ {
		w := get(r, "/productos", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.Empty(t, w.Header().Get("Retry-After"))
	}

	w := get(r, "/productos", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body models.RateLimitRejection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 429, body.Code)
	assert.Equal(t, "Too Many Requests", body.Error)
	assert.Equal(t, RateLimitMessage, body.Message)
	assert.GreaterOrEqual(t, body.RetryAfter, 0)
	assert.LessOrEqual(t, body.RetryAfter, 60)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Len(t, raw, 4)
}

func TestRateLimitResetsAfterWindow(t *testing.T) {
	r := newLimitedRouter(2, 50*time.Millisecond)

	assert.Equal(t, http.StatusOK, get(r, "/productos", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/productos", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/productos", "").Code)

	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, http.StatusOK, get(r, "/productos", "").Code)
}

type brokenStore struct{}

func (brokenStore) Hit(ctx context.Context, _ string, _ time.Duration) (ratelimit.Window, error) {
	return ratelimit.Window{}, errors.New("store down")
}

func TestRateLimitStoreErrorFailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.New(brokenStore{}, 1, time.Minute), discardLogger(), nil))
	r.GET("/productos", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/productos", "").Code)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(false, discardLogger(), nil), RequestSizeLimit(8))
	r.POST("/ventas", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/ventas", strings.NewReader(`{"total":123456}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")

	req = httptest.NewRequest(http.MethodPost, "/ventas", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}
