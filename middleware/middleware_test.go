package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sitedaddy/daisy-dog/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func serve(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPreflight(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Preflight())
	r.GET("/api/reviews", func(c *gin.Context) { c.String(http.StatusOK, "reviews") })

	for _, path := range []string{"/api/reviews", "/anything/else", "/"} {
		w := serve(r, http.MethodOptions, path, nil)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	}

	w := serve(r, http.MethodGet, "/api/reviews", nil)
	assert.Equal(t, "reviews", w.Body.String())
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestRestrictedCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RestrictedCORS([]string{"https://shop.example"}))
	r.GET("/api/place", func(c *gin.Context) { c.String(http.StatusOK, "place") })

	allowed := serve(r, http.MethodGet, "/api/place", http.Header{"Origin": {"https://shop.example"}})
	assert.Equal(t, http.StatusOK, allowed.Code)
	assert.Equal(t, "https://shop.example", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := serve(r, http.MethodGet, "/api/place", http.Header{"Origin": {"https://evil.example"}})
	assert.Equal(t, http.StatusForbidden, denied.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	w := serve(r, http.MethodGet, "/", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = serve(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(middleware.RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(middleware.Recovery(zap.New(core)))
	r.GET("/api/reviews", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/api/reviews", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"error": "Server error: kaboom"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(zap.New(core)))
	r.GET("/api/place", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	serve(r, http.MethodGet, "/api/place", nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "HTTP request", entry.Message)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/place", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
