package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/internal/interfaces/http/handlers"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.GET("/boom", func(*gin.Context) { panic("boom") })
}

type pathRecorder struct{ paths []string }

func (p *pathRecorder) RecordHTTPRequest(_, path string, _ int, _ time.Duration) {
	p.paths = append(p.paths, path)
}

func get(r http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_MountsAPIUnderPrefix(t *testing.T) {
	r := NewRouter(RouterConfig{API: []APIRoutes{pingRoutes{}, nil}})

	w := get(r, "/api/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	assert.Equal(t, http.StatusNotFound, get(r, "/ping").Code)
}

func TestNewRouter_NoRoute(t *testing.T) {
	r := NewRouter(RouterConfig{})

	w := get(r, "/api/nothing", middleware.RequestIDHeader, "req-42")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"route not found","details":"GET /api/nothing","request_id":"req-42"}`, w.Body.String())
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(RouterConfig{API: []APIRoutes{pingRoutes{}}})

	w := get(r, "/api/boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestNewRouter_HealthAndMetrics(t *testing.T) {
	probe := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r := NewRouter(RouterConfig{
		HealthHandler: handlers.NewHealthHandler("test"),
		MetricsProbe:  probe,
	})

	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(r, "/readyz").Code)
	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestNewRouter_RateLimitAppliesToAPIOnly(t *testing.T) {
	cfg := middleware.DefaultRateLimitConfig()
	r := NewRouter(RouterConfig{
		API:           []APIRoutes{pingRoutes{}},
		HealthHandler: handlers.NewHealthHandler("test"),
		RateLimiter:   middleware.NewTokenBucketLimiter(0.001, 1, 0),
		RateLimit:     cfg,
	})

	require.Equal(t, http.StatusOK, get(r, "/api/ping").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/ping").Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	}
}

func TestNewRouter_MetricsUseRouteTemplate(t *testing.T) {
	rec := &pathRecorder{}
	r := NewRouter(RouterConfig{API: []APIRoutes{pingRoutes{}}, HTTPMetrics: rec})

	get(r, "/api/ping")
	get(r, "/api/missing")

	assert.Equal(t, []string{"/api/ping", "unmatched"}, rec.paths)
}

func TestNewRouter_CORS(t *testing.T) {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = []string{"https://ui.example.org"}
	r := NewRouter(RouterConfig{API: []APIRoutes{pingRoutes{}}, CORS: &cors})

	w := get(r, "/api/ping", "Origin", "https://ui.example.org")

	assert.Equal(t, "https://ui.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}
