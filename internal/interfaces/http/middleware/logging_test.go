package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/testutil"
)

func TestRequestLogging_Levels(t *testing.T) {
	log := testutil.NewMockLogger()
	r := newEngine(RequestID(nil), RequestLogging(log, DefaultLoggingConfig()))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, http.MethodGet, "/api/molecules?q=caf", nil)
	serve(r, http.MethodGet, "/boom", nil)
	serve(r, http.MethodGet, "/missing", nil)

	assert.True(t, log.HasMessage("info", "HTTP request completed"))
	assert.True(t, log.HasMessage("error", "server error"))
	assert.True(t, log.HasMessage("warn", "client error"))

	var path string
	for _, m := range log.Messages() {
		if m.Level == "info" {
			for _, f := range m.Fields {
				if f.Key == "path" {
					path = f.Value.(string)
				}
			}
		}
	}
	assert.Equal(t, "/api/molecules?q=caf", path)
}

func TestRequestLogging_SkipsProbes(t *testing.T) {
	log := testutil.NewMockLogger()
	serve(newEngine(RequestLogging(log, DefaultLoggingConfig())), http.MethodGet, "/healthz", nil)
	assert.Empty(t, log.Messages())
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	r := newEngine(RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})
	serve(r, http.MethodGet, "/slow", nil)
	assert.True(t, log.HasMessage("warn", "(slow)"))
}

func TestRequestID(t *testing.T) {
	log := testutil.NewMockLogger()
	r := newEngine(RequestID(log))
	var seen string
	r.GET("/echo", func(c *gin.Context) {
		seen = GetRequestID(c)
		logging.FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/echo", map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", seen)

	msgs := log.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Fields, logging.RequestID("req-42"))

	w = serve(r, http.MethodGet, "/echo", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
}

type recordedRequest struct {
	method, path string
	status       int
}

type recordingObserver struct{ calls []recordedRequest }

func (o *recordingObserver) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	o.calls = append(o.calls, recordedRequest{method, path, status})
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	r := newEngine(Metrics(obs))
	r.GET("/api/molecules/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/api/molecules/M-1", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	require.Len(t, obs.calls, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/api/molecules/:id", http.StatusOK}, obs.calls[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "unmatched", http.StatusNotFound}, obs.calls[1])
}

func TestRecovery(t *testing.T) {
	log := testutil.NewMockLogger()
	r := newEngine(Recovery(log))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.True(t, log.HasMessage("error", "panic"))
}
