package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statsHandler(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]int{"molecule": 3, "target": 2, "organism": 1, "effect": 4})
}

// flakyTransport drops the first n requests whose path has the given suffix
// as if the connection had been torn down under us.
type flakyTransport struct {
	suffix    string
	remaining int32
	base      http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, f.suffix) && atomic.AddInt32(&f.remaining, -1) >= 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return f.base.RoundTrip(req)
}

type recordingMetrics struct {
	mu      sync.Mutex
	calls   int
	retries []string
}

func (m *recordingMetrics) RecordClientCall(string, string, time.Duration, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordClientRetry(reason string) {
	m.mu.Lock()
	m.retries = append(m.retries, reason)
	m.mu.Unlock()
}

type testLogger struct {
	count int32
	last  atomic.Value
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Warnf(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.last.Store(fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Constructor Tests
// ---------------------------------------------------------------------------

func TestNewClient_Success(t *testing.T) {
	c, err := NewClient("http://localhost:8080/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", c.BaseURL())
	assert.Equal(t, DefaultInactivityWindow, c.inactivityWindow)
	assert.Contains(t, c.userAgent, "hyperblend-go-sdk/")
	assert.False(t, c.IsInitialized())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))

	_, err = NewClient("ftp://example.com")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))

	_, err = NewClient("not a url")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestNewClient_Options(t *testing.T) {
	logger := &testLogger{}
	c, err := NewClient("http://localhost",
		WithTimeout(5*time.Second),
		WithInactivityWindow(time.Minute),
		WithUserAgent("ua/1"),
		WithLogger(logger),
	)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, time.Minute, c.inactivityWindow)
	assert.Equal(t, "ua/1", c.userAgent)
	assert.Same(t, logger, c.logger)
}

func TestWithTimeout_LeavesSharedHTTPClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c, err := NewClient("http://localhost", WithHTTPClient(shared), WithTimeout(5*time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.NotSame(t, shared, c.httpClient)
}

// ---------------------------------------------------------------------------
// Initialization
// ---------------------------------------------------------------------------

func TestInitialize_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		statsHandler(w)
	})

	require.NoError(t, c.Initialize(context.Background()))
	assert.True(t, c.IsInitialized())

	stats, ok := c.LastStatistics()
	require.True(t, ok)
	assert.Equal(t, 3, stats.Molecules)
	assert.Equal(t, 10, stats.Total())
}

func TestInitialize_ConcurrentCallersShareOneProbe(t *testing.T) {
	var probes int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&probes, 1)
		<-release
		statsHandler(w)
	})

	const callers = 10
	var started, done sync.WaitGroup
	errs := make(chan error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			errs <- c.Initialize(context.Background())
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes))
}

func TestInitialize_IsIdempotent(t *testing.T) {
	var probes int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&probes, 1)
		statsHandler(w)
	})

	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes))
}

func TestInitialize_FailureLeavesUninitialized(t *testing.T) {
	var healthy atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "database offline"})
			return
		}
		statsHandler(w)
	})

	err := c.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeClientInitFailed))
	assert.False(t, c.IsInitialized())

	healthy.Store(true)
	require.NoError(t, c.Initialize(context.Background()))
	assert.True(t, c.IsInitialized())
}

func TestInitialize_CallerContextCancelled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		statsHandler(w)
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForInitialization_ReprobesAfterInactivity(t *testing.T) {
	var probes int32
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/statistics" {
			atomic.AddInt32(&probes, 1)
		}
		statsHandler(w)
	}, WithClock(clock))

	ctx := context.Background()
	require.NoError(t, c.WaitForInitialization(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes))

	advance(30 * time.Second)
	require.NoError(t, c.WaitForInitialization(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes), "within the window no probe is issued")

	advance(61 * time.Second)
	require.NoError(t, c.WaitForInitialization(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&probes), "idle client re-probes")
}

// ---------------------------------------------------------------------------
// FetchJSON
// ---------------------------------------------------------------------------

func TestFetchJSON_StaleChannelRetriesOnce(t *testing.T) {
	var probes, calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/statistics":
			atomic.AddInt32(&probes, 1)
			statsHandler(w)
		case "/molecules":
			atomic.AddInt32(&calls, 1)
			writeJSON(w, http.StatusOK, []map[string]string{{"id": "M-1", "name": "Caffeine"}})
		}
	}
	server := httptest.NewServer(http.HandlerFunc(handler))
	defer server.Close()

	metrics := &recordingMetrics{}
	ft := &flakyTransport{suffix: "/molecules", remaining: 1, base: http.DefaultTransport}
	c, err := NewClient(server.URL, WithHTTPClient(&http.Client{Transport: ft}), WithMetrics(metrics))
	require.NoError(t, err)

	var out []map[string]string
	require.NoError(t, c.FetchJSON(context.Background(), "/molecules", RequestOptions{}, &out))
	require.Len(t, out, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes), "one reinitialization")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "one successful retry")
	assert.Equal(t, []string{"stale_channel"}, metrics.retries)
	assert.True(t, c.IsInitialized())
}

func TestFetchJSON_StaleChannelNeverRetriesTwice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statsHandler(w)
	}))
	defer server.Close()

	ft := &flakyTransport{suffix: "/molecules", remaining: 100, base: http.DefaultTransport}
	c, err := NewClient(server.URL, WithHTTPClient(&http.Client{Transport: ft}))
	require.NoError(t, err)

	err = c.FetchJSON(context.Background(), "/molecules", RequestOptions{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStaleChannel))
	assert.Equal(t, int32(98), atomic.LoadInt32(&ft.remaining), "exactly two attempts")
}

func TestFetchJSON_HTTPErrorCarriesStatusAndDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Molecule not found", "details": "id=M-9"})
	})

	err := c.FetchJSON(context.Background(), "/molecules/M-9", RequestOptions{}, nil)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Molecule not found", apiErr.Message)
	assert.Equal(t, "id=M-9", apiErr.Details)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "hyperblend: HTTP 404: Molecule not found (id=M-9)", err.Error())
}

func TestFetchJSON_HTTPErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})

	err := c.FetchJSON(context.Background(), "/graph", RequestOptions{}, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchJSON_PlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.FetchJSON(context.Background(), "/graph", RequestOptions{}, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestFetchJSON_UnexpectedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	var out map[string]interface{}
	err := c.FetchJSON(context.Background(), "/statistics", RequestOptions{}, &out)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnexpectedShape))
}

func TestFetchJSON_SendsBodyAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "caffeine", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, body)
	})

	var out map[string]string
	err := c.FetchJSON(context.Background(), "echo", RequestOptions{
		Method: http.MethodPost,
		Query:  map[string][]string{"q": {"caffeine"}},
		Body:   map[string]string{"name": "Caffeine"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Caffeine", out["name"])
}

func TestFetchJSON_CancelledContextIsNotStale(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		statsHandler(w)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.FetchJSON(ctx, "/statistics", RequestOptions{}, nil)
	require.Error(t, err)
	assert.False(t, apperrors.IsCode(err, apperrors.ErrCodeStaleChannel))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
