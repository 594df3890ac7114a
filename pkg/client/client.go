// Package client is the Go SDK for the HyperBlend REST API. It is the single
// point of contact with the backend for the UI controllers and the CLI: it
// owns the connectivity state, the one-shot stale-channel retry, and molecule
// ID normalisation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

const Version = "0.3.0"

// DefaultInactivityWindow is how long the client may idle before
// WaitForInitialization re-probes.
const DefaultInactivityWindow = 60 * time.Second

// Logger is the logging surface the client needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Metrics receives per-call observations.
type Metrics interface {
	RecordClientCall(method, path string, d time.Duration, err error)
	RecordClientRetry(reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordClientCall(string, string, time.Duration, error) {}
func (noopMetrics) RecordClientRetry(string)                              {}

// RequestOptions describes one FetchJSON call.
type RequestOptions struct {
	Method string
	Query  url.Values
	Body   interface{}
}

// Client talks to the HyperBlend API. It is safe for concurrent use.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	userAgent        string
	logger           Logger
	metrics          Metrics
	inactivityWindow time.Duration
	now              func() time.Time

	initGroup singleflight.Group

	mu           sync.Mutex
	initialized  bool
	lastActivity time.Time
	lastStats    *entity.Statistics

	molecules     *MoleculesClient
	moleculesOnce sync.Once
	targets       *EntityClient[entity.Target]
	targetsOnce   sync.Once
	organisms     *EntityClient[entity.Organism]
	organismsOnce sync.Once
	effects       *EntityClient[entity.Effect]
	effectsOnce   sync.Once
}

// NewClient creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "invalid base URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "base URL scheme must be http or https")
	}

	c := &Client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		userAgent:        fmt.Sprintf("hyperblend-go-sdk/%s", Version),
		logger:           noopLogger{},
		metrics:          noopMetrics{},
		inactivityWindow: DefaultInactivityWindow,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// ─────────────────────────────────────────────────────────────────────────────
// Initialization
// ─────────────────────────────────────────────────────────────────────────────

// Initialize probes the server with a statistics fetch. Concurrent callers
// share one in-flight probe. On failure the client stays uninitialized and the
// error is returned; callers retry with backoff.
func (c *Client) Initialize(ctx context.Context) error {
	if c.IsInitialized() {
		return nil
	}

	ch := c.initGroup.DoChan("init", func() (interface{}, error) {
		// The probe outlives any single waiter's context.
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.probeTimeout())
		defer cancel()
		return nil, c.probe(probeCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) probeTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return 30 * time.Second
}

func (c *Client) probe(ctx context.Context) error {
	var stats entity.Statistics
	err := c.doOnce(ctx, "/statistics", RequestOptions{Method: http.MethodGet}, &stats)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.initialized = false
		c.logger.Warnf("hyperblend: initialization probe failed: %v", err)
		return apperrors.Wrap(err, apperrors.ErrCodeClientInitFailed, "failed to connect to the HyperBlend server")
	}
	c.initialized = true
	c.lastActivity = c.now()
	c.lastStats = &stats
	c.logger.Debugf("hyperblend: client initialized against %s", c.baseURL)
	return nil
}

// IsInitialized reports whether the last probe succeeded.
func (c *Client) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// WaitForInitialization returns once the client is initialized. When the client
// has been idle longer than the inactivity window it re-probes first.
func (c *Client) WaitForInitialization(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized && c.now().Sub(c.lastActivity) > c.inactivityWindow {
		c.logger.Infof("hyperblend: idle for more than %s, re-probing", c.inactivityWindow)
		c.initialized = false
	}
	c.mu.Unlock()
	return c.Initialize(ctx)
}

// LastStatistics returns the statistics captured by the most recent probe.
func (c *Client) LastStatistics() (entity.Statistics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastStats == nil {
		return entity.Statistics{}, false
	}
	return *c.lastStats, true
}

func (c *Client) markUninitialized() {
	c.mu.Lock()
	c.initialized = false
	c.mu.Unlock()
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = c.now()
	c.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

// FetchJSON issues one call and decodes the JSON response into out (which may
// be nil). A stale-channel transport failure triggers exactly one
// reinitialization and retry; every other failure is returned as is.
func (c *Client) FetchJSON(ctx context.Context, path string, opts RequestOptions, out interface{}) error {
	err := c.doOnce(ctx, path, opts, out)
	if err == nil || !apperrors.IsCode(err, apperrors.ErrCodeStaleChannel) {
		return err
	}

	c.logger.Warnf("hyperblend: stale connection on %s %s, reconnecting once", opts.method(), path)
	c.metrics.RecordClientRetry("stale_channel")
	c.markUninitialized()
	if initErr := c.Initialize(ctx); initErr != nil {
		return initErr
	}
	return c.doOnce(ctx, path, opts, out)
}

func (o RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

func (c *Client) doOnce(ctx context.Context, path string, opts RequestOptions, out interface{}) (err error) {
	method := opts.method()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path
	if len(opts.Query) > 0 {
		fullURL += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		b, mErr := json.Marshal(opts.Body)
		if mErr != nil {
			return apperrors.Wrap(mErr, apperrors.ErrCodeSerialization, "failed to encode request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	defer func() { c.metrics.RecordClientCall(method, path, c.now().Sub(start), err) }()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(method, path, err)
	}
	c.touch()
	c.logger.Debugf("hyperblend: %s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody, requestID, method, path)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnexpectedShape, "unexpected response from server").
			WithDetail(method + " " + path)
	}
	return nil
}

func decodeAPIError(status int, body []byte, requestID, method, path string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID, Method: method, Path: path}
	var payload struct {
		Error   string      `json:"error"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
		switch d := payload.Details.(type) {
		case nil:
		case string:
			apiErr.Details = d
		default:
			if b, err := json.Marshal(d); err == nil {
				apiErr.Details = string(b)
			}
		}
		if apiErr.Details == "" && payload.Error != "" && payload.Message != "" {
			apiErr.Details = payload.Message
		}
	} else if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < 512 {
		apiErr.Message = trimmed
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.FetchJSON(ctx, path, RequestOptions{Method: http.MethodGet, Query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.FetchJSON(ctx, path, RequestOptions{Method: http.MethodPost, Body: body}, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.FetchJSON(ctx, path, RequestOptions{Method: http.MethodPut, Body: body}, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.FetchJSON(ctx, path, RequestOptions{Method: http.MethodDelete}, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Sub-clients
// ─────────────────────────────────────────────────────────────────────────────

// Molecules returns the molecule sub-client.
func (c *Client) Molecules() *MoleculesClient {
	c.moleculesOnce.Do(func() {
		c.molecules = &MoleculesClient{EntityClient: newEntityClient[entity.Molecule](c)}
	})
	return c.molecules
}

// Targets returns the target sub-client.
func (c *Client) Targets() *EntityClient[entity.Target] {
	c.targetsOnce.Do(func() { c.targets = newEntityClient[entity.Target](c) })
	return c.targets
}

// Organisms returns the organism sub-client.
func (c *Client) Organisms() *EntityClient[entity.Organism] {
	c.organismsOnce.Do(func() { c.organisms = newEntityClient[entity.Organism](c) })
	return c.organisms
}

// Effects returns the effect sub-client.
func (c *Client) Effects() *EntityClient[entity.Effect] {
	c.effectsOnce.Do(func() { c.effects = newEntityClient[entity.Effect](c) })
	return c.effects
}
