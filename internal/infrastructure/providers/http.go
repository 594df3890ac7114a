package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/HyperBlend/pkg/errors"
)

const (
	// DefaultTimeout bounds one provider request.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit is requests per second per provider host.
	DefaultRateLimit = 5.0

	maxBodyBytes = 8 << 20
	userAgent    = "HyperBlend/1.0 (+https://github.com/turtacn/HyperBlend)"
)

// errNoRecord marks a 404 from the provider; lookups treat it as "no data".
var errNoRecord = errors.New(errors.ErrCodeNotFound, "no matching record")

// Config tunes a provider's HTTP access.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// getter is a rate-limited HTTP client bound to one base URL.
type getter struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newGetter(name, defaultBase string, cfg Config) *getter {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBase
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &getter{
		name:       name,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// get performs GET baseURL+path?query and returns the body. Path segments
// must already be escaped.
func (g *getter) get(ctx context.Context, path string, query url.Values, accept string) ([]byte, string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeProviderRateLimited, g.name+": rate limiter")
	}

	u := g.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeInternal, g.name+": building request")
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeExternalService, g.name+": request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeExternalService, g.name+": reading response")
	}
	if err := checkStatus(g.name, resp.StatusCode); err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (g *getter) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	body, _, err := g.get(ctx, path, query, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, g.name+": decoding response")
	}
	return nil
}

func checkStatus(name string, code int) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusNotFound:
		return errNoRecord
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return errors.Newf(errors.ErrCodeProviderRateLimited, "%s: throttled (status %d)", name, code)
	default:
		return errors.New(errors.ErrCodeExternalService, fmt.Sprintf("%s: status %d", name, code))
	}
}

// isNoRecord reports a provider 404.
func isNoRecord(err error) bool {
	return err == errNoRecord
}
