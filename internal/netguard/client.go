// Package netguard is the gateway's SSRF-safe HTTP surface: https-only,
// allow-listed hosts, per-host rate limiting, hop-header stripping, and a
// streaming response size cap. Retries are bounded and never applied to
// terminal failures.
package netguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/depgate/internal/model"
	"github.com/ppiankov/depgate/internal/ratelimit"
	"github.com/ppiankov/depgate/internal/sanitize"
	"github.com/ppiankov/depgate/internal/secerr"
	"github.com/ppiankov/depgate/internal/secevent"
)

const (
	// defaultMaxBody caps a response body.
	defaultMaxBody = 5 << 20 // 5 MiB
	// defaultTimeout bounds one request attempt.
	defaultTimeout = 30 * time.Second
	// defaultMaxRetries bounds transport-failure retries.
	defaultMaxRetries = 3
	// defaultBaseDelay seeds the exponential backoff.
	defaultBaseDelay = 500 * time.Millisecond

	userAgent = "depgate/1.0"
)

// strippedHeaders are never forwarded from caller-supplied options. They
// either leak credentials or enable request smuggling toward internal hops.
var strippedHeaders = []string{"Authorization", "Cookie", "X-Forwarded-For", "X-Real-Ip"}

// Config holds client construction parameters. Zero values fall back to
// the gateway defaults.
type Config struct {
	MaxBodyBytes int64
	Timeout      time.Duration
	MaxRetries   int
	BaseDelay    time.Duration
	// HTTPClient is injectable for tests; nil gets a plain client (the
	// per-attempt context carries the timeout).
	HTTPClient *http.Client
}

// RequestOptions adjusts one request.
type RequestOptions struct {
	Method  string // default GET
	Headers map[string]string
	Timeout time.Duration // 0 means the client default
}

// Response is a size-bounded HTTP result.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Client is the SSRF-safe HTTP client.
type Client struct {
	cfg       Config
	validator *sanitize.Validator
	limiter   *ratelimit.Limiter
	events    secevent.Recorder
	http      *http.Client
}

// New creates a Client. A nil validator gets the default lists; a nil
// limiter gets the registry defaults (10 requests per minute per host);
// a nil recorder discards events.
func New(cfg Config, v *sanitize.Validator, limiter *ratelimit.Limiter, events secevent.Recorder) *Client {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if v == nil {
		v = sanitize.NewDefault()
	}
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{MaxRequests: 10, Window: time.Minute})
	}
	if events == nil {
		events = secevent.Nop{}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, validator: v, limiter: limiter, events: events, http: hc}
}

// NewDefault creates a Client with default configuration.
func NewDefault() *Client {
	return New(Config{}, nil, nil, nil)
}

// Request validates the URL, consults the per-host limiter, and performs
// the request with retries on transport failures only.
func (c *Client) Request(ctx context.Context, rawURL string, opts RequestOptions) (*Response, error) {
	u, err := c.validator.URL(rawURL)
	if err != nil {
		c.events.Record(secevent.Event{
			Type:     secevent.TypeValidationFailure,
			Severity: model.SevHigh,
			Details:  secerr.Mask(err.Error()),
		})
		return nil, err
	}

	host := u.Hostname()
	if !c.limiter.Allow(host) {
		wait := c.limiter.TimeUntilReset(host)
		c.events.Record(secevent.Event{
			Type:     secevent.TypeRateLimitHit,
			Severity: model.SevLow,
			Details:  "per-host request quota exhausted: " + host,
		})
		return nil, &secerr.RateLimited{ID: host, RetryAfter: wait}
	}

	var resp *Response
	var attemptErr error
	for attempt := 1; ; attempt++ {
		resp, attemptErr = c.attempt(ctx, u.String(), opts)
		if attemptErr == nil {
			break
		}
		if secerr.Terminal(attemptErr) || attempt > c.cfg.MaxRetries {
			return nil, attemptErr
		}
		delay := c.cfg.BaseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, attemptErr
		}
	}

	c.events.Record(secevent.Event{
		Type:     secevent.TypeNetworkRequest,
		Severity: model.SevLow,
		Details:  fmt.Sprintf("%s %s -> %d", orGET(opts.Method), host, resp.Status),
	})
	return resp, nil
}

// attempt performs one bounded request.
func (c *Client) attempt(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, orGET(opts.Method), url, nil)
	if err != nil {
		return nil, &secerr.ValidationError{Field: "url", Rule: "request construction failed"}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.Headers {
		if strippedHeader(k) {
			continue
		}
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
			return nil, &secerr.ResourceLimitExceeded{Limit: "timeout_ms", Max: timeout.Milliseconds()}
		}
		return nil, &secerr.TransportError{Op: "request", Err: err}
	}
	defer res.Body.Close()

	// Fast rejection before reading anything.
	if res.ContentLength > c.cfg.MaxBodyBytes {
		return nil, &secerr.ResourceLimitExceeded{Limit: "response_bytes", Max: c.cfg.MaxBodyBytes}
	}

	// Stream with a hard cap; the extra byte detects overflow.
	body, err := io.ReadAll(io.LimitReader(res.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		if attemptCtx.Err() != nil {
			return nil, &secerr.ResourceLimitExceeded{Limit: "timeout_ms", Max: timeout.Milliseconds()}
		}
		return nil, &secerr.TransportError{Op: "read body", Err: err}
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, &secerr.ResourceLimitExceeded{Limit: "response_bytes", Max: c.cfg.MaxBodyBytes}
	}

	// Server-side failures are transient by convention; retry them.
	if res.StatusCode >= 500 {
		return nil, &secerr.TransportError{Op: "request", Err: fmt.Errorf("server returned %d", res.StatusCode)}
	}

	return &Response{Status: res.StatusCode, Headers: res.Header, Body: body}, nil
}

func strippedHeader(name string) bool {
	for _, h := range strippedHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

func orGET(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return method
}
