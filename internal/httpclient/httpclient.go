// Package httpclient is the JSON-over-HTTP transport shared by every backend
// service client of the portal.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_upstream_requests_total",
		Help: "Requests sent to backend services, by service, method and status.",
	}, []string{"service", "method", "status"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_upstream_request_duration_seconds",
		Help:    "Latency of requests sent to backend services.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method"})
)

// MaxResponseBytes caps how much of a backend response body is read
const MaxResponseBytes = 4 << 20

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id forwarded upstream
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Config holds client configuration
type Config struct {
	Service string
	BaseURL string
	Timeout time.Duration
}

// Client sends JSON requests to one backend service
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given service
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		service: cfg.Service,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Service returns the name of the backend this client talks to
func (c *Client) Service() string {
	return c.service
}

// URL returns the absolute address of path on this backend
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Error is returned for any failed call to a backend service. Message keeps
// the upstream text so it can be shown to the user unchanged.
type Error struct {
	Service    string
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps upstream failures onto the status the portal answers with
func (e *Error) HTTPStatus() int {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case e.StatusCode == http.StatusConflict:
		return http.StatusConflict
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Patch(ctx context.Context, path string, in, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, in, out)
}

// Do sends one request. in is encoded as the JSON body when non-nil; out, when
// non-nil, receives the decoded JSON response. Requests are never retried.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	logger := log.With().
		Str("upstream", c.service).
		Str("method", method).
		Str("path", path).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamLatency.WithLabelValues(c.service, method).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequests.WithLabelValues(c.service, method, "error").Inc()
		logger.Warn().Err(err).Msg("upstream request failed")
		return &Error{
			Service: c.service,
			Method:  method,
			Path:    path,
			Message: err.Error(),
			Err:     err,
		}
	}
	defer resp.Body.Close()
	upstreamRequests.WithLabelValues(c.service, method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return &Error{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read response: %v", err),
			Err:        err,
		}
	}
	if len(respBody) > MaxResponseBytes {
		logger.Warn().Int("status", resp.StatusCode).Msg("upstream response too large")
		return &Error{
			Service: c.service,
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("response body exceeds %d bytes", MaxResponseBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := errorMessage(respBody, resp.Status)
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("message", message).
			Msg("upstream returned an error")
		return &Error{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("upstream request completed")

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decode response: %v", err),
			Err:        err,
		}
	}
	return nil
}

// errorMessage picks the most specific message an upstream error body offers
func errorMessage(body []byte, status string) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	if text := string(bytes.TrimSpace(body)); text != "" && len(text) <= 200 && !gjson.ValidBytes(body) {
		return text
	}
	return "Server returned status " + status
}
