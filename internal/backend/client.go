// Package backend is the REST client for the storefront backend. Every
// capability the core needs (catalog, cart sync, addresses, orders, sessions)
// is a method on Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 4 << 20 // 4MB
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithBreakerSettings replaces the default circuit breaker configuration.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breakerSettings = st }
}

type Client struct {
	baseURL         *url.URL
	http            *http.Client
	breaker         *gobreaker.CircuitBreaker[reply]
	breakerSettings gobreaker.Settings
	log             *zap.Logger
}

type reply struct {
	status int
	body   []byte
}

// NewClient targets baseURL, e.g. "http://localhost:4000/api". Session cookies
// set by the backend are kept for the lifetime of the client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	c.breakerSettings = gobreaker.Settings{
		Name:        "storefront-backend",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	st := c.breakerSettings
	if st.IsSuccessful == nil {
		st.IsSuccessful = isBreakerSuccess
	}
	userHook := st.OnStateChange
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn("backend circuit state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		if userHook != nil {
			userHook(name, from, to)
		}
	}
	c.breaker = gobreaker.NewCircuitBreaker[reply](st)
	return c, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

// do sends the call and decodes the envelope into out (which may be nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var payload []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", cl.op, err)
		}
		payload = b
	}

	rep, err := c.breaker.Execute(func() (reply, error) {
		return c.roundTrip(ctx, cl, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &APIError{Op: cl.op, Err: ErrUnavailable, Message: err.Error()}
		}
		return err
	}

	var env envelope
	if len(rep.body) > 0 {
		if err := json.Unmarshal(rep.body, &env); err != nil && rep.status < 300 {
			return &APIError{Op: cl.op, Status: rep.status, Err: ErrUnavailable, Message: "malformed response"}
		}
	}

	switch {
	case rep.status == http.StatusUnauthorized:
		return &APIError{Op: cl.op, Status: rep.status, Err: ErrAuthRequired, Message: env.Message}
	case rep.status >= 400:
		return &APIError{Op: cl.op, Status: rep.status, Err: ErrRejected, Message: env.Message}
	case !env.Success:
		// the backend answers 200 with success=false for business refusals,
		// and "Not Authorized" when the session cookie is missing
		if isNotAuthorized(env.Message) {
			return &APIError{Op: cl.op, Status: rep.status, Err: ErrAuthRequired, Message: env.Message}
		}
		return &APIError{Op: cl.op, Status: rep.status, Err: ErrRejected, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(rep.body, out); err != nil {
			return &APIError{Op: cl.op, Status: rep.status, Err: ErrUnavailable, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, cl call, payload []byte) (reply, error) {
	u := *c.baseURL
	u.Path = u.Path + cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return reply{}, fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if errors.Is(err, context.Canceled) {
		return reply{}, fmt.Errorf("%s: %w", cl.op, err)
	}
	if err != nil {
		c.log.Warn("backend request failed", zap.String("op", cl.op), zap.Error(err))
		return reply{}, &APIError{Op: cl.op, Err: ErrUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return reply{}, &APIError{Op: cl.op, Status: resp.StatusCode, Err: ErrUnavailable, Message: err.Error()}
	}
	c.log.Debug("backend call",
		zap.String("op", cl.op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode >= 500 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		return reply{}, &APIError{Op: cl.op, Status: resp.StatusCode, Err: ErrUnavailable, Message: env.Message}
	}
	return reply{status: resp.StatusCode, body: data}, nil
}

// isBreakerSuccess keeps caller cancellations from counting against the
// backend's health.
func isBreakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func isNotAuthorized(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not authorized") || strings.Contains(m, "unauthorized")
}
