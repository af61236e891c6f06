// Package restapi is the single chokepoint for calls to the Trackit REST service.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/notify"
	"github.com/evanschultz/trackit/internal/telemetry"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
	spanName         = "trackit.api.request"
)

// Config holds API client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithNotifier sets the sink that receives failure messages.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l app.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithSessionExpired registers the callback fired once when a session is invalidated.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// WithRequestIDs overrides the X-Request-ID generator.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// Client sends JSON requests to the Trackit API.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	userAgent string

	http      *http.Client
	creds     app.CredentialStore
	notifier  notify.Notifier
	logger    app.Logger
	tracer    trace.Tracer
	onExpired func()
	requestID func() string

	expireMu sync.Mutex
}

// New constructs a Client for cfg.BaseURL.
func New(cfg Config, creds app.CredentialStore, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q must use http or https", raw)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "trackit"
	}
	c := &Client{
		base:      base,
		timeout:   timeout,
		userAgent: userAgent,
		http:      &http.Client{},
		creds:     creds,
		notifier:  notify.Discard{},
		logger:    app.NopLogger(),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// errorBody is the error payload shape returned by the service.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// Do sends one request. A nil body sends no payload; a nil out discards the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	ctx, span := telemetry.StartClientSpan(ctx, c.tracer, spanName,
		telemetry.AttrMethod.String(method),
		telemetry.AttrPath.String(path),
	)
	defer span.End()

	err := c.do(ctx, method, path, body, out, span)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, span trace.Span) error {
	target := c.resolve(path)

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return c.fail(span, &Error{Kind: KindUnknown, Method: method, Path: path, Message: msgUnexpected, Err: fmt.Errorf("encode request: %w", err)})
		}
		payload = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, target, payload)
	if err != nil {
		return c.fail(span, &Error{Kind: KindUnknown, Method: method, Path: path, Message: msgUnexpected, Err: fmt.Errorf("build request: %w", err)})
	}
	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token := c.token(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "request_id", requestID, "auth", redact(token), "err", err)
		return c.fail(span, &Error{Kind: KindNetwork, Method: method, Path: path, Message: msgNetwork, Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"auth", redact(token),
		"duration", time.Since(started).Round(time.Millisecond),
	)
	span.SetAttributes(telemetry.AttrStatus.Int(resp.StatusCode))
	if err != nil {
		return c.fail(span, &Error{Kind: KindNetwork, Status: resp.StatusCode, Method: method, Path: path, Message: msgNetwork, Err: err})
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return c.fail(span, &Error{Kind: KindUnknown, Status: resp.StatusCode, Method: method, Path: path, Message: msgUnexpected, Err: err})
		}
		return nil
	}

	apiErr := classify(resp.StatusCode, raw, token != "")
	apiErr.Method = method
	apiErr.Path = path
	if apiErr.Kind == KindUnauthorized {
		c.expire(ctx, token)
	}
	return c.fail(span, apiErr)
}

// resolve joins the base URL and an API path that may carry a query string.
func (c *Client) resolve(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

// token reads the bearer token, treating store failures as anonymous.
func (c *Client) token(ctx context.Context) string {
	if c.creds == nil {
		return ""
	}
	creds, ok, err := c.creds.Get(ctx)
	if err != nil {
		c.logger.Warn("read credentials failed", "err", err)
		return ""
	}
	if !ok {
		return ""
	}
	return creds.Token
}

// expire clears the session that sent token, once. A store that no longer holds
// that token has already been cleared or replaced by a newer login.
func (c *Client) expire(ctx context.Context, token string) {
	if token == "" || c.creds == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	c.expireMu.Lock()
	defer c.expireMu.Unlock()
	creds, ok, err := c.creds.Get(ctx)
	if err != nil {
		c.logger.Warn("read credentials failed", "err", err)
		return
	}
	if !ok || creds.Token != token {
		return
	}
	if err := c.creds.Clear(ctx); err != nil {
		c.logger.Error("clear expired session failed", "err", err)
		return
	}
	c.logger.Info("session expired", "user", creds.User.Username)
	if c.onExpired != nil {
		c.onExpired()
	}
}

// fail notifies the user once with the error's own message and records the
// failure on the span. Validation field messages stay in Details.
func (c *Client) fail(span trace.Span, apiErr *Error) *Error {
	span.SetAttributes(telemetry.AttrKind.String(string(apiErr.Kind)))
	c.notifier.Notify(notify.Error(apiErr.Message))
	return apiErr
}

// classify maps a non-2xx response onto exactly one Kind.
func classify(status int, raw []byte, authenticated bool) *Error {
	var body errorBody
	var serverMsg string
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &body); err != nil {
			serverMsg = plainMessage(trimmed)
		}
	}
	if serverMsg == "" {
		serverMsg = strings.TrimSpace(body.Message)
	}
	if serverMsg == "" {
		serverMsg = strings.TrimSpace(body.Error)
	}
	withDefault := func(fallback string) string {
		if serverMsg != "" {
			return serverMsg
		}
		return fallback
	}

	e := &Error{Status: status, Details: body.Details}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = msgUnauthorized
		if !authenticated {
			e.Message = withDefault(msgAuthFailed)
		}
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
		e.Message = msgForbidden
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = msgNotFound
	case status == http.StatusUnprocessableEntity,
		status == http.StatusBadRequest && len(body.Details) > 0:
		e.Kind = KindValidation
		e.Message = validationMessage(body.Details, withDefault(msgValidation))
	case status >= 500:
		e.Kind = KindServerError
		e.Message = msgServerError
	default:
		e.Kind = KindUnknown
		e.Message = withDefault(msgDefault)
	}
	return e
}

// plainMessage accepts short text bodies, which some endpoints return instead of JSON.
func plainMessage(raw []byte) string {
	if len(raw) > 200 || raw[0] == '<' || raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func validationMessage(details map[string]string, fallback string) string {
	if len(details) == 0 {
		return fallback
	}
	keys := sortedKeys(details)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, details[k])
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func redact(token string) string {
	if token == "" {
		return "none"
	}
	return "Bearer [redacted]"
}

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
