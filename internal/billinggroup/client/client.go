// Package client talks to the remote policy, contact and billing group
// collaborators over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/circuit"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

// DefaultTimeout bounds a single collaborator call.
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client is a JSON client for one collaborator base URL. Transport failures
// and 502, 503 or 504 responses count against a circuit breaker; while it is
// open calls fail fast with sentinel.ErrUnavailable. Other 5xx responses are
// per-request failures and leave the breaker alone.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid collaborator base url %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuit.New(u.Host, circuit.WithCooldown(10*time.Second)),
		logger:  slog.Default(),
		tracer:  otel.Tracer("policydesk/client"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// errorEnvelope is the error body written by policydesk handlers.
type errorEnvelope struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// do sends a request and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "collaborator "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("collaborator.host", c.baseURL.Host),
		),
	)
	defer span.End()

	err := c.send(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("%s %s: circuit open: %w", method, path, sentinel.ErrUnavailable)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(ctx)
		return fmt.Errorf("%s %s: read response: %w: %w", method, path, sentinel.ErrUnavailable, err)
	}

	switch {
	case unavailableStatus(resp.StatusCode):
		c.recordFailure(ctx)
		return fmt.Errorf("%s %s: collaborator responded %d: %w: %s", method, path, resp.StatusCode, sentinel.ErrUnavailable, snippet(raw))
	case resp.StatusCode >= 500:
		// a server error on one entity says nothing about the others
		c.breaker.RecordSuccess()
		return fmt.Errorf("%s %s: collaborator responded %d: %s", method, path, resp.StatusCode, snippet(raw))
	case resp.StatusCode == http.StatusNotFound:
		c.breaker.RecordSuccess()
		return fmt.Errorf("%s %s: %w", method, path, sentinel.ErrNotFound)
	case resp.StatusCode >= 400:
		c.breaker.RecordSuccess()
		return rejection(resp.StatusCode, raw)
	}
	c.breaker.RecordSuccess()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// unavailableStatus reports the statuses that mean the collaborator as a whole
// cannot serve requests.
func unavailableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "collaborator circuit opened",
			"collaborator", c.breaker.Name(),
		)
	}
}

// rejection turns a 4xx response into a coded error, preferring the code sent
// by the collaborator.
func rejection(status int, raw []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(raw, &env)
	msg := env.Description
	if msg == "" {
		msg = fmt.Sprintf("collaborator rejected the request with status %d", status)
	}
	if env.Error != "" {
		return dErrors.New(dErrors.Code(env.Error), msg)
	}
	switch status {
	case http.StatusUnprocessableEntity:
		return dErrors.New(dErrors.CodeInvariantViolation, msg)
	case http.StatusConflict:
		return dErrors.New(dErrors.CodeConflict, msg)
	default:
		return dErrors.New(dErrors.CodeBadRequest, msg)
	}
}

func snippet(raw []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
