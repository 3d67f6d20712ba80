// Package remoteapi talks to the document backend over HTTP. It implements the
// document store, the parse cache and the batch job service.
package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docnav/internal/core/ports"
	"github.com/kirillkom/docnav/internal/infrastructure/resilience"
)

var (
	_ ports.DocumentStore   = (*Client)(nil)
	_ ports.ParseCache      = (*Client)(nil)
	_ ports.BatchJobService = (*Client)(nil)
)

const (
	defaultTimeout  = 60 * time.Second
	requestIDHeader = "X-Request-Id"
)

type Options struct {
	Token      string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	Executor   *resilience.Executor
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(opts.Token),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		exec:       opts.Executor,
		logger:     opts.Logger,
	}
}

type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	accept    string
	handle    func(resp *http.Response) error
}

func (c *Client) do(ctx context.Context, cl call) error {
	var payload []byte
	if cl.body != nil {
		encoded, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", cl.operation, err)
		}
		payload = encoded
	}

	run := func(ctx context.Context) error {
		return c.send(ctx, cl, payload)
	}

	var err error
	if c.exec != nil {
		err = c.exec.Execute(ctx, cl.operation, run, classifyRemoteError)
	} else {
		err = run(ctx)
	}
	return toDomainError(cl.operation, err)
}

func (c *Client) send(ctx context.Context, cl call, payload []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", cl.operation, err)
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.accept != "" {
		req.Header.Set("Accept", cl.accept)
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote api %s request: %w", cl.operation, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("remote_api_call",
		"operation", cl.operation,
		"method", cl.method,
		"path", cl.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPStatusError(cl.operation, resp)
	}
	if cl.handle == nil {
		return nil
	}
	return cl.handle(resp)
}

func decodeJSON(operation string, out any) func(*http.Response) error {
	return func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w: %w", operation, errMalformedResponse, err)
		}
		return nil
	}
}

func projectPath(projectID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/projects/")
	b.WriteString(url.PathEscape(projectID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}
