package veracode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/duration"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/httpclient"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/iohelper"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/jsonutil"
)

// Client issues signed, read-only API calls. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	signer   *signer
	limiter  *rate.Limiter
	pageSize int
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	observe  func(route string, status int, elapsed time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the region endpoint derived from the key id.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if parsed, err := url.Parse(u); err == nil {
			c.baseURL = parsed
		}
	}
}

// WithHTTPClient sets the connection pool. Defaults to httpclient.Default().
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit paces requests. A zero rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageSize sets the page size for list resources.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithObserver registers a callback invoked after every response or
// transport failure (status 0).
func WithObserver(fn func(route string, status int, elapsed time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

// New builds a Client for creds. The secret is decoded eagerly so that a
// malformed key fails before any network call.
func New(creds credentials.Credentials, opts ...Option) (*Client, error) {
	s, err := newSigner(creds)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(creds.Region().BaseURL())
	if err != nil {
		return nil, fmt.Errorf("veracode: base url: %w", err)
	}
	c := &Client{
		baseURL:  base,
		signer:   s,
		limiter:  rate.NewLimiter(rate.Limit(defaults.RequestsPerSecond), defaults.RequestBurst),
		pageSize: defaults.PageSize,
		timeout:  duration.APIRequest,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaults.ToolName + "/veracode")
	}
	return c, nil
}

// BaseURL returns the endpoint requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// getJSON signs and sends a GET request and decodes the body into out.
// resource names the entity in schema errors.
func (c *Client) getJSON(ctx context.Context, resource, path string, query url.Values, out any) error {
	ctx, span := c.tracer.Start(ctx, "veracode "+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", http.MethodGet), attribute.String("url.path", path)))
	defer span.End()

	err := c.do(ctx, resource, path, query, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(parent context.Context, resource, path string, query url.Values, out any) error {
	op := "GET " + path
	if err := c.limiter.Wait(parent); err != nil {
		return fmt.Errorf("veracode: %s: rate limiter: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("veracode: %s: %w", op, err)
	}
	auth, err := c.signer.authorization(http.MethodGet, u)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(path, 0, start)
		if parent.Err() != nil {
			return fmt.Errorf("veracode: %s: %w", op, context.Cause(parent))
		}
		err = httpclient.Classify(err)
		if httpclient.IsTransient(err) {
			return &TransientFetchError{Op: op, Err: err}
		}
		return fmt.Errorf("veracode: %s: %w", op, err)
	}
	defer iohelper.DrainAndClose(resp.Body)
	c.record(path, resp.StatusCode, start)

	c.logger.Debug("api response",
		slog.String("path", path),
		slog.String("query", u.RawQuery),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			Path:       path,
			Body:       string(iohelper.ReadBodySmall(resp.Body)),
		}
		if transientStatus(resp.StatusCode) {
			return &TransientFetchError{Op: op, Err: apiErr}
		}
		return apiErr
	}

	body, err := iohelper.ReadBody(resp.Body, iohelper.PageMaxBodySize)
	if err != nil {
		if errors.Is(err, iohelper.ErrBodyTooLarge) {
			return fmt.Errorf("veracode: %s: %w", op, err)
		}
		if parent.Err() != nil {
			return fmt.Errorf("veracode: %s: %w", op, context.Cause(parent))
		}
		return &TransientFetchError{Op: op, Err: httpclient.Classify(err)}
	}
	if err := jsonutil.Unmarshal(body, out); err != nil {
		c.logger.Warn("undecodable api response", slog.String("path", path), slog.String("error", err.Error()))
		return &finding.SchemaError{Resource: resource, Field: "(body)", Value: truncate(err.Error(), 200)}
	}
	return nil
}

func (c *Client) record(path string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(path, status, time.Since(start))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
