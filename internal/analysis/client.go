// Package analysis talks to the external video analysis backend and owns the
// finished report shown on the post-hoc analysis view.
//
// [Client] uploads a recording as multipart/form-data to
// {BACKEND_URL}/api/analyze and decodes the JSON [Report]. Each call is a
// single attempt with no retries. An optional circuit breaker fails calls
// fast while the backend keeps failing. [Uploader] wraps a client with the
// upload flow rules: one request in flight at a time, the previous report
// kept on failure, and late responses dropped once the view is closed.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/internal/resilience"
)

// ErrTransport wraps every failed analysis call: network errors, non-2xx
// statuses, backend-reported errors and undecodable or malformed reports.
var ErrTransport = errors.New("analysis: transport failure")

const (
	// DefaultBackendURL is used when neither BACKEND_URL nor the config set one.
	DefaultBackendURL = "http://127.0.0.1:5000"

	// AnalyzePath is the backend endpoint receiving uploads.
	AnalyzePath = "/api/analyze"

	// VideoField is the multipart form field carrying the recording.
	VideoField = "video"

	defaultTimeout = 5 * time.Minute
)

// Client calls the analysis backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observe.Metrics
	breaker    *resilience.Breaker
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout. Defaults to 5 minutes since
// the backend transcribes the whole recording before answering.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records request outcomes and latency to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker fails uploads fast while b is open.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// IsBackendFailure reports whether err says something about the backend's
// health, as opposed to a cancelled request or an unreadable local file.
func IsBackendFailure(err error) bool {
	return errors.Is(err, ErrTransport) && !errors.Is(err, context.Canceled)
}

// New creates a Client for the backend at baseURL (e.g. "http://127.0.0.1:5000").
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("analysis: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnalyzeFile uploads the file at path.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %q: %w", path, err)
	}
	defer f.Close()
	return c.Analyze(ctx, filepath.Base(path), f)
}

// Analyze uploads video under filename and returns the decoded report.
func (c *Client) Analyze(ctx context.Context, filename string, video io.Reader) (*Report, error) {
	start := time.Now()
	var rep *Report
	var err error
	if c.breaker == nil {
		rep, err = c.analyze(ctx, filename, video)
	} else {
		err = c.breaker.Do(ctx, func(ctx context.Context) error {
			var aerr error
			rep, aerr = c.analyze(ctx, filename, video)
			return aerr
		})
		if errors.Is(err, resilience.ErrOpen) {
			err = fmt.Errorf("%w: backend marked unavailable after repeated failures: %w", ErrTransport, err)
		}
	}
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordAnalysis(ctx, status, time.Since(start))
	}
	return rep, err
}

func (c *Client) analyze(ctx context.Context, filename string, video io.Reader) (_ *Report, err error) {
	ctx, span := observe.StartSpan(ctx, "analysis.Analyze",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("podium.upload.filename", filename)),
	)
	defer func() { observe.EndSpan(span, err) }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile(VideoField, filename)
	if err != nil {
		return nil, fmt.Errorf("analysis: create form file: %w", err)
	}
	if _, err := io.Copy(fw, video); err != nil {
		return nil, fmt.Errorf("analysis: read video: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("analysis: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AnalyzePath, &body)
	if err != nil {
		return nil, fmt.Errorf("analysis: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := backendError(data); msg != "" {
			return nil, fmt.Errorf("%w: backend returned HTTP %d: %s", ErrTransport, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: backend returned HTTP %d", ErrTransport, resp.StatusCode)
	}
	if msg := backendError(data); msg != "" {
		return nil, fmt.Errorf("%w: backend reported: %s", ErrTransport, msg)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("%w: parse JSON response: %w", ErrTransport, err)
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed report: %w", ErrTransport, err)
	}
	return &rep, nil
}

// Ping reports whether the backend answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// backendError extracts the "error" message of a JSON error body.
func backendError(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) != nil {
		return ""
	}
	return e.Error
}
