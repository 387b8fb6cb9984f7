// Package client provides an HTTP client for the conversion server's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/webmconv/internal/metrics"
	"github.com/raphaelgruber/webmconv/internal/models"
)

// DefaultServerURL is used when neither an explicit URL nor WEBMCONV_SERVER_URL is set.
const DefaultServerURL = "http://localhost:2424"

// ErrNotFound matches a 404 StatusError via errors.Is.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-success HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("server error: %s", e.Status)
	}
	return fmt.Sprintf("server error: %s - %s", e.Status, truncate(body, maxBodyLogLen))
}

// Is reports whether a 404 is being matched against ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a conversion server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets an overall per-request timeout. Zero leaves transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records upload and download timings.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger logs every request and response status.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the server at baseURL.
// If baseURL is empty, uses WEBMCONV_SERVER_URL or defaults to localhost:2424.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("WEBMCONV_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = DefaultServerURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger != nil {
		hc := *c.httpClient
		next := hc.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		hc.Transport = &loggingTransport{next: next, logger: c.logger}
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebSocketURL derives the push channel URL, upgrading http to ws and https to wss.
func (c *Client) WebSocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// DownloadURL returns the absolute URL of a job's converted artifact.
func (c *Client) DownloadURL(id string) string {
	return c.baseURL + "/api/jobs/" + url.PathEscape(id) + "/download"
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// do executes req and returns the response if it succeeded.
// Callers must close the body of a returned response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// =============================================================================
// JOB OPERATIONS
// =============================================================================

// ListJobs returns every job the server currently knows about.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.getJSON(ctx, "/api/jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob retrieves a single job. A missing job yields an error matching ErrNotFound.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UploadRequest describes one file upload.
type UploadRequest struct {
	Filename   string
	Body       io.Reader
	Rename     string
	CustomName string // sent only when non-empty
}

// Upload streams one file to the server and returns the job it created.
func (c *Client) Upload(ctx context.Context, in UploadRequest) (*models.Job, error) {
	start := time.Now()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	counter := &countingReader{r: in.Body}

	go func() {
		pw.CloseWithError(writeUploadForm(mw, in, counter))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		pr.Close()
		c.metrics.RecordFailure(metrics.OpUpload)
		return nil, err
	}
	defer resp.Body.Close()

	var job models.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		c.metrics.RecordFailure(metrics.OpUpload)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.metrics.RecordTransfer(metrics.OpUpload, time.Since(start), counter.n.Load())
	return &job, nil
}

func writeUploadForm(mw *multipart.Writer, in UploadRequest, body io.Reader) error {
	part, err := mw.CreateFormFile("file", in.Filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := mw.WriteField("rename", in.Rename); err != nil {
		return fmt.Errorf("write rename field: %w", err)
	}
	if in.CustomName != "" {
		if err := mw.WriteField("custom_name", in.CustomName); err != nil {
			return fmt.Errorf("write custom_name field: %w", err)
		}
	}
	return mw.Close()
}

// =============================================================================
// DOWNLOADS
// =============================================================================

// Artifact describes a completed download.
type Artifact struct {
	Filename    string // from Content-Disposition, empty if absent
	ContentType string
	Bytes       int64
}

// Download streams a job's converted file into w.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (*Artifact, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/download", nil)
	if err != nil {
		return nil, err
	}
	return c.fetch(req, w)
}

// DownloadAll requests an archive of the given jobs and streams it into w.
func (c *Client) DownloadAll(ctx context.Context, ids []string, w io.Writer) (*Artifact, error) {
	body, err := json.Marshal(struct {
		JobIDs []string `json:"job_ids"`
	}{JobIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/jobs/download-all", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.fetch(req, w)
}

func (c *Client) fetch(req *http.Request, w io.Writer) (*Artifact, error) {
	start := time.Now()

	resp, err := c.do(req)
	if err != nil {
		c.metrics.RecordFailure(metrics.OpDownload)
		return nil, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.metrics.RecordFailure(metrics.OpDownload)
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.metrics.RecordTransfer(metrics.OpDownload, time.Since(start), n)

	a := &Artifact{
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       n,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			a.Filename = params["filename"]
		}
	}
	return a, nil
}

// countingReader counts bytes read; the count is read from another goroutine.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
