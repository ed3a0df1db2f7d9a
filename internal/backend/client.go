package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kalambet/docqa/internal/metrics"
)

const maxErrorBody = 512

// Operation names used in errors, logs and metrics.
const (
	OpUpload = "upload"
	OpQuery  = "query"
	OpDelete = "delete"
)

// Client talks to the document Q&A backend over HTTP. It issues exactly one
// request per call and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (60s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client targeting the given backend base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		userAgent:  "docqa",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends one file as multipart field "file" to POST /upload.
func (c *Client) Upload(ctx context.Context, fileName string, content io.Reader) (UploadResponse, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return UploadResponse{}, requestFailed(OpUpload, err, "reading %s: %v", fileName, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		return UploadResponse{}, requestFailed(OpUpload, err, "building form: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		return UploadResponse{}, requestFailed(OpUpload, err, "building form: %v", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResponse{}, requestFailed(OpUpload, err, "building form: %v", err)
	}

	var payload uploadPayload
	if err := c.do(ctx, OpUpload, http.MethodPost, "/upload", &body, mw.FormDataContentType(), &payload); err != nil {
		return UploadResponse{}, err
	}
	if payload.FileID == nil || *payload.FileID == "" {
		return UploadResponse{}, requestFailed(OpUpload, nil, "malformed response: missing file_id")
	}

	return UploadResponse{FileID: *payload.FileID, Preview: payload.Preview}, nil
}

// Query sends the question as multipart field "question" to POST /query.
func (c *Client) Query(ctx context.Context, question string) (QueryResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("question", question); err != nil {
		return QueryResponse{}, requestFailed(OpQuery, err, "building form: %v", err)
	}
	if err := mw.Close(); err != nil {
		return QueryResponse{}, requestFailed(OpQuery, err, "building form: %v", err)
	}

	var payload queryPayload
	if err := c.do(ctx, OpQuery, http.MethodPost, "/query", &body, mw.FormDataContentType(), &payload); err != nil {
		return QueryResponse{}, err
	}
	if payload.Answer == nil {
		return QueryResponse{}, requestFailed(OpQuery, nil, "malformed response: missing answer")
	}
	for i, s := range payload.Sources {
		if s.ChunkIndex < 0 {
			return QueryResponse{}, requestFailed(OpQuery, nil, "malformed response: source %d has negative chunk_index %d", i, s.ChunkIndex)
		}
	}

	sources := payload.Sources
	if sources == nil {
		sources = []Source{}
	}
	return QueryResponse{Answer: *payload.Answer, Sources: sources}, nil
}

// Delete removes a document by id via DELETE /delete with a JSON body.
func (c *Client) Delete(ctx context.Context, docID string) error {
	data, err := json.Marshal(deleteRequest{DocID: docID})
	if err != nil {
		return requestFailed(OpDelete, err, "marshalling request: %v", err)
	}
	return c.do(ctx, OpDelete, http.MethodDelete, "/delete", bytes.NewReader(data), "application/json", nil)
}

// DownloadURL builds the retrieval link for a document. It performs no I/O.
func (c *Client) DownloadURL(docID, fileName string) string {
	return c.baseURL + "/download?doc_id=" + encodeComponent(docID) + "&filename=" + encodeComponent(fileName)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return requestFailed(op, err, "waiting for rate limiter: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return requestFailed(op, err, "creating request: %v", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.CaptureBackendRequest(op, metrics.OutcomeFailed, time.Since(start))
		c.logger.Debug("backend request failed", "op", op, "request_id", requestID, "error", err)
		return requestFailed(op, err, "backend not reachable (%v)", err)
	}
	defer resp.Body.Close()

	if err := decodeJSON(resp, out); err != nil {
		metrics.CaptureBackendRequest(op, metrics.OutcomeFailed, time.Since(start))
		c.logger.Debug("backend request failed", "op", op, "request_id", requestID, "status", resp.StatusCode, "error", err)
		return requestFailed(op, err, "%v", err)
	}

	metrics.CaptureBackendRequest(op, metrics.OutcomeOK, time.Since(start))
	c.logger.Debug("backend request completed", "op", op, "request_id", requestID, "elapsed", time.Since(start))
	return nil
}

// decodeJSON checks the status and decodes the body into v. A nil v drains the body.
func decodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	if v == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// componentUnescaper undoes url.QueryEscape for the characters
// encodeURIComponent leaves alone, and writes spaces as %20 rather than +.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes s the way browsers' encodeURIComponent does.
func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
