package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// CredentialProvider attaches an opaque credential to an outgoing request
type CredentialProvider interface {
	Apply(req *http.Request) error
}

// BearerToken authenticates admin requests
type BearerToken string

func (t BearerToken) Apply(req *http.Request) error {
	if t == "" {
		return fmt.Errorf("admin token is not set")
	}
	req.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// SessionToken authenticates applicant requests with the site's session cookie
type SessionToken string

// SessionCookieName is the cookie the API reads applicant sessions from
const SessionCookieName = "token"

func (t SessionToken) Apply(req *http.Request) error {
	if t == "" {
		return fmt.Errorf("applicant session token is not set")
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: string(t)})
	return nil
}

// Anonymous sends no credential
type Anonymous struct{}

func (Anonymous) Apply(*http.Request) error { return nil }

// Client talks to the Humanity Calls REST API
type Client struct {
	BaseURL string
	HTTP    *http.Client

	creds   CredentialProvider
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (and so its timeout)
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.HTTP = c }
}

// WithRateLimit paces outgoing requests to at most rps per second
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			cl.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client that authenticates every request with creds
func NewClient(baseURL string, creds CredentialProvider, opts ...Option) *Client {
	if creds == nil {
		creds = Anonymous{}
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		creds:   creds,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// filePart is one file field of a multipart request
type filePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// doJSON sends payload (if non-nil) as JSON and decodes the response into result (if non-nil)
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, result interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payloadBytes)
		contentType = "application/json"
	}
	return c.do(ctx, method, endpoint, body, contentType, result)
}

// doMultipart sends fields and a single file as multipart/form-data
func (c *Client) doMultipart(ctx context.Context, endpoint string, fields map[string]string, file filePart, result interface{}) error {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, endpoint, buf, w.FormDataContentType(), result)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errorx.Cancelled(ctx, fmt.Errorf("failed waiting for request slot: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	if err := c.creds.Apply(req); err != nil {
		return fmt.Errorf("failed to attach credentials: %w", err)
	}

	c.logger.Debug("API request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errorx.Cancelled(ctx, fmt.Errorf("request to %s failed: %w", endpoint, err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorx.Cancelled(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.Debug("API response",
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return buildRemoteError(resp, endpoint, bodyBytes)
	}

	if result == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// buildRemoteError keeps the server's message verbatim when it sent one
func buildRemoteError(resp *http.Response, endpoint string, body []byte) error {
	remote := &errorx.RemoteError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    extractMessage(body),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		remote.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return remote
}

func extractMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
