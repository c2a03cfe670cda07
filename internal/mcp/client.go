package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/upstream"
)

// maxResponseSize caps the upstream response body to prevent OOM from unexpectedly large responses.
const maxResponseSize = 50 << 20 // 50MB

// DefaultTimeout is used when NewHTTPClient is given a non-positive timeout.
const DefaultTimeout = 300 * time.Second

// HTTPRequest is one resolved upstream call.
type HTTPRequest struct {
	Method  string
	Path    string // expanded path, appended to the base URL
	Query   url.Values
	Headers http.Header
	Cookies []*http.Cookie
	Body    any
	HasBody bool
}

// HTTPResponse is the raw upstream answer handed to the formatter.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// ContentType returns the response Content-Type header.
func (r *HTTPResponse) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// HTTPClient executes requests against the upstream API. It owns the
// resolved ServerConfig for its lifetime and is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	maxBody    int64
	logger     *common.Logger
}

// NewHTTPClient creates a client for the given upstream configuration.
func NewHTTPClient(cfg upstream.ServerConfig, logger *common.Logger, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBody: maxResponseSize,
		logger:  logger,
	}
}

// BaseURL returns the configured upstream base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Headers returns a copy of the static headers sent with every request.
func (c *HTTPClient) Headers() http.Header {
	return c.headers.Clone()
}

// Close releases idle upstream connections.
func (c *HTTPClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// Execute performs the request. Any status outside 2xx is returned as
// *HTTPError; transport failures are wrapped. No retries.
func (c *HTTPClient) Execute(ctx context.Context, r *HTTPRequest) (*HTTPResponse, error) {
	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var bodyReader io.Reader
	if r.HasBody {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, */*")
	if r.HasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, vals := range c.headers {
		for _, v := range vals {
			req.Header.Set(key, v)
		}
	}
	for key, vals := range r.Headers {
		for _, v := range vals {
			req.Header.Set(key, v)
		}
	}
	for _, ck := range r.Cookies {
		req.AddCookie(ck)
	}

	c.logger.Debug().Str("method", r.Method).Str("url", target).Msg("upstream request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Error().Str("method", r.Method).Str("url", target).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("upstream request failed")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Error().Str("method", r.Method).Str("url", target).Int64("max_bytes", c.maxBody).Msg("upstream response too large")
		return nil, fmt.Errorf("%w: max %d bytes", ErrResponseTooLarge, c.maxBody)
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("upstream response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseErrorResponse(resp.StatusCode, body)
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        target,
	}, nil
}
