// Package openapi acquires the OpenAPI document the tools are generated from.
package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// maxSpecSize caps the size of a fetched OpenAPI document.
const maxSpecSize = 20 << 20

// Loader fetches an OpenAPI document over HTTP and falls back to a local file.
type Loader struct {
	httpClient *http.Client
	logger     *common.Logger
}

// NewLoader creates a Loader whose HTTP fetches are bounded by timeout.
func NewLoader(logger *common.Logger, timeout time.Duration) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// IsURL reports whether source is an http(s) URL rather than a file path.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load fetches the document from specURL. When the fetch fails the document
// is read from fallbackFile instead. An error is returned only when both
// sources fail or the document cannot be parsed.
func (l *Loader) Load(ctx context.Context, specURL, fallbackFile string) (*openapi3.T, error) {
	data, err := l.fetch(ctx, specURL)
	if err == nil {
		l.logger.Info().Str("url", specURL).Msg("loaded OpenAPI spec from URL")
		return Parse(data)
	}

	l.logger.Warn().
		Str("url", specURL).
		Str("fallback_file", fallbackFile).
		Str("error", err.Error()).
		Msg("could not fetch OpenAPI spec, falling back to file")

	if fallbackFile == "" {
		return nil, fmt.Errorf("failed to fetch OpenAPI spec from %s and no fallback file is configured: %w", specURL, err)
	}

	data, fileErr := os.ReadFile(fallbackFile)
	if fileErr != nil {
		return nil, fmt.Errorf("failed to read OpenAPI spec file %s: %w", fallbackFile, fileErr)
	}
	l.logger.Info().Str("file", fallbackFile).Msg("loaded OpenAPI spec from file")
	return Parse(data)
}

// Parse decodes a JSON or YAML OpenAPI v3 document and resolves its
// internal references. The document is not validated.
func Parse(data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI specification: %w", err)
	}
	return doc, nil
}

// fetch performs the GET against specURL.
func (l *Loader) fetch(ctx context.Context, specURL string) ([]byte, error) {
	if specURL == "" {
		return nil, fmt.Errorf("no spec URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.8")

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spec request failed: %w", err)
	}
	defer resp.Body.Close()

	l.logger.Debug().
		Str("url", specURL).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("spec response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("spec server returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec response: %w", err)
	}
	if len(body) > maxSpecSize {
		return nil, fmt.Errorf("spec response too large (max %d bytes)", maxSpecSize)
	}
	return body, nil
}
