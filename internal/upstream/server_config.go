package upstream

import (
	"maps"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
)

// ServerConfig is the resolved upstream target. It is built once at
// startup and never mutated afterwards.
type ServerConfig struct {
	BaseURL string
	Headers map[string]string
}

// Resolve builds the ServerConfig from the loaded configuration and the
// OpenAPI document. Headers from the config file are applied first and
// the JSON headers override them per key.
func Resolve(cfg config.UpstreamConfig, doc *openapi3.T, logger *common.Logger) ServerConfig {
	var servers openapi3.Servers
	if doc != nil {
		servers = doc.Servers
	}

	headers := make(map[string]string, len(cfg.Headers))
	maps.Copy(headers, cfg.Headers)
	maps.Copy(headers, ParseHeaders(cfg.HeadersJSON, logger))

	return ServerConfig{
		BaseURL: ResolveBaseURL(cfg.BaseURL, servers, logger),
		Headers: headers,
	}
}
