// Package upstream resolves where tool calls are sent: the base URL of the
// REST API, the URL the OpenAPI document is discovered at, and the static
// headers forwarded on every request.
package upstream

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

const (
	// DefaultOrigin is used when neither an override nor the document names a server.
	DefaultOrigin = "http://127.0.0.1:31009"
	// DiscoveryPath is appended to an origin to fetch the OpenAPI document.
	DiscoveryPath = "/docs/openapi.json"
)

// ErrUnsupportedScheme is returned by ParseOrigin for schemes other than http and https.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// ParseOrigin parses raw as an absolute http(s) URL and returns its origin:
// scheme, host and port with any path, query or fragment removed.
// Default ports are dropped, matching the WHATWG origin serialization.
func ParseOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return "", fmt.Errorf("invalid URL %q: missing scheme", raw)
	}
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w %q", ErrUnsupportedScheme, scheme+":")
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, nil
}

// overrideOrigin validates the override and returns its origin, or "" when
// the override is unset or unusable. Unusable overrides are logged.
func overrideOrigin(override string, logger *common.Logger) string {
	if strings.TrimSpace(override) == "" {
		return ""
	}
	origin, err := ParseOrigin(override)
	if err != nil {
		logger.Warn().
			Str("value", override).
			Str("error", err.Error()).
			Msg("base URL override must be an http:// or https:// URL, ignoring and using fallback")
		return ""
	}
	return origin
}

// ResolveBaseURL determines the base URL of the upstream API.
// Priority: a valid override (origin only), then the first server declared
// in the document, then DefaultOrigin.
func ResolveBaseURL(override string, servers openapi3.Servers, logger *common.Logger) string {
	if origin := overrideOrigin(override, logger); origin != "" {
		logger.Info().Str("base_url", origin).Msg("using base URL from override")
		return origin
	}

	if specURL := firstServerURL(servers); specURL != "" {
		logger.Info().Str("base_url", specURL).Msg("using base URL from OpenAPI servers")
		return specURL
	}

	logger.Info().Str("base_url", DefaultOrigin).Msg("using default base URL")
	return DefaultOrigin
}

// ResolveSpecDiscoveryURL returns the URL the OpenAPI document is fetched from:
// the override origin (or DefaultOrigin) followed by DiscoveryPath.
func ResolveSpecDiscoveryURL(override string, logger *common.Logger) string {
	if origin := overrideOrigin(override, logger); origin != "" {
		return origin + DiscoveryPath
	}
	return DefaultOrigin + DiscoveryPath
}

// firstServerURL returns servers[0].url with server variables replaced by
// their defaults and any trailing slash removed.
func firstServerURL(servers openapi3.Servers) string {
	if len(servers) == 0 || servers[0] == nil {
		return ""
	}
	srv := servers[0]
	u := strings.TrimSpace(srv.URL)
	for name, v := range srv.Variables {
		if v == nil {
			continue
		}
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return strings.TrimRight(u, "/")
}
