package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// Environment variables read by applyEnvOverrides.
const (
	EnvBaseURL       = "OPENAPI_MCP_BASE_URL"
	EnvBaseURLLegacy = "ANYTYPE_API_BASE_URL"
	EnvHeaders       = "OPENAPI_MCP_HEADERS"
	EnvSpec          = "OPENAPI_MCP_SPEC"
	EnvServerPort    = "OPENAPI_MCP_SERVER_PORT"
	EnvServerHost    = "OPENAPI_MCP_SERVER_HOST"
	EnvLogLevel      = "OPENAPI_MCP_LOG_LEVEL"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig         `toml:"server"`
	Upstream UpstreamConfig       `toml:"upstream"`
	Spec     SpecConfig           `toml:"spec"`
	MCP      MCPConfig            `toml:"mcp"`
	Logging  common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains MCP server and HTTP listener settings.
type ServerConfig struct {
	Name string `toml:"name"`
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// UpstreamConfig describes the REST API the tools are dispatched to.
// BaseURL and HeadersJSON are raw override values; they are validated
// and resolved by the upstream package.
type UpstreamConfig struct {
	BaseURL     string            `toml:"base_url"`
	Headers     map[string]string `toml:"headers"`
	HeadersJSON string            `toml:"headers_json"`
	Timeout     string            `toml:"timeout"`
}

// GetTimeout parses and returns the upstream request timeout.
func (c *UpstreamConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 300 * time.Second
	}
	return d
}

// SpecConfig controls where the OpenAPI document is loaded from.
// Source is a URL or file path; when empty the discovery URL derived
// from the upstream base URL is used. FallbackFile is read when the
// network fetch fails.
type SpecConfig struct {
	Source       string `toml:"source"`
	FallbackFile string `toml:"fallback_file"`
}

// MCPConfig contains tool generation settings.
type MCPConfig struct {
	NamePrefix        string `toml:"name_prefix"`
	ValidateArguments bool   `toml:"validate_arguments"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies OPENAPI_MCP_* environment variable overrides to config.
// ANYTYPE_API_BASE_URL is honoured only when OPENAPI_MCP_BASE_URL is unset.
func applyEnvOverrides(config *Config) {
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		config.Upstream.BaseURL = baseURL
	} else if legacy := os.Getenv(EnvBaseURLLegacy); legacy != "" {
		config.Upstream.BaseURL = legacy
	}
	if headers := os.Getenv(EnvHeaders); headers != "" {
		config.Upstream.HeadersJSON = headers
	}
	if spec := os.Getenv(EnvSpec); spec != "" {
		config.Spec.Source = spec
	}
	if port := os.Getenv(EnvServerPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv(EnvServerHost); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, spec string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if spec != "" {
		config.Spec.Source = spec
	}
}

// Validate returns a list of configuration problems. An empty list means
// the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Name == "" {
		issues = append(issues, "server.name must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Upstream.Timeout != "" {
		if _, err := time.ParseDuration(c.Upstream.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("upstream.timeout %q is not a duration", c.Upstream.Timeout))
		}
	}
	if len(c.MCP.NamePrefix) >= 64 {
		issues = append(issues, "mcp.name_prefix must be shorter than 64 characters")
	}
	return issues
}
