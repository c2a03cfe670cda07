package config

import "github.com/bobmcallan/openapi-mcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "openapi-mcp",
			Port: 4243,
			Host: "localhost",
		},
		Upstream: UpstreamConfig{
			Headers: map[string]string{},
			Timeout: "300s",
		},
		Spec: SpecConfig{
			FallbackFile: "openapi.json",
		},
		MCP: MCPConfig{
			NamePrefix: "API-",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/openapi-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
