package app

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/handlers"
	"github.com/bobmcallan/openapi-mcp/internal/mcp"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/upstream"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Document   *openapi3.T
	Conversion *mcp.Conversion
	Upstream   upstream.ServerConfig
	Client     *mcp.HTTPClient
	Dispatcher *mcp.Dispatcher
	MCPServer  *mcpserver.MCPServer

	// HTTP handlers
	MCPHandler     *mcp.Handler
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ToolsHandler   *handlers.ToolsHandler
}

// New loads the OpenAPI document and initializes the application.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	doc, err := LoadDocument(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewFromDocument(cfg, logger, doc)
}

// NewFromDocument initializes the application from an already loaded document.
// The tool lookup and upstream configuration are built once here and are
// read-only afterwards.
func NewFromDocument(cfg *config.Config, logger *common.Logger, doc *openapi3.T) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Document: doc,
	}

	conv, err := mcp.Convert(doc, mcp.ConvertOptions{
		NamePrefix: cfg.MCP.NamePrefix,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert OpenAPI document: %w", err)
	}
	a.Conversion = conv

	a.Upstream = upstream.Resolve(cfg.Upstream, doc, logger)
	a.Client = mcp.NewHTTPClient(a.Upstream, logger, cfg.Upstream.GetTimeout())
	a.Dispatcher = mcp.NewDispatcher(conv.Lookup, a.Client, logger, mcp.DispatcherOptions{
		ValidateArguments: cfg.MCP.ValidateArguments,
	})
	a.MCPServer = mcp.NewServer(cfg.Server.Name, config.GetVersion(), conv, a.Dispatcher, logger)

	a.initHandlers()

	logger.Info().
		Int("tools", len(conv.Tools)).
		Str("base_url", a.Upstream.BaseURL).
		Int("headers", len(a.Upstream.Headers)).
		Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.MCPHandler = mcp.NewHandler(a.MCPServer, a.Conversion, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, len(a.Conversion.Tools))
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ToolsHandler = handlers.NewToolsHandler(a.Logger, a.MCPHandler.Tools)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// LoadDocument acquires the OpenAPI document. A URL source is fetched
// with the fallback file as backup. A file source is the backup for the
// discovery URL derived from the upstream base URL. Without a source the
// discovery URL and the default fallback file are used.
func LoadDocument(ctx context.Context, cfg *config.Config, logger *common.Logger) (*openapi3.T, error) {
	specURL, fallback := SpecSources(cfg, logger)

	loader := openapi.NewLoader(logger, cfg.Upstream.GetTimeout())
	doc, err := loader.Load(ctx, specURL, fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	return doc, nil
}

// SpecSources returns the URL and fallback file LoadDocument will try.
func SpecSources(cfg *config.Config, logger *common.Logger) (string, string) {
	source := cfg.Spec.Source
	switch {
	case openapi.IsURL(source):
		return source, cfg.Spec.FallbackFile
	case source != "":
		return upstream.ResolveSpecDiscoveryURL(cfg.Upstream.BaseURL, logger), source
	default:
		return upstream.ResolveSpecDiscoveryURL(cfg.Upstream.BaseURL, logger), cfg.Spec.FallbackFile
	}
}

// Close releases idle upstream connections.
func (a *App) Close() error {
	if a.Client != nil {
		a.Client.Close()
	}
	return nil
}
