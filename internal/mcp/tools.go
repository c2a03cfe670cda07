package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// ToolSummary is the listing shape served by /api/tools and -dry-run.
type ToolSummary struct {
	Name        string         `json:"name" yaml:"name"`
	Method      string         `json:"method" yaml:"method"`
	Path        string         `json:"path" yaml:"path"`
	OperationID string         `json:"operation_id,omitempty" yaml:"operation_id,omitempty"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// Summaries lists the converted tools in enumeration order.
func (c *Conversion) Summaries() []ToolSummary {
	out := make([]ToolSummary, 0, len(c.Tools))
	for _, tool := range c.Tools {
		op, ok := c.Lookup.Get(tool.Name)
		if !ok {
			continue
		}
		out = append(out, ToolSummary{
			Name:        tool.Name,
			Method:      op.Method,
			Path:        op.Path,
			OperationID: op.OperationID,
			Description: tool.Description,
			InputSchema: op.InputSchema(),
		})
	}
	return out
}

// NewServer creates an MCP server exposing every converted tool.
func NewServer(name, version string, conv *Conversion, d *Dispatcher, logger *common.Logger) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
	)
	RegisterTools(s, conv, d, logger)
	return s
}

// RegisterTools adds one handler per converted tool and returns the count.
func RegisterTools(s *server.MCPServer, conv *Conversion, d *Dispatcher, logger *common.Logger) int {
	for _, tool := range conv.Tools {
		s.AddTool(tool, ToolHandler(d, tool.Name, logger))
	}
	return len(conv.Tools)
}

// ToolHandler dispatches a call for the named tool and formats the
// upstream response. Failures are returned as errors so the MCP runtime
// rejects the call.
func ToolHandler(d *Dispatcher, name string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := logger.WithCorrelationId(uuid.New().String())

		resp, err := d.CallTool(ctx, name, r.GetArguments())
		if err != nil {
			log.Warn().Str("tool", name).Err(err).Msg("tool call failed")
			return nil, err
		}

		log.Info().Str("tool", name).Int("status", resp.StatusCode).Msg("tool call")
		return FormatResponse(resp), nil
	}
}
