package handlers

import (
	"net/http"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/mcp"
)

// ToolsHandler lists the generated MCP tools.
type ToolsHandler struct {
	logger *common.Logger
	tools  func() []mcp.ToolSummary
}

// NewToolsHandler creates a tools handler backed by the given listing function.
func NewToolsHandler(logger *common.Logger, tools func() []mcp.ToolSummary) *ToolsHandler {
	return &ToolsHandler{logger: logger, tools: tools}
}

type toolEntry struct {
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// ServeHTTP handles GET /api/tools.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var summaries []mcp.ToolSummary
	if h.tools != nil {
		summaries = h.tools()
	}
	entries := make([]toolEntry, 0, len(summaries))
	for _, s := range summaries {
		entries = append(entries, toolEntry{
			Name:        s.Name,
			Method:      s.Method,
			Path:        s.Path,
			Description: s.Description,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"tools": entries,
	})
}
