package mcp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// MaxToolNameLength is the longest tool name MCP clients accept.
const MaxToolNameLength = 64

// DefaultNamePrefix namespaces every generated tool name.
const DefaultNamePrefix = "API-"

// hashSuffixLength is the number of hex digits appended to a renamed tool.
const hashSuffixLength = 8

// methodOrder is the enumeration order of operations within a path.
var methodOrder = []string{
	"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE",
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// ConvertOptions controls tool generation.
type ConvertOptions struct {
	NamePrefix string
	Logger     *common.Logger
}

// Conversion is the result of Convert: the tools in enumeration order
// and the lookup table the dispatcher resolves them through.
type Conversion struct {
	Tools  []mcp.Tool
	Lookup *Lookup
}

// Convert walks every path and method of doc and produces one tool per
// operation. A document without paths yields an empty conversion.
func Convert(doc *openapi3.T, opts ConvertOptions) (*Conversion, error) {
	logger := opts.Logger
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	prefix := opts.NamePrefix

	conv := &Conversion{Lookup: newLookup()}
	if doc == nil || doc.Paths == nil || doc.Paths.Len() == 0 {
		return conv, nil
	}

	pathItems := doc.Paths.Map()
	for _, path := range slices.Sorted(maps.Keys(pathItems)) {
		item := pathItems[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			oa := item.GetOperation(method)
			if oa == nil {
				continue
			}

			op := newOperation(method, path, item, oa)
			for _, p := range op.Parameters {
				if p.ArgName != escapeParameterName(p.Name) {
					logger.Warn().
						Str("method", method).
						Str("path", path).
						Str("parameter", p.Name).
						Str("argument", p.ArgName).
						Msg("argument name collision, renaming")
				}
			}
			if err := op.compilePath(); err != nil {
				logger.Warn().Str("method", method).Str("path", path).Err(err).Msg("skipping operation")
				continue
			}

			name := ToolName(prefix, op.OperationID, method, path)
			if conv.Lookup.Has(name) {
				renamed := hashedName(name, method, path)
				logger.Warn().
					Str("name", name).
					Str("renamed", renamed).
					Str("method", method).
					Str("path", path).
					Msg("tool name collision, renaming")
				name = renamed
			}
			if err := conv.Lookup.add(name, op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			conv.Tools = append(conv.Tools, buildTool(name, op))
		}
	}

	logger.Info().Int("tools", len(conv.Tools)).Msg("converted OpenAPI operations")
	return conv, nil
}

// ToolName derives the tool name for an operation. The identifier is the
// operationId, or method and path when the operation declares none.
// Names longer than MaxToolNameLength are truncated.
func ToolName(prefix, operationID, method, path string) string {
	id := operationID
	if id == "" {
		id = fallbackID(method, path)
	}
	return truncateName(prefix + id)
}

func fallbackID(method, path string) string {
	id := nonAlphanumeric.ReplaceAllString(strings.ToLower(method+"_"+path), "_")
	return strings.Trim(id, "_")
}

func truncateName(name string) string {
	return cutAtRune(name, MaxToolNameLength)
}

// cutAtRune shortens s to at most n bytes without splitting a UTF-8 sequence.
func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// hashedName disambiguates a colliding name with a short hash of the
// operation's method and path.
func hashedName(name, method, path string) string {
	sum := sha256.Sum256([]byte(method + " " + path))
	suffix := "-" + hex.EncodeToString(sum[:])[:hashSuffixLength]
	return cutAtRune(name, MaxToolNameLength-len(suffix)) + suffix
}

func newOperation(method, path string, item *openapi3.PathItem, oa *openapi3.Operation) *Operation {
	op := &Operation{
		Method:      method,
		Path:        path,
		OperationID: oa.OperationID,
		Summary:     oa.Summary,
		Description: oa.Description,
		Parameters:  collectParameters(item.Parameters, oa.Parameters),
		Responses:   collectResponses(oa.Responses),
	}

	if oa.RequestBody != nil && oa.RequestBody.Value != nil {
		rb := oa.RequestBody.Value
		body := &RequestBody{Required: rb.Required, Schema: map[string]any{}}
		if mt := bodyMediaType(rb.Content); mt != nil && mt.Schema != nil {
			body.Schema = schemaProperty(mt.Schema)
		}
		props, _ := body.Schema["properties"].(map[string]any)
		body.Flattened = body.Schema["type"] == "object" && len(props) > 0
		op.RequestBody = body
	}

	properties, required := buildInputSchema(op.Parameters, op.RequestBody)
	op.inputSchema = map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		op.inputSchema["required"] = required
	}
	return op
}

// collectParameters merges path-level and operation-level parameters.
// Operation-level parameters override path-level ones with the same
// name and location.
func collectParameters(pathParams, opParams openapi3.Parameters) []Parameter {
	var out []Parameter
	index := map[string]int{}
	for _, list := range []openapi3.Parameters{pathParams, opParams} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			schema := map[string]any{}
			if p.Schema != nil {
				schema = schemaProperty(p.Schema)
			}
			if _, ok := schema["type"]; !ok {
				schema["type"] = "string"
			}
			if p.Description != "" {
				schema["description"] = p.Description
			}
			param := Parameter{
				Name:     p.Name,
				ArgName:  escapeParameterName(p.Name),
				In:       p.In,
				Required: p.Required || p.In == InPath,
				Schema:   schema,
			}
			key := p.In + ":" + p.Name
			if i, ok := index[key]; ok {
				out[i] = param
				continue
			}
			index[key] = len(out)
			out = append(out, param)
		}
	}
	return uniqueArgNames(out)
}

// uniqueArgNames renames later parameters whose escaped argument name is
// already taken, e.g. "filter[a]" and "filter_a_", or the same name in two
// locations. The location is appended first, then a counter.
func uniqueArgNames(params []Parameter) []Parameter {
	taken := make(map[string]bool, len(params))
	for i := range params {
		name := params[i].ArgName
		if taken[name] {
			name = params[i].ArgName + "_" + params[i].In
			for n := 2; taken[name]; n++ {
				name = fmt.Sprintf("%s_%s%d", params[i].ArgName, params[i].In, n)
			}
			params[i].ArgName = name
		}
		taken[name] = true
	}
	return params
}

func collectResponses(responses *openapi3.Responses) map[string]Response {
	out := map[string]Response{}
	if responses == nil {
		return out
	}
	for status, ref := range responses.Map() {
		if ref == nil || ref.Value == nil {
			continue
		}
		r := Response{}
		if ref.Value.Description != nil {
			r.Description = *ref.Value.Description
		}
		r.ContentTypes = slices.Sorted(maps.Keys(ref.Value.Content))
		out[status] = r
	}
	return out
}

func buildTool(name string, op *Operation) mcp.Tool {
	readOnly := op.Method == "GET" || op.Method == "HEAD" || op.Method == "OPTIONS"
	idempotent := readOnly || op.Method == "PUT" || op.Method == "DELETE"

	opts := []mcp.ToolOption{
		mcp.WithDescription(toolDescription(op)),
		mcp.WithReadOnlyHintAnnotation(readOnly),
		mcp.WithDestructiveHintAnnotation(op.Method == "DELETE"),
		mcp.WithIdempotentHintAnnotation(idempotent),
		mcp.WithOpenWorldHintAnnotation(true),
	}
	if op.Summary != "" {
		opts = append(opts, mcp.WithTitleAnnotation(op.Summary))
	}
	tool := mcp.NewTool(name, opts...)

	tool.InputSchema.Type = "object"
	tool.InputSchema.Properties, _ = op.inputSchema["properties"].(map[string]any)
	tool.InputSchema.Required, _ = op.inputSchema["required"].([]string)
	return tool
}

// toolDescription joins summary, description and a list of the
// documented responses.
func toolDescription(op *Operation) string {
	var parts []string
	if op.Summary != "" {
		parts = append(parts, op.Summary)
	}
	if op.Description != "" && op.Description != op.Summary {
		parts = append(parts, op.Description)
	}
	if len(parts) == 0 {
		parts = append(parts, op.Method+" "+op.Path)
	}

	if len(op.Responses) > 0 {
		var sb strings.Builder
		sb.WriteString("Responses:")
		for _, status := range slices.Sorted(maps.Keys(op.Responses)) {
			sb.WriteString("\n- ")
			sb.WriteString(status)
			if desc := op.Responses[status].Description; desc != "" {
				sb.WriteString(": ")
				sb.WriteString(desc)
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}
