package mcp

import (
	"maps"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// escapeParameterName converts parameter names with brackets to names
// accepted by MCP clients: "filter[created_at]" becomes "filter_created_at_".
// The trailing underscore marks the name as escaped.
func escapeParameterName(name string) string {
	if !strings.ContainsAny(name, "[]") {
		return name
	}
	escaped := strings.NewReplacer("[", "_", "]", "_").Replace(name)
	if !strings.HasSuffix(escaped, "_") {
		escaped += "_"
	}
	return escaped
}

// schemaProperty translates an OpenAPI schema into a JSON-schema map.
// References are already resolved by the loader; recursive schemas are
// cut at the first repeated node.
func schemaProperty(ref *openapi3.SchemaRef) map[string]any {
	return translateSchema(ref, map[*openapi3.Schema]bool{})
}

func translateSchema(ref *openapi3.SchemaRef, seen map[*openapi3.Schema]bool) map[string]any {
	prop := map[string]any{}
	if ref == nil || ref.Value == nil {
		return prop
	}
	val := ref.Value
	if seen[val] {
		if val.Type != nil && len(*val.Type) > 0 {
			prop["type"] = (*val.Type)[0]
		}
		return prop
	}
	seen[val] = true
	defer delete(seen, val)

	for _, sub := range val.AllOf {
		mergeSchema(prop, translateSchema(sub, seen))
	}
	if len(val.OneOf) > 0 {
		prop["oneOf"] = translateList(val.OneOf, seen)
	}
	if len(val.AnyOf) > 0 {
		prop["anyOf"] = translateList(val.AnyOf, seen)
	}

	if val.Type != nil && len(*val.Type) > 0 {
		prop["type"] = (*val.Type)[0]
	}
	if val.Format != "" {
		prop["format"] = val.Format
	}
	if val.Description != "" {
		prop["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		prop["enum"] = val.Enum
	}
	if val.Default != nil {
		prop["default"] = val.Default
	}
	if val.Example != nil {
		prop["example"] = val.Example
	}
	if val.Nullable {
		prop["nullable"] = true
	}
	if val.Pattern != "" {
		prop["pattern"] = val.Pattern
	}
	if val.Min != nil {
		prop["minimum"] = *val.Min
	}
	if val.Max != nil {
		prop["maximum"] = *val.Max
	}
	if val.MinLength > 0 {
		prop["minLength"] = val.MinLength
	}
	if val.MaxLength != nil {
		prop["maxLength"] = *val.MaxLength
	}

	if len(val.Properties) > 0 {
		props, _ := prop["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		for name, sub := range val.Properties {
			props[name] = translateSchema(sub, seen)
		}
		prop["properties"] = props
		if _, ok := prop["type"]; !ok {
			prop["type"] = "object"
		}
	}
	if len(val.Required) > 0 {
		prop["required"] = appendUnique(requiredList(prop), val.Required...)
	}
	if val.Items != nil {
		prop["items"] = translateSchema(val.Items, seen)
	}
	return prop
}

func translateList(refs openapi3.SchemaRefs, seen map[*openapi3.Schema]bool) []any {
	out := make([]any, 0, len(refs))
	for _, sub := range refs {
		out = append(out, translateSchema(sub, seen))
	}
	return out
}

// mergeSchema folds an allOf member into dst. Properties and required
// lists are unioned; other keys from src overwrite.
func mergeSchema(dst, src map[string]any) {
	for k, v := range src {
		switch k {
		case "properties":
			props, _ := dst["properties"].(map[string]any)
			if props == nil {
				props = map[string]any{}
			}
			for name, p := range v.(map[string]any) {
				props[name] = p
			}
			dst["properties"] = props
		case "required":
			dst["required"] = appendUnique(requiredList(dst), v.([]string)...)
		default:
			dst[k] = v
		}
	}
}

func requiredList(schema map[string]any) []string {
	req, _ := schema["required"].([]string)
	return req
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}

// bodyMediaType picks the media type used for the request body schema:
// application/json, then any other JSON media type, then the first one.
func bodyMediaType(content openapi3.Content) *openapi3.MediaType {
	if len(content) == 0 {
		return nil
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt
	}
	keys := slices.Sorted(maps.Keys(content))
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k), "json") {
			return content[k]
		}
	}
	return content[keys[0]]
}

// buildInputSchema merges parameters and the request body into one
// object schema. It returns the properties and the required list.
func buildInputSchema(params []Parameter, body *RequestBody) (map[string]any, []string) {
	properties := map[string]any{}
	var required []string

	for _, p := range params {
		properties[p.ArgName] = p.Schema
		if p.Required {
			required = appendUnique(required, p.ArgName)
		}
	}

	if body == nil {
		return properties, required
	}

	if body.Flattened {
		bodyProps, _ := body.Schema["properties"].(map[string]any)
		for name, p := range bodyProps {
			if _, clash := properties[name]; clash {
				continue
			}
			properties[name] = p
		}
		if body.Required {
			for _, name := range requiredList(body.Schema) {
				if isParameterArg(params, name) {
					continue
				}
				required = appendUnique(required, name)
			}
		}
		return properties, required
	}

	prop := map[string]any{}
	for k, v := range body.Schema {
		prop[k] = v
	}
	if _, ok := prop["description"]; !ok {
		prop["description"] = "The request body."
	}
	properties[RequestBodyArgument] = prop
	if body.Required {
		required = appendUnique(required, RequestBodyArgument)
	}
	return properties, required
}

func isParameterArg(params []Parameter, arg string) bool {
	for _, p := range params {
		if p.ArgName == arg {
			return true
		}
	}
	return false
}
