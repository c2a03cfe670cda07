package upstream

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// ParseHeaders decodes a JSON object of static headers. An empty input
// yields an empty map. Invalid JSON or a non-object value is logged and
// yields an empty map. Scalar values are converted to strings; nested
// values are skipped.
func ParseHeaders(raw string, logger *common.Logger) map[string]string {
	headers := map[string]string{}
	if raw == "" {
		return headers
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		logger.Warn().Str("error", err.Error()).Msg("failed to parse headers JSON, ignoring")
		return headers
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		logger.Warn().Str("type", jsonTypeName(decoded)).Msg("headers must be a JSON object, ignoring")
		return headers
	}

	for name, v := range obj {
		switch v.(type) {
		case string, float64, bool:
			headers[name] = cast.ToString(v)
		default:
			logger.Warn().Str("header", name).Str("type", jsonTypeName(v)).Msg("skipping header with non-scalar value")
		}
	}
	return headers
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
