package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ContentKind is the rendering class of an upstream response.
type ContentKind string

const (
	KindText   ContentKind = "text"
	KindImage  ContentKind = "image"
	KindBinary ContentKind = "binary"
)

const defaultBinaryMIME = "application/octet-stream"

// Classify maps a Content-Type header value to a ContentKind.
func Classify(contentType string) ContentKind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case ct == "":
		return KindBinary
	case strings.Contains(ct, "text/"), strings.Contains(ct, "json"):
		return KindText
	case strings.Contains(ct, "image/"):
		return KindImage
	default:
		return KindBinary
	}
}

// FormatResponse renders resp as exactly one content block.
func FormatResponse(resp *HTTPResponse) *mcp.CallToolResult {
	contentType := resp.ContentType()

	switch Classify(contentType) {
	case KindText:
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(textBody(resp.Body))},
		}
	case KindImage:
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewImageContent(base64.StdEncoding.EncodeToString(resp.Body), mediaType(contentType)),
			},
		}
	default:
		mimeType := mediaType(contentType)
		if mimeType == "" {
			mimeType = defaultBinaryMIME
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewEmbeddedResource(mcp.BlobResourceContents{
					URI:      resp.URL,
					MIMEType: mimeType,
					Blob:     base64.StdEncoding.EncodeToString(resp.Body),
				}),
			},
		}
	}
}

// textBody compacts a JSON body; anything else is returned as is.
func textBody(body []byte) string {
	if json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err == nil {
			return buf.String()
		}
	}
	return string(body)
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return mt
}
