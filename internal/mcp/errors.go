package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMethodNotFound is returned when a tool name is not in the lookup table.
	ErrMethodNotFound = errors.New("method not found")
	// ErrInvalidArguments is returned when tool arguments cannot be mapped
	// onto the operation.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrResponseTooLarge is returned when an upstream body exceeds the read limit.
	ErrResponseTooLarge = errors.New("upstream response too large")
)

// MethodNotFoundError names the tool that could not be resolved.
// It matches ErrMethodNotFound with errors.Is.
type MethodNotFoundError struct {
	Name string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method %s not found", e.Name)
}

func (e *MethodNotFoundError) Is(target error) bool {
	return target == ErrMethodNotFound
}

// HTTPError is returned by the HTTP client when the upstream API answers
// with a status outside 2xx.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, body)
}

// parseErrorResponse extracts a meaningful error message from an HTTP error response.
func parseErrorResponse(statusCode int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: statusCode, Body: body}
	var errResp struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		switch v := errResp.Error.(type) {
		case string:
			httpErr.Message = v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				httpErr.Message = msg
			}
		}
		if httpErr.Message == "" {
			httpErr.Message = errResp.Message
		}
	}
	return httpErr
}
