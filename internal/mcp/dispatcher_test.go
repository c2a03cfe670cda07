package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// recordingExecutor captures the last request and replies with a canned response.
type recordingExecutor struct {
	last *HTTPRequest
	resp *HTTPResponse
	err  error
}

func (e *recordingExecutor) Execute(_ context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	if e.resp != nil {
		return e.resp, nil
	}
	return &HTTPResponse{StatusCode: 200}, nil
}

func newTestDispatcher(t *testing.T, opts DispatcherOptions) (*Dispatcher, *recordingExecutor) {
	t.Helper()
	conv := convertDoc(t, petstoreSpecJSON)
	exec := &recordingExecutor{}
	return NewDispatcher(conv.Lookup, exec, common.NewSilentLogger(), opts), exec
}

func TestDispatcher_MethodNotFound(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	_, err := d.CallTool(t.Context(), "nonExistentMethod", nil)
	if !errors.Is(err, ErrMethodNotFound) {
		t.Fatalf("expected ErrMethodNotFound, got %v", err)
	}
	if err.Error() != "method nonExistentMethod not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if exec.last != nil {
		t.Error("expected no upstream call")
	}
}

func TestDispatcher_QueryAndHeaderParams(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	_, err := d.CallTool(t.Context(), "API-listPets", map[string]any{
		"limit":        float64(20),
		"filter_tag_":  "dog",
		"X-Request-Id": "req-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := exec.last
	if req.Method != "GET" || req.Path != "/pets" {
		t.Errorf("expected GET /pets, got %s %s", req.Method, req.Path)
	}
	if req.Query.Get("limit") != "20" {
		t.Errorf("expected limit=20, got %q", req.Query.Get("limit"))
	}
	if req.Query.Get("filter[tag]") != "dog" {
		t.Errorf("expected escaped argument mapped back to filter[tag], got %v", req.Query)
	}
	if req.Headers.Get("X-Request-Id") != "req-1" {
		t.Errorf("expected header parameter, got %v", req.Headers)
	}
	if req.HasBody {
		t.Error("expected no body for GET")
	}
}

func TestDispatcher_ArrayQueryRepeatsKey(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	if _, err := d.CallTool(t.Context(), "API-listPets", map[string]any{"filter[tag]": []any{"a", "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exec.last.Query["filter[tag]"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected repeated query values, got %v", got)
	}
}

func TestDispatcher_PathParamEncoded(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	if _, err := d.CallTool(t.Context(), "API-showPetById", map[string]any{"petId": "a b/c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.last.Path != "/pets/a%20b%2Fc" {
		t.Errorf("expected encoded path, got %q", exec.last.Path)
	}
}

func TestDispatcher_MissingPathParam(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	_, err := d.CallTool(t.Context(), "API-showPetById", map[string]any{})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
	if !strings.Contains(err.Error(), "petId") {
		t.Errorf("expected error to name petId, got %q", err.Error())
	}
	if exec.last != nil {
		t.Error("expected no upstream call")
	}
}

func TestDispatcher_BodyFromUnclaimedArguments(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	if _, err := d.CallTool(t.Context(), "API-createPet", map[string]any{"name": "Rex", "tag": "dog"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exec.last.HasBody {
		t.Fatal("expected body")
	}
	data, _ := json.Marshal(exec.last.Body)
	if string(data) != `{"name":"Rex","tag":"dog"}` {
		t.Errorf("unexpected body %s", data)
	}
}

func TestDispatcher_BodyFromRequestBodyArgument(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	_, err := d.CallTool(t.Context(), "API-uploadPhoto", map[string]any{
		"petId":             "7",
		RequestBodyArgument: []any{"a.png", "b.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.last.Path != "/pets/7/photo" || exec.last.Method != "PUT" {
		t.Errorf("expected PUT /pets/7/photo, got %s %s", exec.last.Method, exec.last.Path)
	}
	data, _ := json.Marshal(exec.last.Body)
	if string(data) != `["a.png","b.png"]` {
		t.Errorf("unexpected body %s", data)
	}
}

func TestDispatcher_OptionalBodyOmitted(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})

	if _, err := d.CallTool(t.Context(), "API-uploadPhoto", map[string]any{"petId": "7"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.last.HasBody {
		t.Errorf("expected no body, got %v", exec.last.Body)
	}
}

func TestDispatcher_CookieParam(t *testing.T) {
	conv := convertDoc(t, `{
		"openapi": "3.0.0",
		"info": {"title": "Cookie", "version": "1"},
		"paths": {"/me": {"get": {"operationId": "me", "parameters": [
			{"name": "session", "in": "cookie", "schema": {"type": "string"}}
		], "responses": {"200": {"description": "ok"}}}}}
	}`)
	exec := &recordingExecutor{}
	d := NewDispatcher(conv.Lookup, exec, nil, DispatcherOptions{})

	if _, err := d.CallTool(t.Context(), "API-me", map[string]any{"session": "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.last.Cookies) != 1 || exec.last.Cookies[0].Name != "session" || exec.last.Cookies[0].Value != "abc" {
		t.Errorf("expected session cookie, got %v", exec.last.Cookies)
	}
}

func TestDispatcher_UpstreamErrorUnmodified(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{})
	upstreamErr := &HTTPError{StatusCode: 503, Message: "unavailable"}
	exec.err = upstreamErr

	_, err := d.CallTool(t.Context(), "API-listPets", nil)
	if err != upstreamErr {
		t.Fatalf("expected upstream error to be returned unchanged, got %v", err)
	}
}

func TestDispatcher_ValidateArguments(t *testing.T) {
	d, exec := newTestDispatcher(t, DispatcherOptions{ValidateArguments: true})

	_, err := d.CallTool(t.Context(), "API-createPet", map[string]any{"tag": "dog"})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for missing name, got %v", err)
	}
	if exec.last != nil {
		t.Error("expected no upstream call")
	}

	_, err = d.CallTool(t.Context(), "API-listPets", map[string]any{"limit": "ten"})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for wrong type, got %v", err)
	}

	if _, err := d.CallTool(t.Context(), "API-createPet", map[string]any{"name": "Rex"}); err != nil {
		t.Fatalf("expected valid arguments to pass, got %v", err)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{float64(3), "3"},
		{1.5, "1.5"},
		{true, "true"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{"a", 2}, `["a",2]`},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const clashingParamsSpecJSON = `{
	"openapi": "3.0.0",
	"info": {"title": "Clash", "version": "1.0.0"},
	"paths": {
		"/items": {
			"get": {
				"operationId": "listItems",
				"parameters": [
					{"name": "filter[a]", "in": "query", "schema": {"type": "string"}},
					{"name": "filter_a_", "in": "query", "schema": {"type": "string"}},
					{"name": "id", "in": "query", "schema": {"type": "string"}},
					{"name": "id", "in": "header", "schema": {"type": "string"}}
				],
				"responses": {"200": {"description": "ok"}}
			}
		}
	}
}`

func TestConvert_ClashingArgumentNamesAreRenamed(t *testing.T) {
	conv := convertDoc(t, clashingParamsSpecJSON)
	op, ok := conv.Lookup.Get("API-listItems")
	if !ok {
		t.Fatal("expected API-listItems")
	}

	got := map[string]string{}
	for _, p := range op.Parameters {
		got[p.In+":"+p.Name] = p.ArgName
	}
	want := map[string]string{
		"query:filter[a]": "filter_a_",
		"query:filter_a_": "filter_a__query",
		"query:id":        "id",
		"header:id":       "id_header",
	}
	for key, arg := range want {
		if got[key] != arg {
			t.Errorf("%s: expected argument %q, got %q", key, arg, got[key])
		}
	}

	props, _ := op.InputSchema()["properties"].(map[string]any)
	if len(props) != 4 {
		t.Errorf("expected 4 distinct properties, got %v", props)
	}
}

func TestDispatcher_ClashingArgumentNames(t *testing.T) {
	conv := convertDoc(t, clashingParamsSpecJSON)
	exec := &recordingExecutor{}
	d := NewDispatcher(conv.Lookup, exec, common.NewSilentLogger(), DispatcherOptions{})

	_, err := d.CallTool(t.Context(), "API-listItems", map[string]any{
		"filter_a_":       "bracket",
		"filter_a__query": "literal",
		"id":              "q1",
		"id_header":       "h1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := exec.last
	if req.Query.Get("filter[a]") != "bracket" || req.Query.Get("filter_a_") != "literal" {
		t.Errorf("unexpected query %v", req.Query)
	}
	if req.Query.Get("id") != "q1" || req.Headers.Get("id") != "h1" {
		t.Errorf("unexpected id mapping: query=%v headers=%v", req.Query, req.Headers)
	}

	_, err = d.CallTool(t.Context(), "API-listItems", map[string]any{"filter_a_": "bracket"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vals, ok := exec.last.Query["filter_a_"]; ok {
		t.Errorf("literal parameter must not claim the bracket argument, got %v", vals)
	}
}
