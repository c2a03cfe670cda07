package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// Executor performs a resolved upstream request. HTTPClient implements it.
type Executor interface {
	Execute(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// DispatcherOptions controls argument handling.
type DispatcherOptions struct {
	// ValidateArguments checks arguments against the tool input schema
	// before any request is built.
	ValidateArguments bool
}

// Dispatcher routes tool calls to upstream operations.
type Dispatcher struct {
	lookup   *Lookup
	executor Executor
	logger   *common.Logger
	schemas  map[string]*gojsonschema.Schema
}

// NewDispatcher creates a dispatcher over a read-only lookup table.
func NewDispatcher(lookup *Lookup, executor Executor, logger *common.Logger, opts DispatcherOptions) *Dispatcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	d := &Dispatcher{
		lookup:   lookup,
		executor: executor,
		logger:   logger,
	}
	if opts.ValidateArguments {
		d.schemas = compileSchemas(lookup, logger)
	}
	return d
}

func compileSchemas(lookup *Lookup, logger *common.Logger) map[string]*gojsonschema.Schema {
	schemas := make(map[string]*gojsonschema.Schema, lookup.Len())
	for _, name := range lookup.Names() {
		op, _ := lookup.Get(name)
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(op.InputSchema()))
		if err != nil {
			logger.Warn().Str("tool", name).Err(err).Msg("input schema not compilable, arguments will not be validated")
			continue
		}
		schemas[name] = schema
	}
	return schemas
}

// Lookup returns the table the dispatcher resolves tool names through.
func (d *Dispatcher) Lookup() *Lookup {
	return d.lookup
}

// CallTool resolves name, maps args onto the operation and executes it.
// Upstream errors are returned unchanged.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) (*HTTPResponse, error) {
	op, ok := d.lookup.Get(name)
	if !ok {
		return nil, &MethodNotFoundError{Name: name}
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := d.validate(name, args); err != nil {
		return nil, err
	}

	req, err := BuildRequest(op, args)
	if err != nil {
		return nil, err
	}

	d.logger.Debug().Str("tool", name).Str("method", req.Method).Str("path", req.Path).Msg("dispatching tool call")
	return d.executor.Execute(ctx, req)
}

func (d *Dispatcher) validate(name string, args map[string]any) error {
	schema, ok := d.schemas[name]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
}

// BuildRequest maps tool arguments onto op. Path parameters are
// substituted into the template, query parameters become the query
// string, header and cookie parameters are attached to the request.
// The body is the requestBody argument when present, otherwise every
// argument no parameter claimed.
func BuildRequest(op *Operation, args map[string]any) (*HTTPRequest, error) {
	req := &HTTPRequest{
		Method:  op.Method,
		Query:   url.Values{},
		Headers: http.Header{},
	}
	claimed := map[string]bool{}
	pathValues := map[string]string{}

	for _, p := range op.Parameters {
		key := p.ArgName
		v, ok := args[key]
		if !ok && p.Name != p.ArgName && !isParameterArg(op.Parameters, p.Name) {
			key = p.Name
			v, ok = args[key]
		}
		if !ok || v == nil {
			if p.In == InPath {
				return nil, fmt.Errorf("%w: missing path parameter %s", ErrInvalidArguments, p.Name)
			}
			continue
		}
		claimed[key] = true

		switch p.In {
		case InPath:
			pathValues[p.Name] = stringify(v)
		case InQuery:
			if items, isList := v.([]any); isList {
				for _, item := range items {
					req.Query.Add(p.Name, stringify(item))
				}
				continue
			}
			req.Query.Add(p.Name, stringify(v))
		case InHeader:
			req.Headers.Set(p.Name, stringify(v))
		case InCookie:
			req.Cookies = append(req.Cookies, &http.Cookie{Name: p.Name, Value: stringify(v)})
		}
	}

	path, err := op.expandPath(pathValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	req.Path = path

	if op.RequestBody == nil {
		return req, nil
	}
	if v, ok := args[RequestBodyArgument]; ok && !claimed[RequestBodyArgument] {
		req.Body = v
		req.HasBody = true
		return req, nil
	}
	body := map[string]any{}
	for k, v := range args {
		if !claimed[k] {
			body[k] = v
		}
	}
	if len(body) > 0 || op.RequestBody.Required {
		req.Body = body
		req.HasBody = true
	}
	return req, nil
}

// stringify renders a scalar argument for a path, query, header or
// cookie value. Composite values are JSON encoded.
func stringify(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return cast.ToString(v)
}
