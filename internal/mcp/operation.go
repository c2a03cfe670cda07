package mcp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/yosida95/uritemplate/v3"
)

// Parameter locations recognised by the dispatcher.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// RequestBodyArgument is the reserved argument key that carries an explicit
// request body. When absent, unclaimed arguments form the body.
const RequestBodyArgument = "requestBody"

// Parameter is one OpenAPI parameter of an operation.
type Parameter struct {
	Name     string // name as declared in the document
	ArgName  string // name exposed in the tool input schema
	In       string
	Required bool
	Schema   map[string]any
}

// RequestBody describes the JSON body an operation accepts.
type RequestBody struct {
	Required bool
	// Flattened is true when the body's object properties are exposed as
	// top-level tool arguments rather than under RequestBodyArgument.
	Flattened bool
	Schema    map[string]any
}

// Response is one entry of an operation's responses map.
type Response struct {
	Description  string
	ContentTypes []string
}

// Operation is the lookup entry for one tool: everything the dispatcher
// needs to turn a tool call into an HTTP request.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   map[string]Response

	inputSchema  map[string]any
	pathTemplate *uritemplate.Template
	pathVars     map[string]string // template variable -> parameter name
}

// InputSchema returns the JSON schema of the tool arguments.
func (op *Operation) InputSchema() map[string]any {
	return op.inputSchema
}

var pathParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// compilePath prepares the path template for expansion. OpenAPI parameter
// names may contain characters that are not valid URI template variable
// names, so each placeholder is renamed to a positional variable.
func (op *Operation) compilePath() error {
	vars := map[string]string{}
	i := 0
	rewritten := pathParamPattern.ReplaceAllStringFunc(op.Path, func(m string) string {
		name := m[1 : len(m)-1]
		v := "p" + strconv.Itoa(i)
		i++
		vars[v] = name
		return "{" + v + "}"
	})

	tmpl, err := uritemplate.New(rewritten)
	if err != nil {
		return fmt.Errorf("invalid path template %q: %w", op.Path, err)
	}
	op.pathTemplate = tmpl
	op.pathVars = vars
	return nil
}

// expandPath substitutes path parameter values into the template.
// Values are percent-encoded.
func (op *Operation) expandPath(values map[string]string) (string, error) {
	if op.pathTemplate == nil {
		if err := op.compilePath(); err != nil {
			return "", err
		}
	}
	tv := uritemplate.Values{}
	for v, name := range op.pathVars {
		if val, ok := values[name]; ok {
			tv.Set(v, uritemplate.String(val))
		}
	}
	return op.pathTemplate.Expand(tv)
}

// ErrDuplicateTool is returned when two operations resolve to the same tool name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Lookup maps tool names to operations. Keys are unique and the table is
// read-only once Convert returns, so it is safe for concurrent reads.
type Lookup struct {
	names []string
	ops   map[string]*Operation
}

func newLookup() *Lookup {
	return &Lookup{ops: map[string]*Operation{}}
}

// add registers op under name. It never overwrites an existing entry.
func (l *Lookup) add(name string, op *Operation) error {
	if _, exists := l.ops[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	l.ops[name] = op
	l.names = append(l.names, name)
	return nil
}

// Get returns the operation registered under name.
func (l *Lookup) Get(name string) (*Operation, bool) {
	if l == nil {
		return nil, false
	}
	op, ok := l.ops[name]
	return op, ok
}

// Has reports whether name is a registered tool.
func (l *Lookup) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Names returns the tool names in registration order.
func (l *Lookup) Names() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of registered tools.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}
