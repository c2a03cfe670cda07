package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/openapi-mcp/internal/app"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
)

const testSpecJSON = `{
	"openapi": "3.0.0",
	"info": {"title": "Test API", "version": "1.0.0"},
	"paths": {
		"/test": {
			"get": {
				"operationId": "getTest",
				"summary": "Test endpoint",
				"responses": {"200": {"description": "ok"}}
			}
		}
	}
}`

func TestWriteTools_YAML(t *testing.T) {
	doc, err := openapi.Parse([]byte(testSpecJSON))
	if err != nil {
		t.Fatalf("failed to parse spec: %v", err)
	}
	a, err := app.NewFromDocument(config.NewDefaultConfig(), common.NewSilentLogger(), doc)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	var buf bytes.Buffer
	if err := writeTools(&buf, a.Conversion); err != nil {
		t.Fatalf("writeTools failed: %v", err)
	}

	var out struct {
		Tools []struct {
			Name   string `yaml:"name"`
			Method string `yaml:"method"`
			Path   string `yaml:"path"`
		} `yaml:"tools"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, buf.String())
	}
	if len(out.Tools) != 1 || out.Tools[0].Name != "API-getTest" || out.Tools[0].Method != "GET" || out.Tools[0].Path != "/test" {
		t.Errorf("unexpected tools %+v", out.Tools)
	}
}

func TestConfigSearchPaths(t *testing.T) {
	paths := configSearchPaths()
	if len(paths) == 0 {
		t.Fatal("expected search paths")
	}

	seen := map[string]bool{}
	for _, p := range paths {
		if !strings.HasSuffix(p, "openapi-mcp.toml") {
			t.Errorf("unexpected search path %q", p)
		}
		abs, _ := filepath.Abs(p)
		if seen[abs] {
			t.Errorf("duplicate search path %q", p)
		}
		seen[abs] = true
	}
}

func TestConfigPaths_MultipleValues(t *testing.T) {
	var c configPaths
	c.Set("a.toml")
	c.Set("b.toml")
	if len(c) != 2 || c.String() != "[a.toml b.toml]" {
		t.Errorf("unexpected config paths %v", c)
	}
}
