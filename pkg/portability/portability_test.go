package portability

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// ============================================================================
// Format Detection Tests
// ============================================================================

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		expected Format
	}{
		{name: "curl command", data: `curl https://api.example.com/users`, expected: FormatCURL},
		{name: "curl with tab separator", data: "curl\thttps://api.example.com/users", expected: FormatCURL},
		{name: "curl with leading whitespace", data: "  curl https://api.example.com/users", expected: FormatCURL},
		{name: "OpenAPI 3.x JSON", data: `{"openapi": "3.0.3", "info": {"title": "Test"}}`, filename: "api.json", expected: FormatOpenAPI},
		{name: "OpenAPI 3.x YAML", data: "openapi: '3.0.3'\ninfo:\n  title: Test", filename: "api.yaml", expected: FormatOpenAPI},
		{name: "Swagger 2.0", data: `{"swagger": "2.0", "info": {"title": "Test"}}`, expected: FormatOpenAPI},
		{name: "Postman", data: `{"info": {"name": "x"}, "item": []}`, expected: FormatPostman},
		{name: "native YAML", data: "name: Users\nrequests:\n  - name: list\n", filename: "users.yaml", expected: FormatNative},
		{name: "native JSON folders only", data: `{"name": "x", "folders": []}`, expected: FormatNative},
		{name: "unknown JSON", data: `{"hello": "world"}`, expected: FormatUnknown},
		{name: "plain text", data: "just some text", expected: FormatUnknown},
		{name: "curl by extension", data: "", filename: "req.curl", expected: FormatCURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFormat([]byte(tt.data), tt.filename)
			if got != tt.expected {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"openapi":   FormatOpenAPI,
		"Swagger":   FormatOpenAPI,
		" postman ": FormatPostman,
		"CURL":      FormatCURL,
		"native":    FormatNative,
		"rocketboy": FormatNative,
		"har":       FormatUnknown,
		"":          FormatUnknown,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat_Capabilities(t *testing.T) {
	if !FormatPostman.CanImport() || FormatPostman.CanExport() {
		t.Error("postman should be import-only")
	}
	for _, f := range ExportFormats() {
		if !f.CanExport() {
			t.Errorf("%s listed as export format but CanExport is false", f)
		}
	}
	if FormatUnknown.IsValid() {
		t.Error("unknown format should not be valid")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.GetImporter(FormatCURL) != nil {
		t.Fatal("new registry should be empty")
	}
	r.RegisterImporter(&CURLImporter{})
	r.RegisterImporter(nil)
	r.RegisterExporter(&OpenAPIExporter{})

	if r.GetImporter(FormatCURL) == nil {
		t.Error("expected curl importer")
	}
	if got := r.ImportFormats(); len(got) != 1 || got[0] != FormatCURL {
		t.Errorf("ImportFormats() = %v", got)
	}
	if got := r.ExportFormats(); len(got) != 1 || got[0] != FormatOpenAPI {
		t.Errorf("ExportFormats() = %v", got)
	}

	for _, f := range ImportFormats() {
		if GetImporter(f) == nil {
			t.Errorf("default registry has no importer for %s", f)
		}
	}
	for _, f := range ExportFormats() {
		if GetExporter(f) == nil {
			t.Errorf("default registry has no exporter for %s", f)
		}
	}
}

// ============================================================================
// OpenAPI Tests
// ============================================================================

const petstoreYAML = `openapi: 3.0.3
info:
  title: Petstore
  version: "1.0"
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      responses:
        "200":
          description: ok
    post:
      summary: Create a pet
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
  /pets/{id}:
    delete:
      operationId: deletePet
      responses:
        "204":
          description: gone
components:
  schemas:
    Pet:
      type: object
      properties:
        name:
          type: string
        age:
          type: integer
        weight:
          type: number
        vaccinated:
          type: boolean
        toys:
          type: array
          items:
            type: string
        owner:
          type: object
        extra: {}
`

func TestOpenAPIImporter_Import(t *testing.T) {
	c, err := (&OpenAPIImporter{}).Import([]byte(petstoreYAML))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if c.Name != "Petstore" {
		t.Errorf("Name = %q, want Petstore", c.Name)
	}
	if len(c.Requests) != 3 {
		t.Fatalf("got %d requests, want 3", len(c.Requests))
	}

	list := c.Requests[0]
	if list.Name != "listPets" || list.Method != "GET" || list.URL != "/pets" {
		t.Errorf("first request = %s %s %s", list.Name, list.Method, list.URL)
	}
	if list.Summary != "List pets" || len(list.Tags) != 1 || list.Tags[0] != "pets" {
		t.Errorf("metadata not carried: %+v", list)
	}
	if list.Body != "" {
		t.Errorf("GET without requestBody should have no body, got %q", list.Body)
	}
	if v, _ := list.Headers.Get("Content-Type"); v != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", v)
	}

	create := c.Requests[1]
	if create.Name != "POST_/pets" {
		t.Errorf("fallback name = %q, want POST_/pets", create.Name)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(create.Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v\n%s", err, create.Body)
	}
	want := map[string]any{
		"name":       "",
		"age":        float64(0),
		"weight":     float64(0),
		"vaccinated": false,
		"toys":       []any{},
		"owner":      map[string]any{},
		"extra":      nil,
	}
	for k, v := range want {
		got, ok := body[k]
		if !ok {
			t.Errorf("body missing %q", k)
			continue
		}
		gj, _ := json.Marshal(got)
		wj, _ := json.Marshal(v)
		if string(gj) != string(wj) {
			t.Errorf("body[%q] = %s, want %s", k, gj, wj)
		}
	}
	if !strings.Contains(create.Body, "\n  ") {
		t.Errorf("body should be indented: %q", create.Body)
	}

	del := c.Requests[2]
	if del.Name != "deletePet" || del.Method != "DELETE" || del.URL != "/pets/{id}" {
		t.Errorf("third request = %s %s %s", del.Name, del.Method, del.URL)
	}
}

func TestOpenAPIImporter_Swagger2(t *testing.T) {
	doc := `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "1"},
  "paths": {
    "/users": {
      "post": {
        "operationId": "createUser",
        "consumes": ["application/json"],
        "parameters": [{
          "in": "body", "name": "body",
          "schema": {"type": "object", "properties": {"email": {"type": "string"}}}
        }],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`
	c, err := (&OpenAPIImporter{}).Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(c.Requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(c.Requests))
	}
	r := c.Requests[0]
	if r.Name != "createUser" || r.Method != "POST" || r.URL != "/users" {
		t.Errorf("request = %s %s %s", r.Name, r.Method, r.URL)
	}
	if !strings.Contains(r.Body, `"email": ""`) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestOpenAPIImporter_Invalid(t *testing.T) {
	_, err := (&OpenAPIImporter{}).Import([]byte("openapi: [unclosed"))
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Format != FormatOpenAPI {
		t.Fatalf("expected OpenAPI ImportError, got %v", err)
	}
}

func TestOpenAPIExporter_Export(t *testing.T) {
	c := &request.Collection{
		Name: "Users API",
		Requests: []*request.Spec{
			{Name: "List users", Method: "get", URL: "https://api.example.com/users?page=1", Tags: []string{"users"}},
			{Name: "Create user", Method: "POST", URL: "/users", Body: `{"name":"a"}`},
		},
		Folders: []*request.Folder{{
			Name:     "admin",
			Requests: []*request.Spec{{Name: "Purge", Method: "DELETE", URL: "admin/purge", Body: "not json"}},
		}},
	}

	data, err := (&OpenAPIExporter{}).Export(c, ExportOptions{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", doc["openapi"])
	}
	info := doc["info"].(map[string]any)
	if info["title"] != "Users API" || info["version"] != "1.0.0" {
		t.Errorf("info = %v", info)
	}

	paths := doc["paths"].(map[string]any)
	users := paths["/users"].(map[string]any)
	get := users["get"].(map[string]any)
	if get["operationId"] != "List_users" {
		t.Errorf("operationId = %v, want List_users", get["operationId"])
	}
	if _, ok := get["requestBody"]; ok {
		t.Error("GET without body should have no requestBody")
	}
	post := users["post"].(map[string]any)
	schema := post["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
	example := schema["example"].(map[string]any)
	if example["name"] != "a" {
		t.Errorf("example = %v", example)
	}
	resp := post["responses"].(map[string]any)["200"].(map[string]any)
	if resp["description"] != "Success" {
		t.Errorf("200 response = %v", resp)
	}

	purge := paths["/admin/purge"].(map[string]any)["delete"].(map[string]any)
	pschema := purge["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
	if pschema["example"] != "not json" {
		t.Errorf("non-JSON body should be a string example, got %v", pschema["example"])
	}
}

func TestOpenAPIExporter_YAMLRoundTrip(t *testing.T) {
	c := &request.Collection{
		Name:     "Round",
		Requests: []*request.Spec{{Name: "getThing", Method: "GET", URL: "/things"}},
	}
	data, err := (&OpenAPIExporter{}).Export(c, ExportOptions{Encoding: EncodingYAML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if DetectFormat(data, "out.yaml") != FormatOpenAPI {
		t.Fatal("exported YAML not detected as OpenAPI")
	}

	back, err := (&OpenAPIImporter{}).Import(data)
	if err != nil {
		t.Fatalf("re-import error = %v", err)
	}
	if len(back.Requests) != 1 || back.Requests[0].Name != "getThing" || back.Requests[0].URL != "/things" {
		t.Errorf("round trip = %+v", back.Requests)
	}
}

func TestOpenAPIExporter_DuplicateOperation(t *testing.T) {
	c := &request.Collection{Requests: []*request.Spec{
		{Name: "a", Method: "GET", URL: "/x"},
		{Name: "b", Method: "get", URL: "https://host/x"},
	}}
	_, err := (&OpenAPIExporter{}).Export(c, ExportOptions{})
	var ee *ExportError
	if !errors.As(err, &ee) || !strings.Contains(ee.Message, "GET /x") {
		t.Fatalf("expected duplicate operation error, got %v", err)
	}
}

func TestExportPath(t *testing.T) {
	tests := map[string]string{
		"":                             "/",
		"/users":                       "/users",
		"users":                        "/users",
		"https://h.example/a/b?x=1":    "/a/b",
		"https://h.example":            "/",
		"/search?q=go#top":             "/search",
		"  https://h.example/trimmed ": "/trimmed",
	}
	for in, want := range tests {
		if got := exportPath(in); got != want {
			t.Errorf("exportPath(%q) = %q, want %q", in, got, want)
		}
	}
}

// ============================================================================
// Postman Tests
// ============================================================================

func TestPostmanImporter_Import(t *testing.T) {
	doc := `{
  "info": {
    "name": "Shop",
    "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
  },
  "variable": [{"key": "host", "value": "https://shop.example"}],
  "item": [
    {
      "name": "Health",
      "request": {"method": "get", "url": "{{host}}/health"}
    },
    {
      "name": "Orders",
      "description": {"content": "order endpoints"},
      "item": [
        {
          "name": "Create order",
          "request": {
            "method": "POST",
            "url": {
              "protocol": "https",
              "host": ["shop", "example"],
              "path": ["orders"],
              "query": [{"key": "dry", "value": "1"}, {"key": "off", "value": "x", "disabled": true}]
            },
            "header": [
              {"key": "Content-Type", "value": "application/json"},
              {"key": "X-Skip", "value": "1", "disabled": true}
            ],
            "auth": {"type": "bearer", "bearer": [{"key": "token", "value": "abc"}]},
            "body": {"mode": "raw", "raw": "{\"sku\": \"{{sku}}\"}"}
          }
        },
        {
          "name": "Login",
          "request": {
            "method": "POST",
            "url": "{{host}}/login",
            "body": {"mode": "urlencoded", "urlencoded": [{"key": "user", "value": "a b"}, {"key": "pw", "value": "x&y"}]}
          }
        }
      ]
    },
    {"name": "Empty folder", "item": []}
  ]
}`
	c, err := (&PostmanImporter{}).Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if c.Name != "Shop" {
		t.Errorf("Name = %q", c.Name)
	}
	if len(c.Requests) != 1 || len(c.Folders) != 1 {
		t.Fatalf("got %d requests and %d folders", len(c.Requests), len(c.Folders))
	}

	health := c.Requests[0]
	if health.Method != "GET" || health.URL != "https://shop.example/health" {
		t.Errorf("health = %s %s", health.Method, health.URL)
	}

	orders := c.Folders[0]
	if orders.Name != "Orders" || len(orders.Requests) != 2 {
		t.Fatalf("folder = %+v", orders)
	}

	create := orders.Requests[0]
	if create.URL != "https://shop.example/orders?dry=1" {
		t.Errorf("URL = %q", create.URL)
	}
	if _, ok := create.Headers.Get("X-Skip"); ok {
		t.Error("disabled header imported")
	}
	if v, _ := create.Headers.Get("Authorization"); v != "Bearer abc" {
		t.Errorf("Authorization = %q", v)
	}
	if create.Body != `{"sku": "{{sku}}"}` {
		t.Errorf("unknown variables should be kept, body = %q", create.Body)
	}

	login := orders.Requests[1]
	if login.Body != "user=a+b&pw=x%26y" {
		t.Errorf("urlencoded body = %q", login.Body)
	}
	if v, _ := login.Headers.Get("Content-Type"); v != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", v)
	}

	if c.Count() != 3 {
		t.Errorf("Count() = %d, want 3", c.Count())
	}
}

func TestPostmanImporter_Errors(t *testing.T) {
	t.Run("not postman", func(t *testing.T) {
		_, err := (&PostmanImporter{}).Import([]byte(`{"info": {"name": "x"}, "item": []}`))
		var ie *ImportError
		if !errors.As(err, &ie) || !strings.Contains(ie.Message, "not a valid") {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("syntax error has position", func(t *testing.T) {
		_, err := (&PostmanImporter{}).Import([]byte("{\n  \"info\": ,\n}"))
		var ie *ImportError
		if !errors.As(err, &ie) {
			t.Fatalf("got %v", err)
		}
		if ie.Line != 2 {
			t.Errorf("Line = %d, want 2", ie.Line)
		}
		if !strings.Contains(ie.Error(), "(line 2") {
			t.Errorf("Error() = %q", ie.Error())
		}
	})
}

// ============================================================================
// cURL Tests
// ============================================================================

func TestCURLImporter_Import(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		method  string
		url     string
		body    string
		headers map[string]string
	}{
		{
			name:   "simple GET",
			cmd:    "curl https://api.example.com/users",
			method: "GET",
			url:    "https://api.example.com/users",
		},
		{
			name:    "POST with data defaults method",
			cmd:     `curl https://api.example.com/users -H 'Content-Type: application/json' -d '{"name":"x"}'`,
			method:  "POST",
			url:     "https://api.example.com/users",
			body:    `{"name":"x"}`,
			headers: map[string]string{"Content-Type": "application/json"},
		},
		{
			name:   "explicit method kept with data",
			cmd:    `curl -X PUT --data-raw "a=1" https://h/x`,
			method: "PUT",
			url:    "https://h/x",
			body:   "a=1",
		},
		{
			name:    "json flag",
			cmd:     `curl --json '{"a":1}' https://h/x`,
			method:  "POST",
			url:     "https://h/x",
			body:    `{"a":1}`,
			headers: map[string]string{"Content-Type": "application/json"},
		},
		{
			name:    "basic auth",
			cmd:     "curl -u alice:secret https://h/x",
			method:  "GET",
			url:     "https://h/x",
			headers: map[string]string{"Authorization": "Basic YWxpY2U6c2VjcmV0"},
		},
		{
			name:   "ignored flags with args",
			cmd:    "curl -o out.json --max-time 5 -s https://h/x",
			method: "GET",
			url:    "https://h/x",
		},
		{
			name:   "head",
			cmd:    "curl -I https://h/x",
			method: "HEAD",
			url:    "https://h/x",
		},
		{
			name:   "line continuation",
			cmd:    "curl \\\n  -X DELETE \\\n  https://h/x/1",
			method: "DELETE",
			url:    "https://h/x/1",
		},
		{
			name:   "backslash kept inside single quotes",
			cmd:    `curl -d '{"a":"x\ny"}' https://h/x`,
			method: "POST",
			url:    "https://h/x",
			body:   `{"a":"x\ny"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := (&CURLImporter{}).Import([]byte(tt.cmd))
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if len(c.Requests) != 1 {
				t.Fatalf("got %d requests", len(c.Requests))
			}
			r := c.Requests[0]
			if r.Method != tt.method {
				t.Errorf("Method = %q, want %q", r.Method, tt.method)
			}
			if r.URL != tt.url {
				t.Errorf("URL = %q, want %q", r.URL, tt.url)
			}
			if r.Body != tt.body {
				t.Errorf("Body = %q, want %q", r.Body, tt.body)
			}
			for k, v := range tt.headers {
				if got, _ := r.Headers.Get(k); got != v {
					t.Errorf("header %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestCURLImporter_MultipleCommands(t *testing.T) {
	input := "curl https://h/a\n\ncurl -X POST https://h/b -d x\n"
	c, err := (&CURLImporter{}).Import([]byte(input))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(c.Requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(c.Requests))
	}
	if c.Requests[0].Name != "GET /a" || c.Requests[1].Name != "POST /b" {
		t.Errorf("names = %q, %q", c.Requests[0].Name, c.Requests[1].Name)
	}
}

func TestCURLImporter_Errors(t *testing.T) {
	tests := map[string]string{
		"not curl":          "wget https://h/x",
		"no url":            "curl -X GET",
		"unterminated":      "curl 'https://h/x",
		"second not curl":   "curl https://h/x\nls -la",
		"only whitespace":   "   \n\t",
		"flag without args": "curl -H",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := (&CURLImporter{}).Import([]byte(input))
			var ie *ImportError
			if !errors.As(err, &ie) {
				t.Fatalf("expected ImportError, got %v", err)
			}
		})
	}
}

func TestToCURL(t *testing.T) {
	spec := &request.Spec{
		Method: "post",
		URL:    "https://h/it's",
		Headers: request.Headers{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "", Value: "skipped"},
		},
		Body: `{"q":"it's"}`,
	}
	got := ToCURL(spec)
	want := `curl -X POST 'https://h/it'\''s' -H 'Content-Type: application/json' --data-raw '{"q":"it'\''s"}'`
	if got != want {
		t.Errorf("ToCURL() =\n%s\nwant\n%s", got, want)
	}

	back, err := ParseCURL(got)
	if err != nil {
		t.Fatalf("ParseCURL() error = %v", err)
	}
	if back.URL != spec.URL || back.Body != spec.Body || back.Method != "POST" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestToCURL_BodyOnlyForBodyMethods(t *testing.T) {
	got := ToCURL(&request.Spec{Method: "GET", URL: "https://h/x", Body: "ignored"})
	if got != "curl 'https://h/x'" {
		t.Errorf("ToCURL() = %q", got)
	}
}

// ============================================================================
// Native + top-level Import/Export Tests
// ============================================================================

func TestNativeRoundTrip(t *testing.T) {
	c := &request.Collection{
		Name: "Mine",
		Requests: []*request.Spec{{
			Name:       "ping",
			Method:     "GET",
			URL:        "https://h/ping",
			PreScript:  `request.url = "https://h/pong"`,
			Assertions: []string{"status == 200"},
			StatusCode: request.Ptr(200),
		}},
		Folders: []*request.Folder{{Name: "nested", Requests: []*request.Spec{{Name: "x", URL: "/x"}}}},
	}

	for _, enc := range []Encoding{EncodingDefault, EncodingJSON} {
		res, err := Export(c, &ExportOptions{Format: FormatNative, Encoding: enc})
		if err != nil {
			t.Fatalf("Export(%q) error = %v", enc, err)
		}
		if strings.Contains(string(res.Data), "statusCode") {
			t.Errorf("%q export leaked result fields:\n%s", enc, res.Data)
		}
		if res.RequestCount != 2 {
			t.Errorf("RequestCount = %d", res.RequestCount)
		}

		imp, err := Import(res.Data, "", nil)
		if err != nil {
			t.Fatalf("Import(%q) error = %v", enc, err)
		}
		if imp.Format != FormatNative {
			t.Errorf("detected %q, want native", imp.Format)
		}
		got := imp.Collection
		if got.Name != "Mine" || got.Requests[0].PreScript != c.Requests[0].PreScript {
			t.Errorf("round trip = %+v", got)
		}
		if got.Folders[0].Requests[0].Method != "GET" {
			t.Errorf("missing method should normalize to GET, got %q", got.Folders[0].Requests[0].Method)
		}
		if imp.FolderCount != 1 || imp.RequestCount != 2 {
			t.Errorf("counts = %d folders, %d requests", imp.FolderCount, imp.RequestCount)
		}
	}

	if c.Requests[0].StatusCode == nil {
		t.Error("export must not clear results on the source collection")
	}
}

func TestImport_Options(t *testing.T) {
	res, err := Import([]byte(petstoreYAML), "petstore.yaml", &ImportOptions{
		Name:    "Pets",
		BaseURL: "https://pets.example/v1/",
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Collection.Name != "Pets" {
		t.Errorf("Name = %q", res.Collection.Name)
	}
	if got := res.Collection.Requests[0].URL; got != "https://pets.example/v1/pets" {
		t.Errorf("URL = %q", got)
	}

	_, err = Import([]byte("nothing to see"), "notes.txt", nil)
	var ie *ImportError
	if !errors.As(err, &ie) || !strings.Contains(ie.Error(), "unable to detect") {
		t.Errorf("expected detection error, got %v", err)
	}

	res, err = Import([]byte("curl https://h/x"), "", &ImportOptions{Format: FormatCURL})
	if err != nil || res.RequestCount != 1 {
		t.Errorf("explicit format import = %v, %v", res, err)
	}
}

func TestImport_CollectionNaming(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		opts     *ImportOptions
		want     string
	}{
		{"curl file takes base name", "curl https://h/ping", "specs/nested/ping.curl", nil, "ping"},
		{"curl without file", "curl https://h/ping", "", &ImportOptions{Format: FormatCURL}, CURLCollectionName},
		{"explicit name wins", "curl https://h/ping", "ping.curl", &ImportOptions{Name: "Smoke"}, "Smoke"},
		{"source title wins over file", petstoreYAML, "api.yaml", nil, "Petstore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Import([]byte(tt.data), tt.filename, tt.opts)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if res.Collection.Name != tt.want {
				t.Errorf("Name = %q, want %q", res.Collection.Name, tt.want)
			}
		})
	}

	a, err := Import([]byte("curl https://h/a"), "a.curl", nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	b, err := Import([]byte("curl https://h/b"), "b.curl", nil)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if a.Collection.Name == b.Collection.Name {
		t.Errorf("distinct cURL files share collection name %q", a.Collection.Name)
	}
}

func TestExport_Errors(t *testing.T) {
	if _, err := Export(nil, nil); err == nil {
		t.Error("expected error for nil collection")
	}
	_, err := Export(&request.Collection{}, &ExportOptions{Format: FormatPostman})
	var ee *ExportError
	if !errors.As(err, &ee) || ee.Format != FormatPostman {
		t.Errorf("expected postman export error, got %v", err)
	}

	res, err := Export(&request.Collection{Requests: []*request.Spec{{Method: "GET", URL: "https://h/a"}}}, &ExportOptions{Format: FormatCURL})
	if err != nil {
		t.Fatalf("curl export error = %v", err)
	}
	if string(res.Data) != "curl 'https://h/a'\n" {
		t.Errorf("curl export = %q", res.Data)
	}
}

func TestImportError(t *testing.T) {
	cause := errors.New("boom")
	e := &ImportError{Format: FormatPostman, Line: 3, Column: 7, Message: "bad", Cause: cause}
	if got := e.Error(); got != "postman: bad (line 3, column 7): boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(e, cause) {
		t.Error("Unwrap should expose cause")
	}
}
