package portability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/request"
)

const (
	mimeJSON = "application/json"

	exportTitle       = "Generated API"
	exportVersion     = "1.0.0"
	exportDescription = "Automatically generated OpenAPI Specification"
	exportOAS         = "3.0.3"
)

// operationOrder fixes the order requests are produced for one path.
var operationOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
	http.MethodConnect,
}

// OpenAPIImporter turns every path and operation of an OpenAPI 3.x or
// Swagger 2.0 document into a request.
type OpenAPIImporter struct{}

// Import parses an OpenAPI document in JSON or YAML.
func (i *OpenAPIImporter) Import(data []byte) (*request.Collection, error) {
	doc, err := loadOpenAPI(data)
	if err != nil {
		return nil, &ImportError{Format: FormatOpenAPI, Message: "failed to parse OpenAPI document", Cause: err}
	}

	c := &request.Collection{Name: "Imported from OpenAPI"}
	if doc.Info != nil && strings.TrimSpace(doc.Info.Title) != "" {
		c.Name = doc.Info.Title
	}
	if doc.Paths == nil {
		return c, nil
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := items[p]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range operationOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			c.Requests = append(c.Requests, operationToSpec(p, method, op))
		}
	}
	return c, nil
}

// Format returns FormatOpenAPI.
func (i *OpenAPIImporter) Format() Format {
	return FormatOpenAPI
}

// loadOpenAPI loads a 3.x document directly and converts 2.0 documents.
func loadOpenAPI(data []byte) (*openapi3.T, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["swagger"]; ok {
		// openapi2.T only decodes JSON; YAML input is re-encoded first.
		raw, err := json.Marshal(probe)
		if err != nil {
			return nil, err
		}
		var doc2 openapi2.T
		if err := json.Unmarshal(raw, &doc2); err != nil {
			return nil, err
		}
		return openapi2conv.ToV3(&doc2)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	return loader.LoadFromData(data)
}

func operationToSpec(path, method string, op *openapi3.Operation) *request.Spec {
	name := op.OperationID
	if name == "" {
		name = method + "_" + path
	}
	spec := &request.Spec{
		Name:        name,
		Method:      method,
		URL:         path,
		Summary:     op.Summary,
		Description: op.Description,
		Headers:     request.Headers{{Name: "Content-Type", Value: mimeJSON}},
	}
	if len(op.Tags) > 0 {
		spec.Tags = append([]string(nil), op.Tags...)
	}
	if body, ok := placeholderBody(op); ok {
		spec.Body = body
	}
	return spec
}

// placeholderBody builds an indented JSON object with one zero value per
// top-level property of the application/json request schema.
func placeholderBody(op *openapi3.Operation) (string, bool) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return "", false
	}
	media := op.RequestBody.Value.Content.Get(mimeJSON)
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return "", false
	}
	props := media.Schema.Value.Properties
	if len(props) == 0 {
		return "", false
	}

	obj := make(map[string]any, len(props))
	for name, ref := range props {
		var s *openapi3.Schema
		if ref != nil {
			s = ref.Value
		}
		obj[name] = placeholder(s)
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", false
	}
	return string(data), true
}

func placeholder(s *openapi3.Schema) any {
	if s == nil {
		return nil
	}
	switch {
	case s.Type.Is(openapi3.TypeString):
		return ""
	case s.Type.Is(openapi3.TypeInteger), s.Type.Is(openapi3.TypeNumber):
		return 0
	case s.Type.Is(openapi3.TypeBoolean):
		return false
	case s.Type.Is(openapi3.TypeArray):
		return []any{}
	case s.Type.Is(openapi3.TypeObject):
		return map[string]any{}
	default:
		return nil
	}
}

// OpenAPIExporter writes a collection as an OpenAPI 3 document with one
// operation per request.
type OpenAPIExporter struct{}

// Export renders c as JSON, or YAML when asked.
func (e *OpenAPIExporter) Export(c *request.Collection, opts ExportOptions) ([]byte, error) {
	doc, err := BuildOpenAPI(c)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &ExportError{Format: FormatOpenAPI, Message: "failed to encode document", Cause: err}
	}
	if opts.Encoding == EncodingYAML {
		if data, err = jsonToYAML(data); err != nil {
			return nil, &ExportError{Format: FormatOpenAPI, Message: "failed to encode document", Cause: err}
		}
	}
	return data, nil
}

// Format returns FormatOpenAPI.
func (e *OpenAPIExporter) Format() Format {
	return FormatOpenAPI
}

// BuildOpenAPI converts c into an OpenAPI document. Absolute request URLs
// contribute their path only. Two requests with the same method and path
// are an error.
func BuildOpenAPI(c *request.Collection) (*openapi3.T, error) {
	title := exportTitle
	if c != nil && strings.TrimSpace(c.Name) != "" {
		title = c.Name
	}
	doc := &openapi3.T{
		OpenAPI: exportOAS,
		Info: &openapi3.Info{
			Title:       title,
			Version:     exportVersion,
			Description: exportDescription,
		},
		Paths: openapi3.NewPaths(),
	}

	for _, spec := range c.Flatten() {
		path := exportPath(spec.URL)
		method := spec.NormalizedMethod()

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		if item.GetOperation(method) != nil {
			return nil, &ExportError{
				Format:  FormatOpenAPI,
				Message: fmt.Sprintf("duplicate operation %s %s", method, path),
			}
		}
		item.SetOperation(method, specToOperation(spec))
	}
	return doc, nil
}

func specToOperation(spec *request.Spec) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = strings.ReplaceAll(spec.Name, " ", "_")
	op.Summary = spec.Summary
	op.Description = spec.Description
	if len(spec.Tags) > 0 {
		op.Tags = append([]string(nil), spec.Tags...)
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Success"),
		}),
	)

	if spec.Body != "" {
		schema := openapi3.NewObjectSchema()
		var example any
		if err := json.Unmarshal([]byte(spec.Body), &example); err == nil {
			schema.Example = example
		} else {
			schema.Example = spec.Body
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithJSONSchema(schema),
		}
	}
	return op
}

// exportPath reduces a request URL to an OpenAPI path key.
func exportPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		raw = u.Path
	} else if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return raw
}
