package assertion

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/expr-lang/expr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ohler55/ojg/jp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Helper functions available to every expression:
//
//	jsonpath(json, "$.items[*].id")   values matching a JSONPath
//	schema(body, `{"type":"object"}`) body validates against a JSON Schema
//	jwt(headers["authorization"])     unverified claims of a JWT
//	xpath(body, "//item/@id")         texts or attribute values in an XML body
func functions() []expr.Option {
	return []expr.Option{
		expr.Function("jsonpath", jsonPath, new(func(any, string) []any)),
		expr.Function("schema", matchesSchema, new(func(any, string) bool)),
		expr.Function("jwt", jwtClaims, new(func(string) map[string]any)),
		expr.Function("xpath", xPath, new(func(string, string) []string)),
	}
}

func jsonPath(params ...any) (any, error) {
	path, _ := params[1].(string)
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("jsonpath %q: %w", path, err)
	}
	data, err := decoded(params[0])
	if err != nil {
		return []any{}, nil
	}
	found := x.Get(data)
	if found == nil {
		found = []any{}
	}
	return found, nil
}

// decoded accepts raw JSON text or an already decoded value.
func decoded(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var schemas sync.Map // schema text -> *jsonschema.Schema

func compileSchema(text string) (*jsonschema.Schema, error) {
	if s, ok := schemas.Load(text); ok {
		return s.(*jsonschema.Schema), nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(text)); err != nil {
		return nil, err
	}
	s, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, err
	}
	schemas.Store(text, s)
	return s, nil
}

func matchesSchema(params ...any) (any, error) {
	text, _ := params[1].(string)
	s, err := compileSchema(text)
	if err != nil {
		return false, fmt.Errorf("schema: %w", err)
	}
	data, err := decoded(params[0])
	if err != nil {
		return false, nil
	}
	return s.Validate(data) == nil, nil
}

func jwtClaims(params ...any) (any, error) {
	raw, _ := params[0].(string)
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return map[string]any(claims), nil
}

func xPath(params ...any) (any, error) {
	body, _ := params[0].(string)
	path, _ := params[1].(string)

	var attr string
	if i := strings.LastIndex(path, "/@"); i >= 0 {
		path, attr = path[:i], path[i+2:]
	}
	compiled, err := etree.CompilePath(path)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", path, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return []string{}, nil
	}
	out := []string{}
	for _, el := range doc.FindElementsPath(compiled) {
		if attr == "" {
			out = append(out, strings.TrimSpace(el.Text()))
			continue
		}
		if a := el.SelectAttr(attr); a != nil {
			out = append(out, a.Value)
		}
	}
	return out, nil
}
