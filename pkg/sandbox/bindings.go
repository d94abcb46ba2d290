package sandbox

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/d5/tengo/v2"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// Binding names exposed to scripts.
const (
	BindRequest      = "request"
	BindResponse     = "response"
	BindResponseBody = "responseBody"
)

// RequestBinding exposes the mutable fields of spec as a script map:
// name, method, url, body and headers (one value per name, last write wins).
func RequestBinding(spec *request.Spec) map[string]any {
	headers := make(map[string]any)
	for name, value := range spec.Headers.Effective() {
		headers[name] = value
	}
	return map[string]any{
		"name":    spec.Name,
		"method":  spec.Method,
		"url":     spec.URL,
		"body":    spec.Body,
		"headers": headers,
	}
}

// ApplyRequest copies the script's view of the request back onto spec.
// Header names keep their original order; names the script added are
// appended in sorted order and names it removed are dropped. A spec whose
// headers were not touched keeps its exact header list.
func ApplyRequest(spec *request.Spec, v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("request must remain a map, got %T", v)
	}
	if s, ok := stringField(m, "name"); ok {
		spec.Name = s
	}
	if s, ok := stringField(m, "method"); ok {
		spec.Method = s
	}
	if s, ok := stringField(m, "url"); ok {
		spec.URL = s
	}
	if s, ok := stringField(m, "body"); ok {
		spec.Body = s
	}

	raw, present := m["headers"]
	if !present || raw == nil {
		spec.Headers = nil
		return nil
	}
	hm, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("request.headers must be a map, got %T", raw)
	}
	updated := make(map[string]string, len(hm))
	for k, val := range hm {
		updated[k] = scalarString(val)
	}
	if sameHeaders(spec.Headers.Effective(), updated) {
		return nil
	}
	spec.Headers = rebuildHeaders(spec.Headers, updated)
	return nil
}

// ResponseBinding describes a received response for the post phase.
func ResponseBinding(status int, headers map[string]string, elapsed time.Duration) tengo.Object {
	hm := make(map[string]any, len(headers))
	for k, v := range headers {
		hm[k] = v
	}
	return Freeze(map[string]any{
		"status":    status,
		"headers":   hm,
		"elapsedMs": elapsed.Milliseconds(),
	})
}

// Freeze converts v into an immutable script value. Maps and arrays are
// frozen recursively so scripts cannot modify them.
func Freeze(v any) tengo.Object {
	obj, err := tengo.FromInterface(v)
	if err != nil {
		return tengo.UndefinedValue
	}
	return freeze(obj)
}

func freeze(obj tengo.Object) tengo.Object {
	switch o := obj.(type) {
	case *tengo.Map:
		out := make(map[string]tengo.Object, len(o.Value))
		for k, v := range o.Value {
			out[k] = freeze(v)
		}
		return &tengo.ImmutableMap{Value: out}
	case *tengo.Array:
		out := make([]tengo.Object, len(o.Value))
		for i, v := range o.Value {
			out[i] = freeze(v)
		}
		return &tengo.ImmutableArray{Value: out}
	default:
		return obj
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return scalarString(v), true
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func sameHeaders(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func rebuildHeaders(orig request.Headers, updated map[string]string) request.Headers {
	byLower := make(map[string]string, len(updated))
	for k := range updated {
		byLower[strings.ToLower(k)] = k
	}

	out := make(request.Headers, 0, len(updated))
	seen := make(map[string]bool, len(updated))
	for _, h := range orig {
		lower := strings.ToLower(strings.TrimSpace(h.Name))
		key, ok := byLower[lower]
		if !ok || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, request.Header{Name: key, Value: updated[key]})
	}

	var added []string
	for lower, key := range byLower {
		if !seen[lower] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		out = append(out, request.Header{Name: key, Value: updated[key]})
	}
	return out
}
