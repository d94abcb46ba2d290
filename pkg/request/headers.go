package request

import (
	"net/http"
	"strings"
)

// Header is a single name/value pair as entered by the user.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Headers is an ordered header list. Duplicate names are allowed; when
// applied to an outgoing request the last value for a name wins.
type Headers []Header

// Get returns the last value set for name (case-insensitive).
func (h Headers) Get(name string) (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if strings.EqualFold(h[i].Name, name) {
			return h[i].Value, true
		}
	}
	return "", false
}

// Set replaces every header named name with a single entry holding value.
// The entry keeps the position of the first existing occurrence, or is
// appended when the name is new.
func (h Headers) Set(name, value string) Headers {
	out := make(Headers, 0, len(h)+1)
	placed := false
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			if !placed {
				out = append(out, Header{Name: name, Value: value})
				placed = true
			}
			continue
		}
		out = append(out, hdr)
	}
	if !placed {
		out = append(out, Header{Name: name, Value: value})
	}
	return out
}

// Del removes every header named name.
func (h Headers) Del(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, hdr := range h {
		if !strings.EqualFold(hdr.Name, name) {
			out = append(out, hdr)
		}
	}
	return out
}

// Effective collapses the list to one value per name, last write wins.
// Entries with an empty name are skipped. Keys are the names as first
// written by the user.
func (h Headers) Effective() map[string]string {
	out := make(map[string]string, len(h))
	canonical := make(map[string]string, len(h))
	for _, hdr := range h {
		name := strings.TrimSpace(hdr.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if first, ok := canonical[key]; ok {
			out[first] = hdr.Value
			continue
		}
		canonical[key] = name
		out[name] = hdr.Value
	}
	return out
}

// Apply writes the headers onto dst in order, overwriting any value already
// present for the same name.
func (h Headers) Apply(dst http.Header) {
	for _, hdr := range h {
		name := strings.TrimSpace(hdr.Name)
		if name == "" {
			continue
		}
		dst.Set(name, hdr.Value)
	}
}

// Clone returns a copy of the list.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}

// DefaultHeaders lists the headers the editor shows as defaults. They are
// informational and never applied implicitly.
func DefaultHeaders() Headers {
	return Headers{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Accept", Value: "application/json"},
		{Name: "User-Agent", Value: "rocketboy/1.0"},
	}
}

// FlattenHTTPHeader joins multi-valued response headers with ", ".
func FlattenHTTPHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
