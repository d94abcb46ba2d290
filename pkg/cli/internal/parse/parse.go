// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"fmt"
	"strings"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// KeyValue parses a "key:value" or "key=value" string.
// If delimiters are provided, uses the first one found; otherwise defaults to ':'.
// Returns the key, value, and a boolean indicating success.
func KeyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	if len(delimiters) == 0 {
		delimiters = []rune{':'}
	}

	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// Headers parses "Name: value" strings into request headers, keeping their
// order. A header without a colon is an error.
func Headers(values []string) (request.Headers, error) {
	var out request.Headers
	for _, h := range values {
		name, value, ok := KeyValue(h, ':')
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		out = append(out, request.Header{Name: name, Value: strings.TrimSpace(value)})
	}
	return out, nil
}
