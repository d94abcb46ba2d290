package portability

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// CURLCollectionName names a cURL import that has no file name to go by.
const CURLCollectionName = "Imported from cURL"

// CURLImporter imports cURL command lines. Each unescaped line break ends
// a command, so a file may hold several; blank lines are ignored. The
// returned collection is unnamed.
type CURLImporter struct{}

// Import parses every command and returns one request per command.
func (i *CURLImporter) Import(data []byte) (*request.Collection, error) {
	commands, err := tokenizeCURL(string(data))
	if err != nil {
		return nil, &ImportError{Format: FormatCURL, Message: "failed to parse cURL command", Cause: err}
	}
	if len(commands) == 0 {
		return nil, &ImportError{Format: FormatCURL, Message: "not a valid cURL command"}
	}

	c := &request.Collection{}
	for n, tokens := range commands {
		if tokens[0] != "curl" {
			return nil, &ImportError{Format: FormatCURL, Message: fmt.Sprintf("command %d: not a valid cURL command", n+1)}
		}
		spec, err := parseCURL(tokens[1:])
		if err != nil {
			return nil, &ImportError{Format: FormatCURL, Message: fmt.Sprintf("command %d: failed to parse cURL command", n+1), Cause: err}
		}
		c.Requests = append(c.Requests, spec)
	}
	return c, nil
}

// Format returns FormatCURL.
func (i *CURLImporter) Format() Format {
	return FormatCURL
}

// curlFlagsWithArgs are flags that are ignored but consume an argument.
var curlFlagsWithArgs = map[string]bool{
	"-o": true, "--output": true,
	"-e": true, "--referer": true,
	"-b": true, "--cookie": true,
	"-c": true, "--cookie-jar": true,
	"-T": true, "--upload-file": true,
	"--connect-timeout": true,
	"-m":                true, "--max-time": true,
	"-x": true, "--proxy": true,
}

// ParseCURL parses a single cURL command line into a request.
func ParseCURL(cmd string) (*request.Spec, error) {
	commands, err := tokenizeCURL(cmd)
	if err != nil {
		return nil, err
	}
	if len(commands) != 1 || commands[0][0] != "curl" {
		return nil, errors.New("expected exactly one curl command")
	}
	return parseCURL(commands[0][1:])
}

func parseCURL(tokens []string) (*request.Spec, error) {
	spec := &request.Spec{Method: request.MethodGet}
	explicitMethod := false
	var user string

	next := func(idx *int) (string, bool) {
		if *idx+1 >= len(tokens) {
			return "", false
		}
		*idx++
		return tokens[*idx], true
	}

	for idx := 0; idx < len(tokens); idx++ {
		token := tokens[idx]

		switch {
		case token == "-X" || token == "--request":
			if v, ok := next(&idx); ok {
				spec.Method = strings.ToUpper(v)
				explicitMethod = true
			}

		case token == "-H" || token == "--header":
			if v, ok := next(&idx); ok {
				name, value, found := strings.Cut(v, ":")
				if found {
					spec.Headers = append(spec.Headers, request.Header{
						Name:  strings.TrimSpace(name),
						Value: strings.TrimSpace(value),
					})
				}
			}

		case token == "-A" || token == "--user-agent":
			if v, ok := next(&idx); ok {
				spec.Headers = spec.Headers.Set("User-Agent", v)
			}

		case token == "-d" || token == "--data" || token == "--data-raw" || token == "--data-binary":
			if v, ok := next(&idx); ok {
				spec.Body = v
				if !explicitMethod {
					spec.Method = request.MethodPost
				}
			}

		case token == "--json":
			if v, ok := next(&idx); ok {
				spec.Body = v
				if _, has := spec.Headers.Get("Content-Type"); !has {
					spec.Headers = append(spec.Headers, request.Header{Name: "Content-Type", Value: "application/json"})
				}
				if !explicitMethod {
					spec.Method = request.MethodPost
				}
			}

		case token == "-u" || token == "--user":
			if v, ok := next(&idx); ok {
				user = v
			}

		case token == "--url":
			if v, ok := next(&idx); ok {
				spec.URL = v
			}

		case token == "-G" || token == "--get":
			spec.Method = request.MethodGet
			explicitMethod = true

		case token == "-I" || token == "--head":
			spec.Method = request.MethodHead
			explicitMethod = true

		case strings.HasPrefix(token, "-"):
			if curlFlagsWithArgs[token] && idx+1 < len(tokens) {
				idx++
			}

		default:
			if spec.URL == "" {
				spec.URL = token
			}
		}
	}

	if spec.URL == "" {
		return nil, errors.New("no URL found in cURL command")
	}

	if user != "" {
		if !strings.Contains(user, ":") {
			user += ":"
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(user))
		spec.Headers = spec.Headers.Set("Authorization", "Basic "+encoded)
	}

	spec.Name = spec.Method + " " + displayPath(spec.URL)
	return spec, nil
}

func displayPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// tokenizeCURL splits input into commands of shell-style words. Single
// quotes are literal; inside double quotes a backslash escapes only
// \ " $ and `. A backslash before a line break continues the command.
func tokenizeCURL(input string) ([][]string, error) {
	var (
		commands [][]string
		words    []string
		current  strings.Builder
		inWord   bool
		quote    rune
		escaped  bool
	)

	flushWord := func() {
		if inWord {
			words = append(words, current.String())
			current.Reset()
			inWord = false
		}
	}
	flushCommand := func() {
		flushWord()
		if len(words) > 0 {
			commands = append(commands, words)
			words = nil
		}
	}

	for _, r := range input {
		if escaped {
			if r == '\r' {
				continue
			}
			escaped = false
			if r == '\n' {
				continue
			}
			if quote == '"' && !strings.ContainsRune(`\"$`+"`", r) {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			inWord = true
			continue
		}

		switch quote {
		case '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
			continue
		case '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}
			continue
		}

		switch r {
		case '\\':
			escaped = true
		case '\'', '"':
			quote = r
			inWord = true
		case ' ', '\t', '\r':
			flushWord()
		case '\n':
			flushCommand()
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	flushCommand()
	return commands, nil
}

// CURLExporter writes one cURL command line per request.
type CURLExporter struct{}

// Export renders every request of c in collection order.
func (e *CURLExporter) Export(c *request.Collection, _ ExportOptions) ([]byte, error) {
	var b strings.Builder
	for _, spec := range c.Flatten() {
		b.WriteString(ToCURL(spec))
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// Format returns FormatCURL.
func (e *CURLExporter) Format() Format {
	return FormatCURL
}

// ToCURL renders spec as a single-line cURL command. The body is included
// only for methods that carry one, matching what Send would dispatch.
func ToCURL(spec *request.Spec) string {
	method := spec.NormalizedMethod()
	parts := []string{"curl"}
	if method != request.MethodGet {
		parts = append(parts, "-X", method)
	}
	parts = append(parts, shellQuote(strings.TrimSpace(spec.URL)))
	for _, h := range spec.Headers {
		name := strings.TrimSpace(h.Name)
		if name == "" {
			continue
		}
		parts = append(parts, "-H", shellQuote(name+": "+h.Value))
	}
	if request.AllowsBody(method) && spec.Body != "" {
		parts = append(parts, "--data-raw", shellQuote(spec.Body))
	}
	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes, closing and escaping any embedded
// single quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
