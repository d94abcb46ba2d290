package request

import (
	"strings"
	"time"
)

// HTTP methods offered by the request editor.
const (
	MethodGet     = "GET"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
	MethodHead    = "HEAD"
)

// DefaultName is used for requests created without a name.
const DefaultName = "New Request"

// Spec describes one HTTP call, its pre/post scripts and the results of the
// last send.
type Spec struct {
	Name    string  `json:"name" yaml:"name"`
	Method  string  `json:"method" yaml:"method"`
	URL     string  `json:"url" yaml:"url"`
	Body    string  `json:"body,omitempty" yaml:"body,omitempty"`
	Headers Headers `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Scripts run in the sandbox before dispatch and after a successful response.
	PreScript  string `json:"preScript,omitempty" yaml:"preScript,omitempty"`
	PostScript string `json:"postScript,omitempty" yaml:"postScript,omitempty"`

	// Assertions are expressions evaluated against the response after the
	// post-script has run.
	Assertions []string `json:"assertions,omitempty" yaml:"assertions,omitempty"`

	// OpenAPI metadata carried through import/export.
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	LoadTest *LoadTestParameters `json:"loadTest,omitempty" yaml:"loadTest,omitempty"`

	// Result fields, populated by the executor.
	StatusCode       *int              `json:"statusCode,omitempty" yaml:"-"`
	ResponseBody     *string           `json:"responseBody,omitempty" yaml:"-"`
	ResponseHeaders  map[string]string `json:"responseHeaders,omitempty" yaml:"-"`
	ResponseTime     *time.Duration    `json:"responseTime,omitempty" yaml:"-"`
	PreTestLog       *string           `json:"preTestLog,omitempty" yaml:"-"`
	PostTestLog      *string           `json:"postTestLog,omitempty" yaml:"-"`
	AssertionResults []AssertionResult `json:"assertionResults,omitempty" yaml:"-"`
}

// AssertionResult is the outcome of one assertion expression.
type AssertionResult struct {
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Error      string `json:"error,omitempty"`
}

// LoadTestParameters configure an external load-test run for a request.
type LoadTestParameters struct {
	// VirtualUsers is the number of simulated users.
	VirtualUsers int `json:"virtualUsers" yaml:"virtualUsers"`
	// Duration is a runner duration string such as "30s" or "1m".
	Duration string `json:"duration" yaml:"duration"`
}

// Default load-test parameters.
const (
	DefaultVirtualUsers     = 10
	DefaultLoadTestDuration = "30s"
)

// DefaultLoadTest returns the default load-test parameters.
func DefaultLoadTest() LoadTestParameters {
	return LoadTestParameters{VirtualUsers: DefaultVirtualUsers, Duration: DefaultLoadTestDuration}
}

// New returns a GET request with the default name.
func New() *Spec {
	return &Spec{Name: DefaultName, Method: MethodGet}
}

// NormalizedMethod returns the upper-cased method, defaulting to GET.
func (s *Spec) NormalizedMethod() string {
	m := strings.ToUpper(strings.TrimSpace(s.Method))
	if m == "" {
		return MethodGet
	}
	return m
}

// HasURL reports whether the spec has a non-blank URL.
func (s *Spec) HasURL() bool {
	return strings.TrimSpace(s.URL) != ""
}

// AllowsBody reports whether the method carries a request body.
func AllowsBody(method string) bool {
	switch strings.ToUpper(method) {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// ClearResults resets every result field to its unset state.
func (s *Spec) ClearResults() {
	s.StatusCode = nil
	s.ResponseBody = nil
	s.ResponseHeaders = nil
	s.ResponseTime = nil
	s.PreTestLog = nil
	s.PostTestLog = nil
	s.AssertionResults = nil
}

// Clone returns a deep copy of the spec.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	c := *s
	c.Headers = s.Headers.Clone()
	if s.Assertions != nil {
		c.Assertions = append([]string(nil), s.Assertions...)
	}
	if s.Tags != nil {
		c.Tags = append([]string(nil), s.Tags...)
	}
	if s.LoadTest != nil {
		lt := *s.LoadTest
		c.LoadTest = &lt
	}
	if s.StatusCode != nil {
		v := *s.StatusCode
		c.StatusCode = &v
	}
	if s.ResponseBody != nil {
		v := *s.ResponseBody
		c.ResponseBody = &v
	}
	if s.ResponseHeaders != nil {
		c.ResponseHeaders = make(map[string]string, len(s.ResponseHeaders))
		for k, v := range s.ResponseHeaders {
			c.ResponseHeaders[k] = v
		}
	}
	if s.ResponseTime != nil {
		v := *s.ResponseTime
		c.ResponseTime = &v
	}
	if s.PreTestLog != nil {
		v := *s.PreTestLog
		c.PreTestLog = &v
	}
	if s.PostTestLog != nil {
		v := *s.PostTestLog
		c.PostTestLog = &v
	}
	if s.AssertionResults != nil {
		c.AssertionResults = append([]AssertionResult(nil), s.AssertionResults...)
	}
	return &c
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
