package requestlog

import (
	"time"

	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/sandbox"
)

// maxBodySize caps the body text stored per entry.
const maxBodySize = 10 * 1024

// Entry records one send.
type Entry struct {
	// ID is a unique identifier for the entry, assigned by the store.
	ID string `json:"id"`

	// Timestamp is when the send finished.
	Timestamp time.Time `json:"timestamp"`

	// TabID is the workbench tab that issued the send, if any.
	TabID string `json:"tabId,omitempty"`

	// TraceID links the entry to its send span when tracing is on.
	TraceID string `json:"traceId,omitempty"`

	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// StatusCode is zero when no response was received.
	StatusCode   int    `json:"statusCode,omitempty"`
	ResponseBody string `json:"responseBody,omitempty"`
	DurationMs   int64  `json:"durationMs"`

	PreTestLog  string `json:"preTestLog,omitempty"`
	PostTestLog string `json:"postTestLog,omitempty"`

	AssertionsPassed int `json:"assertionsPassed"`
	AssertionsFailed int `json:"assertionsFailed"`

	// Error holds the transport failure text.
	Error string `json:"error,omitempty"`
}

// HasError reports whether the send failed at the transport.
func (e *Entry) HasError() bool {
	return e.Error != ""
}

// FromSpec snapshots the request and result fields of spec.
func FromSpec(spec *request.Spec) *Entry {
	e := &Entry{
		Name:    spec.Name,
		Method:  spec.NormalizedMethod(),
		URL:     spec.URL,
		Headers: spec.Headers.Effective(),
		Body:    truncate(spec.Body),
	}
	if spec.ResponseTime != nil {
		e.DurationMs = spec.ResponseTime.Milliseconds()
	}
	if spec.PreTestLog != nil {
		e.PreTestLog = *spec.PreTestLog
	}
	if spec.PostTestLog != nil {
		e.PostTestLog = *spec.PostTestLog
	}
	if spec.StatusCode != nil {
		e.StatusCode = *spec.StatusCode
		if spec.ResponseBody != nil {
			e.ResponseBody = truncate(*spec.ResponseBody)
		}
	} else if spec.ResponseBody != nil {
		e.Error = trimPrefix(*spec.ResponseBody, sandbox.ErrorPrefix)
	}
	for _, r := range spec.AssertionResults {
		if r.Passed {
			e.AssertionsPassed++
		} else {
			e.AssertionsFailed++
		}
	}
	return e
}

func truncate(s string) string {
	if len(s) <= maxBodySize {
		return s
	}
	return s[:maxBodySize]
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
