package executor

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketboy/rocketboy/pkg/metrics"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/sandbox"
)

// mockTransport records outgoing requests and answers with a fixed response.
type mockTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string

	status  int
	body    string
	headers http.Header
	err     error
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	h := m.headers
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Request:    req,
	}, nil
}

func (m *mockTransport) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func newSpec(method, url string) *request.Spec {
	spec := request.New()
	spec.Method = method
	spec.URL = url
	spec.Headers = nil
	return spec
}

func TestSend_SimpleGet(t *testing.T) {
	rt := &mockTransport{body: "{}"}
	spec := newSpec(http.MethodGet, "http://x/ok")

	New(WithTransport(rt)).Send(context.Background(), spec)

	require.NotNil(t, spec.StatusCode)
	assert.Equal(t, 200, *spec.StatusCode)
	assert.Equal(t, "{}", *spec.ResponseBody)
	assert.Equal(t, "[no output]", *spec.PreTestLog)
	assert.Equal(t, "[no output]", *spec.PostTestLog)
	assert.NotNil(t, spec.ResponseTime)
	assert.Equal(t, 1, rt.calls())
}

func TestSend_EmptyURLLeavesResultsUntouched(t *testing.T) {
	rt := &mockTransport{}
	spec := newSpec(http.MethodGet, "   ")
	spec.PreScript = `console.log("pre ran")`
	spec.PostScript = `console.log("post ran")`
	spec.StatusCode = request.Ptr(404)
	spec.ResponseBody = request.Ptr("previous")

	New(WithTransport(rt)).Send(context.Background(), spec)

	assert.Zero(t, rt.calls())
	assert.Equal(t, "pre ran", *spec.PreTestLog)
	assert.Equal(t, 404, *spec.StatusCode)
	assert.Equal(t, "previous", *spec.ResponseBody)
	assert.Nil(t, spec.PostTestLog)
}

func TestSend_PreScriptCanClearURL(t *testing.T) {
	rt := &mockTransport{}
	spec := newSpec(http.MethodGet, "http://x/ok")
	spec.PreScript = `request.url = ""`

	New(WithTransport(rt)).Send(context.Background(), spec)

	assert.Zero(t, rt.calls())
	assert.Nil(t, spec.StatusCode)
}

func TestSend_PreScriptFaultDoesNotAbort(t *testing.T) {
	rt := &mockTransport{body: "ok"}
	spec := newSpec(http.MethodGet, "http://x/ok")
	spec.PreScript = `console.log("before"); fail("boom")`
	spec.PostScript = `console.log("post", responseBody)`

	New(WithTransport(rt)).Send(context.Background(), spec)

	assert.Equal(t, "Error: boom", *spec.PreTestLog)
	assert.Equal(t, 200, *spec.StatusCode)
	assert.Equal(t, "post ok", *spec.PostTestLog)
}

func TestSend_EndlessPreScriptIsCutOff(t *testing.T) {
	rt := &mockTransport{body: "ok"}
	spec := newSpec(http.MethodGet, "http://x/ok")
	spec.PreScript = `for {}`

	sb := sandbox.New(sandbox.WithTimeout(50 * time.Millisecond))
	New(WithTransport(rt), WithSandbox(sb)).Send(context.Background(), spec)

	assert.True(t, strings.HasPrefix(*spec.PreTestLog, "Error: script aborted"), *spec.PreTestLog)
	assert.Equal(t, 1, rt.calls())
	assert.Equal(t, 200, *spec.StatusCode)
}

func TestSend_BodyOnlyForPayloadMethods(t *testing.T) {
	tests := []struct {
		method   string
		wantBody bool
	}{
		{http.MethodPost, true},
		{http.MethodPut, true},
		{http.MethodPatch, true},
		{http.MethodGet, false},
		{http.MethodDelete, false},
		{http.MethodOptions, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rt := &mockTransport{}
			spec := newSpec(tt.method, "http://x/items")
			spec.Body = `{"a":1}`

			New(WithTransport(rt)).Send(context.Background(), spec)

			require.Equal(t, 1, rt.calls())
			req := rt.requests[0]
			if tt.wantBody {
				assert.Equal(t, `{"a":1}`, rt.bodies[0])
				mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
				require.NoError(t, err)
				assert.Equal(t, "application/json", mediaType)
				assert.Equal(t, "utf-8", params["charset"])
			} else {
				assert.Empty(t, rt.bodies[0])
				assert.Empty(t, req.Header.Get("Content-Type"))
			}
		})
	}
}

func TestSend_EmptyBodyNotAttached(t *testing.T) {
	rt := &mockTransport{}
	spec := newSpec(http.MethodPost, "http://x/items")

	New(WithTransport(rt)).Send(context.Background(), spec)

	require.Equal(t, 1, rt.calls())
	assert.Empty(t, rt.bodies[0])
	assert.Empty(t, rt.requests[0].Header.Get("Content-Type"))
}

func TestSend_HeaderLastWriteWins(t *testing.T) {
	rt := &mockTransport{}
	spec := newSpec(http.MethodPost, "http://x/items")
	spec.Body = "{}"
	spec.Headers = request.Headers{
		{Name: "X-Token", Value: "first"},
		{Name: "x-token", Value: "second"},
		{Name: "Content-Type", Value: "application/vnd.api+json"},
	}

	New(WithTransport(rt)).Send(context.Background(), spec)

	req := rt.requests[0]
	assert.Equal(t, []string{"second"}, req.Header.Values("X-Token"))
	assert.Equal(t, "application/vnd.api+json", req.Header.Get("Content-Type"))
}

func TestSend_PreScriptSetsHeader(t *testing.T) {
	rt := &mockTransport{status: http.StatusCreated}
	spec := newSpec(http.MethodPost, "http://x")
	spec.Body = `{"a":1}`
	spec.PreScript = `request.headers["X-Custom"] = "from-script"`

	New(WithTransport(rt)).Send(context.Background(), spec)

	require.Equal(t, 1, rt.calls())
	assert.Equal(t, "from-script", rt.requests[0].Header.Get("X-Custom"))
	assert.Equal(t, `{"a":1}`, rt.bodies[0])
	v, ok := spec.Headers.Get("X-Custom")
	require.True(t, ok)
	assert.Equal(t, "from-script", v)
}

func TestSend_TransportFailure(t *testing.T) {
	rt := &mockTransport{err: errors.New("connection refused")}
	spec := newSpec(http.MethodGet, "http://x/down")
	spec.PostScript = `console.log("never")`
	spec.StatusCode = request.Ptr(200)

	New(WithTransport(rt)).Send(context.Background(), spec)

	require.NotNil(t, spec.ResponseBody)
	assert.True(t, strings.HasPrefix(*spec.ResponseBody, "Error: "))
	assert.Contains(t, *spec.ResponseBody, "connection refused")
	assert.Nil(t, spec.StatusCode)
	assert.NotNil(t, spec.ResponseTime)
	assert.Nil(t, spec.PostTestLog)
}

func TestSend_InvalidURLIsTransportFault(t *testing.T) {
	spec := newSpec(http.MethodGet, "http://[::1")

	New(WithTransport(&mockTransport{})).Send(context.Background(), spec)

	assert.Nil(t, spec.StatusCode)
	assert.True(t, strings.HasPrefix(*spec.ResponseBody, "Error: "))
}

func TestSend_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec := newSpec(http.MethodGet, "http://x/slow")

	New(WithTransport(&mockTransport{})).Send(ctx, spec)

	assert.Nil(t, spec.StatusCode)
	assert.Contains(t, *spec.ResponseBody, "context canceled")
}

func TestSend_PostScriptSeesResponse(t *testing.T) {
	rt := &mockTransport{
		status:  http.StatusCreated,
		body:    "created",
		headers: http.Header{"Content-Type": {"text/plain"}},
	}
	spec := newSpec(http.MethodPost, "http://x/items")
	spec.PostScript = `console.log(response.status, responseBody, response.headers["Content-Type"], request.method)`

	New(WithTransport(rt)).Send(context.Background(), spec)

	assert.Equal(t, "201 created text/plain POST", *spec.PostTestLog)
	assert.Equal(t, "text/plain", spec.ResponseHeaders["Content-Type"])
}

func TestSend_PostScriptCannotMutateRequest(t *testing.T) {
	spec := newSpec(http.MethodGet, "http://x/ok")
	spec.PostScript = `request.url = "http://elsewhere"`

	New(WithTransport(&mockTransport{})).Send(context.Background(), spec)

	assert.True(t, strings.HasPrefix(*spec.PostTestLog, "Error: "), *spec.PostTestLog)
	assert.Equal(t, "http://x/ok", spec.URL)
}

func TestSend_Assertions(t *testing.T) {
	rt := &mockTransport{body: `{"id": 9}`}
	spec := newSpec(http.MethodGet, "http://x/items/9")
	spec.Assertions = []string{"status == 200", "json.id == 10"}

	New(WithTransport(rt)).Send(context.Background(), spec)

	require.Len(t, spec.AssertionResults, 2)
	assert.True(t, spec.AssertionResults[0].Passed)
	assert.False(t, spec.AssertionResults[1].Passed)
}

func TestSend_RecordsHistoryAndMetrics(t *testing.T) {
	history := requestlog.NewMemoryStore(10)
	m := metrics.New()
	exec := New(WithTransport(&mockTransport{}), WithHistory(history), WithMetrics(m))

	exec.SendTab(context.Background(), "tab-1", newSpec(http.MethodGet, "http://x/ok"))
	exec.Send(context.Background(), newSpec(http.MethodGet, ""))

	entries := history.List(nil)
	require.Len(t, entries, 1)
	assert.Equal(t, "tab-1", entries[0].TabID)
	assert.Equal(t, 200, entries[0].StatusCode)

	body := scrape(t, m)
	assert.Contains(t, body, `rocketboy_requests_sent_total{method="GET",outcome="ok"} 1`)
	assert.Contains(t, body, `rocketboy_requests_sent_total{method="GET",outcome="skipped"} 1`)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "rocketboy_request_duration_seconds"))
}

func TestSend_NilSpec(t *testing.T) {
	assert.Nil(t, New().Send(context.Background(), nil))
}

func TestSend_RealServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err == nil {
			_, _ = io.WriteString(w, "cookie leaked")
			return
		}
		_, _ = io.WriteString(w, "landed")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exec := New()
	spec := newSpec(http.MethodGet, srv.URL+"/start")
	exec.Send(context.Background(), spec)

	require.NotNil(t, spec.StatusCode)
	assert.Equal(t, 200, *spec.StatusCode)
	assert.Equal(t, "landed", *spec.ResponseBody)

	again := newSpec(http.MethodGet, srv.URL+"/end")
	exec.Send(context.Background(), again)
	assert.Equal(t, "landed", *again.ResponseBody)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
