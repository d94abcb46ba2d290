package executor

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/tracing"
)

func tracedExecutor(t *testing.T, rt http.RoundTripper, opts ...Option) (*Executor, func() tracetest.SpanStubs) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	p := tracing.NewWithExporter(exp, tracing.Config{})
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	opts = append([]Option{WithTransport(rt), WithTracer(p.Tracer())}, opts...)
	return New(opts...), func() tracetest.SpanStubs {
		require.NoError(t, p.ForceFlush(context.Background()))
		return exp.GetSpans()
	}
}

func attr(s tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range s.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSend_RecordsSpan(t *testing.T) {
	exec, spans := tracedExecutor(t, &mockTransport{status: 201})
	spec := newSpec(http.MethodPost, "http://x/items")
	spec.PreScript = `console.log("pre")`
	spec.Assertions = []string{"status == 201", "status == 500"}

	exec.SendTab(context.Background(), "tab-9", spec)

	got := spans()
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "rocketboy.send", s.Name)

	v, ok := attr(s, "http.request.method")
	require.True(t, ok)
	assert.Equal(t, "POST", v.AsString())
	v, _ = attr(s, "http.response.status_code")
	assert.Equal(t, int64(201), v.AsInt64())
	v, _ = attr(s, "rocketboy.tab")
	assert.Equal(t, "tab-9", v.AsString())
	v, _ = attr(s, "rocketboy.assertions_failed")
	assert.Equal(t, int64(1), v.AsInt64())

	require.Len(t, s.Events, 1)
	assert.Equal(t, "script", s.Events[0].Name)
	assert.NotEqual(t, codes.Error, s.Status.Code)
}

func TestSend_TransportFailureMarksSpan(t *testing.T) {
	exec, spans := tracedExecutor(t, &mockTransport{err: errors.New("connection refused")})

	exec.Send(context.Background(), newSpec(http.MethodGet, "http://x/down"))

	got := spans()
	require.Len(t, got, 1)
	assert.Equal(t, codes.Error, got[0].Status.Code)
	assert.Contains(t, got[0].Status.Description, "connection refused")
}

func TestSend_PropagatesTraceparent(t *testing.T) {
	rt := &mockTransport{}
	history := requestlog.NewMemoryStore(10)
	exec, spans := tracedExecutor(t, rt, WithTracePropagation(true), WithHistory(history))

	exec.Send(context.Background(), newSpec(http.MethodGet, "http://x/ok"))

	require.Equal(t, 1, rt.calls())
	header := rt.requests[0].Header.Get(tracing.HeaderTraceparent)
	require.NotEmpty(t, header)

	traceID := spans()[0].SpanContext.TraceID().String()
	assert.Contains(t, header, traceID)

	entries := history.List(nil)
	require.Len(t, entries, 1)
	assert.Equal(t, traceID, entries[0].TraceID)
}

func TestSend_UserTraceparentWins(t *testing.T) {
	rt := &mockTransport{}
	exec, _ := tracedExecutor(t, rt, WithTracePropagation(true))
	spec := newSpec(http.MethodGet, "http://x/ok")
	spec.Headers = spec.Headers.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	exec.Send(context.Background(), spec)

	require.Equal(t, 1, rt.calls())
	assert.Equal(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01",
		rt.requests[0].Header.Get(tracing.HeaderTraceparent))
}

func TestSend_NoPropagationByDefault(t *testing.T) {
	rt := &mockTransport{}
	exec, _ := tracedExecutor(t, rt)

	exec.Send(context.Background(), newSpec(http.MethodGet, "http://x/ok"))

	require.Equal(t, 1, rt.calls())
	assert.Empty(t, rt.requests[0].Header.Get(tracing.HeaderTraceparent))
}
