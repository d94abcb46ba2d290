// Package tracing exports OpenTelemetry spans for request sends and scans.
//
// A Provider owns an SDK tracer provider that batches spans to an OTLP
// collector over gRPC. Components take a trace.Tracer and default to a
// no-op tracer, so tracing costs nothing until an endpoint is configured.
//
//	p, err := tracing.New(ctx, tracing.Config{Endpoint: "localhost:4317", Insecure: true})
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown(ctx)
//	exec := executor.New(executor.WithTracer(p.Tracer()))
//
// Outgoing requests can carry the W3C traceparent header of the send span
// (see Inject), which lets a traced target join the same trace.
package tracing
