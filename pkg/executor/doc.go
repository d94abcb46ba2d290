// Package executor sends one request.Spec over HTTP.
//
// Send runs the pre-script, builds and dispatches the request, records the
// response, runs the post-script and evaluates assertions. It never returns
// an error: every failure is written into the spec as display-ready text.
//
//	exec := executor.New(executor.WithLogger(logger))
//	exec.Send(ctx, spec)
//	fmt.Println(*spec.StatusCode, *spec.PostTestLog)
//
// A blank URL stops the pipeline after the pre-script. Transport failures
// set ResponseBody to "Error: <message>", leave StatusCode nil and skip the
// post-script.
package executor
