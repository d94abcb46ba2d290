// Package sandbox runs user test scripts in an isolated Tengo VM.
//
// Every call to Run compiles the source into a fresh script instance, so no
// variable defined by one request's script is visible to another. Scripts
// only see the bindings passed in, a console object and a small set of safe
// stdlib modules (text, fmt, math, times, json, base64, hex, enum); there is
// no file, network or OS access.
//
//	sb := sandbox.New()
//	res := sb.Run(ctx, `console.log("status", response.status)`, map[string]any{
//	    "response": sandbox.Freeze(map[string]any{"status": 200}),
//	})
//	fmt.Println(res.Text()) // status 200
//
// Script faults are captured in Result.Err and never propagate.
package sandbox
