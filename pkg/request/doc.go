// Package request defines the declarative model of an HTTP call and its
// test scripts, together with the collections and folders that group them.
//
// A Spec is owned by whoever displays it (a tab in the workbench, a CLI
// invocation) and is passed by pointer into the executor, which fills in the
// result fields after a send:
//
//	spec := &request.Spec{
//	    Name:   "List users",
//	    Method: request.MethodGet,
//	    URL:    "http://localhost:8080/users",
//	    Headers: request.Headers{
//	        {Name: "Accept", Value: "application/json"},
//	    },
//	    PostScript: `console.log(response.status)`,
//	}
//
// Result fields stay nil until a send completes or fails.
package request
