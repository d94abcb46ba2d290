// Package requestlog keeps the history of requests sent by rocketboy.
//
// Every executor send produces one Entry: what went out, what came back,
// the script logs and the assertion tally. The history is user-facing data,
// distinct from operational logging (which uses log/slog).
//
// # Usage
//
//	store := requestlog.NewMemoryStore(500)
//	store.Log(requestlog.FromSpec(spec))
//	recent := store.List(&requestlog.Filter{Method: "POST", Limit: 20})
//
// MemoryStore also supports subscriptions so the API can stream new entries.
package requestlog
