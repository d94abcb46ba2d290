// Package scan drives a security scan of one target through an external
// ZAP instance.
//
// A Session moves forward through the phases
//
//	Idle -> ContextAdded -> SpiderRunning -> SpiderDone ->
//	ActiveScanRunning -> ActiveScanDone -> Completed
//
// and may enter Failed from any non-terminal phase. Every transition and
// every status poll appends a line to the session's progress log, which
// subscribers receive as it happens.
//
// The Orchestrator runs one session to completion. The Manager keeps at most
// one running session per handle (a workbench tab) and runs it in the
// background.
package scan
