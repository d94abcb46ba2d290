// Package logging provides structured logging configuration for rocketboy.
//
// This package wraps log/slog so the executor, the scan orchestrator and the
// API server all log the same way. It supports configurable levels and
// text or JSON output.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("scan started", "session", id, "target", url)
//	logger.Error("scanner unreachable", "error", err)
//
// # Integration
//
// Components accept a *slog.Logger through a WithLogger option. If none is
// provided they use logging.Nop().
//
// Operational logs are distinct from the per-request script logs and the
// scan progress log, which are user-facing data owned by the request and
// the scan session.
package logging
