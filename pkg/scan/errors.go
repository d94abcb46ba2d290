package scan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrScanInProgress is returned when a handle already has a running scan.
	ErrScanInProgress = errors.New("a scan is already in progress")

	// ErrNoScan is returned when a handle has no scan.
	ErrNoScan = errors.New("no scan for this tab")

	// ErrNoTarget is returned when the target URL is blank.
	ErrNoTarget = errors.New("target url is required")

	// ErrCancelled is recorded when the session's context is cancelled.
	ErrCancelled = errors.New("scan cancelled")

	// ErrPollLimit is recorded when a poll loop exceeds its attempt limit.
	ErrPollLimit = errors.New("scan did not finish within the poll limit")

	// ErrUnreachable wraps failures of the first scanner calls.
	ErrUnreachable = errors.New("cannot reach scanner")
)

// ConfigError reports scanner settings missing from the key store. It is
// raised before any network call.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scanner not configured: missing %s", strings.Join(e.Missing, ", "))
}

// TransitionError reports a rejected phase change.
type TransitionError struct {
	From, To Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid scan transition %s -> %s", e.From, e.To)
}
