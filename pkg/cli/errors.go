package cli

import "errors"

// Common CLI errors
var (
	ErrServerNotRunning = errors.New("server not running - start with: rocketboy serve")
	ErrAssertionsFailed = errors.New("assertions failed")
	ErrScanFailed       = errors.New("scan failed")
)
