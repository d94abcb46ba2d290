// rocketboy CLI - API testing with scripted requests, ZAP scans and load tests
package main

import "github.com/rocketboy/rocketboy/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
