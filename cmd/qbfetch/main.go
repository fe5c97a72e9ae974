// qbfetch - Quickbase attachment export tool
package main

import (
	"os"

	"github.com/qbfetch/qbfetch/internal/cli"
	"github.com/qbfetch/qbfetch/internal/version"
)

// Version information, injected via -ldflags for release builds
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
