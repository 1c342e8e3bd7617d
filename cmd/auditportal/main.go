// auditportal - terminal client for the audit document portal.
package main

import (
	"os"

	"github.com/auditportal/auditportal/internal/cli"
	"github.com/auditportal/auditportal/internal/version"
)

// Version information, set by ldflags.
var (
	Version   = ""
	BuildTime = ""
)

func main() {
	if Version != "" {
		version.Version = Version
	}
	if BuildTime != "" {
		version.BuildTime = BuildTime
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
