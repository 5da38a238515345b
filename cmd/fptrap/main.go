package main

import (
	"os"

	"github.com/fptrap/fptrap/cmd/fptrap/cmds"
	"github.com/fptrap/fptrap/pkg/version"
)

// Build is the git sha of this binary's source.
var Build string

func main() {
	if Build != "" {
		version.FptrapVersion.Revision = Build
	}
	if err := cmds.New(false).Execute(); err != nil {
		os.Exit(1)
	}
}
