// Command test-fp-traps-direct sets the FPCR trap enable bits directly,
// verifies that they stuck and checks that 1e308*1e308 raises SIGFPE.
package main

import (
	"os"

	"github.com/fptrap/fptrap/cmd/fptrap/cmds"
)

func main() {
	if err := cmds.NewProbe("test-fp-traps-direct", "direct").Execute(); err != nil {
		os.Exit(1)
	}
}
