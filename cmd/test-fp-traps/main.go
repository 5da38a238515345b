// Command test-fp-traps enables the overflow, divide-by-zero and invalid
// operation traps with feenableexcept and checks that 1e308*1e308 raises
// SIGFPE.
package main

import (
	"os"

	"github.com/fptrap/fptrap/cmd/fptrap/cmds"
)

func main() {
	if err := cmds.NewProbe("test-fp-traps", "portable").Execute(); err != nil {
		os.Exit(1)
	}
}
