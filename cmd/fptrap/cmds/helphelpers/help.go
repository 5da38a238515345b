package helphelpers

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Prepare prepares cmd flag set for the invocation of its usage function by
// hiding flags that we want cobra to parse but we don't want to show to the
// user.
// We do this because the probe flags are persistent flags of the root
// command, so that
//
//	fptrap --traps overflow direct
//
// parses, but they mean nothing to subcommands that do not run a probe.
//
// Prepare is a destructive command, cmd can not be reused after it has been
// called.
func Prepare(cmd *cobra.Command) {
	switch cmd.Name() {
	case "help", "version", "log", "init":
		hideAllFlags(cmd)
	case "config", "env":
		hideFlag(cmd, "isolate")
		hideFlag(cmd, "timeout")
		hideFlag(cmd, "wrapper")
		hideFlag(cmd, "traps")
		hideFlag(cmd, "metrics-file")
		hideFlag(cmd, "verbose")
	case "compare":
		hideFlag(cmd, "isolate")
	case "portable", "direct", "test-fp-traps", "test-fp-traps-direct":
		hideFlag(cmd, "metrics-file")
	}
}

func hideAllFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
	cmd.InheritedFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
}

func hideFlag(cmd *cobra.Command, name string) {
	if cmd == nil {
		return
	}
	flag := cmd.Flags().Lookup(name)
	if flag != nil {
		flag.Hidden = true
		return
	}
	hideFlag(cmd.Parent(), name)
}
