package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/fptrap/fptrap/cmd/fptrap/cmds/helphelpers"
	"github.com/fptrap/fptrap/pkg/config"
	"github.com/fptrap/fptrap/pkg/fenv"
	"github.com/fptrap/fptrap/pkg/fpcr"
	"github.com/fptrap/fptrap/pkg/hostinfo"
	"github.com/fptrap/fptrap/pkg/logflags"
	"github.com/fptrap/fptrap/pkg/metrics"
	"github.com/fptrap/fptrap/pkg/probe"
	"github.com/fptrap/fptrap/pkg/sigfpe"
	"github.com/fptrap/fptrap/pkg/terminal"
	"github.com/fptrap/fptrap/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// isolate runs the probe in a child process.
	isolate bool
	// verbose adds the signal disposition and the fault location to the output.
	verbose bool
	// traps lists the traps to enable.
	traps []string
	// wrapper is the command line child probes run under.
	wrapper string
	// timeout bounds each child probe.
	timeout time.Duration
	// color is "auto", "always" or "never".
	color string
	// metricsFile is where compare writes a Prometheus textfile.
	metricsFile string
	// childStrategy is the strategy run by the hidden child command.
	childStrategy string

	conf *config.Config
)

const fptrapCommandLongDesc = `fptrap checks whether floating-point exception traps are delivered as SIGFPE.

It enables the overflow, divide-by-zero and invalid-operation traps, multiplies
1e308 by 1e308 and reports whether the resulting SIGFPE was caught. Two ways
of enabling the traps are compared: the C library's feenableexcept (portable)
and writing the FPCR trap enable bits directly (direct, arm64 only).

Exit status is 0 when the fault was caught and 1 otherwise.`

// New returns an initialized command tree.
func New(docCall bool) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "fptrap",
		Short: "fptrap checks whether floating-point traps raise SIGFPE.",
		Long:  fptrapCommandLongDesc,
	}
	addFlags(rootCommand)

	for _, name := range probe.Names() {
		name := name
		rootCommand.AddCommand(&cobra.Command{
			Use:   name,
			Short: strategyDescription(name),
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				os.Exit(probeCmd(cmd, name, false))
			},
		})
	}

	compareCommand := &cobra.Command{
		Use:   "compare",
		Short: "Run every strategy in a child process and compare the outcomes.",
		Long: `Run every strategy in a child process and compare the outcomes.

Each probe runs isolated, so a strategy that kills its process (for example
because the FPCR write itself traps) is reported instead of ending the run.
Exit status is 0 only if every strategy caught the fault.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(compareCmd(cmd))
		},
	}
	compareCommand.Flags().StringVar(&metricsFile, "metrics-file", "", "Write the outcomes to this file in Prometheus text format.")
	rootCommand.AddCommand(compareCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "env",
		Short: "Print the host, signal and floating-point state the probes depend on.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(envCmd(cmd))
		},
	})

	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file.",
	}
	configCommand.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file if it does not exist.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path, err := config.WriteDefaultConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			fmt.Println(path)
		},
	})
	rootCommand.AddCommand(configCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fptrap\n%s\n", version.FptrapVersion)
			if verbose {
				fmt.Printf("Build Details: %s\n", version.BuildInfo())
			}
		},
	})

	rootCommand.AddCommand(logHelpCommand())
	rootCommand.AddCommand(childCommand())

	prepareHelp(rootCommand)
	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

// NewProbe returns the command tree of a program that runs a single
// strategy and takes no arguments.
func NewProbe(use, strategy string) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   use,
		Short: strategyDescription(strategy),
		Long: strategyDescription(strategy) + `

Exit status is 0 when SIGFPE was caught for the overflow and 1 otherwise.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(probeCmd(cmd, strategy, false))
		},
	}
	addFlags(rootCommand)
	rootCommand.AddCommand(childCommand())
	prepareHelp(rootCommand)
	rootCommand.DisableAutoGenTag = true
	return rootCommand
}

func addFlags(rootCommand *cobra.Command) {
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'fptrap help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'fptrap help log').")

	rootCommand.PersistentFlags().BoolVarP(&isolate, "isolate", "", false, "Run the probe in a child process and report how it terminated.")
	rootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also print the SIGFPE disposition and where the fault was taken.")
	rootCommand.PersistentFlags().StringSliceVar(&traps, "traps", nil, "Traps to enable: overflow, divbyzero, invalid, underflow, inexact, denormal (default overflow,divbyzero,invalid).")
	rootCommand.PersistentFlags().StringVar(&wrapper, "wrapper", "", `Command line to run child probes under, for example "qemu-aarch64 -cpu max".`)
	rootCommand.PersistentFlags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "Maximum time a child probe may run.")
	rootCommand.PersistentFlags().StringVar(&color, "color", "auto", "Color verdict lines: auto, always or never.")
}

func prepareHelp(rootCommand *cobra.Command) {
	defaultHelp := rootCommand.HelpFunc()
	rootCommand.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helphelpers.Prepare(cmd)
		defaultHelp(cmd, args)
	})
}

func childCommand() *cobra.Command {
	c := &cobra.Command{
		Use:    "child",
		Short:  "Run one probe in-process; used by --isolate and compare.",
		Hidden: true,
		Args:   cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(probeCmd(cmd, childStrategy, true))
		},
	}
	c.Flags().StringVar(&childStrategy, "strategy", "direct", "Strategy to run.")
	return c
}

func logHelpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	probe		Log probe state transitions and the fault observed
	fpcr		Log FPCR reads and writes
	supervisor	Log child process management
	config		Log configuration loading

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.
Logs never go to standard output, which is reserved for the diagnostic text.
`,
	}
}

func strategyDescription(name string) string {
	switch name {
	case "portable":
		return "Enable traps with feenableexcept and check that overflow raises SIGFPE."
	case "direct":
		return "Enable traps by writing FPCR directly and check that overflow raises SIGFPE."
	}
	return name
}

// setup configures logging and merges the configuration file with the
// command line; flags given explicitly win.
func setup(cmd *cobra.Command) error {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		return err
	}
	c, err := config.LoadConfig()
	if err != nil {
		return err
	}
	conf = c
	return applyConfig(cmd, conf)
}

// setupProbe is setup for commands that run a probe. A child always runs
// the probe itself, whatever the configuration file says.
func setupProbe(cmd *cobra.Command, child bool) error {
	if err := setup(cmd); err != nil {
		return err
	}
	if child {
		isolate = false
	}
	return nil
}

func applyConfig(cmd *cobra.Command, conf *config.Config) error {
	flags := cmd.Flags()
	if !flags.Changed("isolate") && conf.Isolate {
		isolate = true
	}
	if !flags.Changed("traps") && len(conf.Traps) > 0 {
		traps = conf.Traps
	}
	if !flags.Changed("wrapper") && conf.Wrapper != "" {
		wrapper = conf.Wrapper
	}
	if !flags.Changed("timeout") {
		d, err := conf.ChildTimeout()
		if err != nil {
			return err
		}
		timeout = d
	}
	if !flags.Changed("color") && conf.Color != "" {
		color = conf.Color
	}
	if flags.Lookup("metrics-file") != nil && !flags.Changed("metrics-file") && conf.MetricsFile != "" {
		metricsFile = conf.MetricsFile
	}
	return nil
}

// probeCmd runs strategy and returns the exit status. A child reports
// errors that stop the probe before the multiplication with the statuses
// of probe.ChildExitCode so that its supervisor can tell them apart from
// a missed trap.
func probeCmd(cmd *cobra.Command, strategy string, child bool) int {
	fail := func(s probe.State, err error) int {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if child {
			return probe.ChildExitCode(s, err)
		}
		return 1
	}

	if err := setupProbe(cmd, child); err != nil {
		return fail(probe.Init, err)
	}
	defer logflags.Close()

	mask, err := fpcr.ParseTraps(traps)
	if err != nil {
		return fail(probe.Init, err)
	}

	out := terminal.Stdout(color)
	defer out.Flush()

	if isolate {
		outcome, err := supervise(strategy, out)
		if err != nil {
			out.Flush()
			return fail(probe.Init, err)
		}
		switch outcome.State {
		case probe.TerminatedAbnormally:
			fmt.Fprintf(out, "FAIL: probe terminated abnormally: %s\n", describeTermination(outcome))
		case probe.Unsupported:
			fmt.Fprintf(out, "FAIL: %s strategy is not supported on this host\n", strategy)
		}
		return outcome.State.ExitCode()
	}

	s, err := probe.New(strategy, mask)
	if err != nil {
		return fail(probe.Init, err)
	}
	rep, err := probe.Run(s, probe.Options{Out: out, Verbose: verbose})
	if err != nil {
		out.Flush()
		return fail(rep.State, err)
	}
	return rep.State.ExitCode()
}

// childArgs returns the arguments that make this executable run strategy
// in-process with the current settings. The child never colors its
// output; the parent does when it copies it.
func childArgs(strategy string) []string {
	args := []string{"child", "--strategy=" + strategy, "--color=never", "--isolate=false"}
	if len(traps) > 0 {
		args = append(args, "--traps="+strings.Join(traps, ","))
	}
	if verbose {
		args = append(args, "--verbose")
	}
	if log {
		args = append(args, "--log")
		if logOutput != "" {
			args = append(args, "--log-output="+logOutput)
		}
	}
	return args
}

func supervise(strategy string, stdout io.Writer) (*probe.Outcome, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return probe.Supervise(ctx, probe.Command{
		Path:    exe,
		Args:    childArgs(strategy),
		Wrapper: wrapper,
		Stdout:  stdout,
		Stderr:  os.Stderr,
	})
}

func describeTermination(o *probe.Outcome) string {
	switch o.Signal {
	case 0:
		return fmt.Sprintf("exit status %d", o.ExitCode)
	case unix.SIGILL:
		return "SIGILL, the FPCR write was refused"
	case unix.SIGFPE:
		return "SIGFPE with no handler to resume at"
	}
	return unix.SignalName(o.Signal)
}

type comparison struct {
	strategy string
	outcome  *probe.Outcome
	err      error
}

func compareCmd(cmd *cobra.Command) int {
	if err := setup(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	if _, err := fpcr.ParseTraps(traps); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	out := terminal.Stdout(color)
	defer out.Flush()

	hostinfo.Collect(context.Background()).Write(out)
	fmt.Fprintln(out)

	var results []comparison
	for _, name := range probe.Names() {
		var childOut io.Writer
		if verbose {
			fmt.Fprintf(out, "=== %s\n", name)
			childOut = out
		}
		outcome, err := supervise(name, childOut)
		results = append(results, comparison{strategy: name, outcome: outcome, err: err})
	}
	if verbose {
		fmt.Fprintln(out)
	}

	if err := renderComparison(out, results); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile, metricsResults(results)); err != nil {
			fmt.Fprintf(os.Stderr, "could not write metrics: %v\n", err)
			return 1
		}
	}

	for _, r := range results {
		if r.err != nil || r.outcome.State != probe.FaultCaught {
			return 1
		}
	}
	return 0
}

func renderComparison(w io.Writer, results []comparison) error {
	table := tablewriter.NewWriter(w)
	table.Header("Strategy", "Outcome", "Exit", "Signal", "Verdict")
	for _, r := range results {
		if r.err != nil {
			table.Append(r.strategy, "error", "", "", r.err.Error())
			continue
		}
		sig := ""
		if r.outcome.Signal != 0 {
			sig = unix.SignalName(r.outcome.Signal)
		}
		table.Append(r.strategy, r.outcome.State.String(), fmt.Sprint(r.outcome.ExitCode), sig, verdict(r.outcome))
	}
	return table.Render()
}

// verdict is the last line the child printed, or a description of how it
// died.
func verdict(o *probe.Outcome) string {
	switch o.State {
	case probe.TerminatedAbnormally:
		return "terminated abnormally: " + describeTermination(o)
	case probe.Unsupported:
		return "not supported on this host"
	}
	lines := strings.Split(strings.TrimSpace(string(o.Output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func metricsResults(results []comparison) []metrics.Result {
	var r []metrics.Result
	for _, c := range results {
		if c.err != nil {
			r = append(r, metrics.Result{Strategy: c.strategy, State: "error", ExitCode: -1})
			continue
		}
		r = append(r, metrics.Result{
			Strategy: c.strategy,
			State:    c.outcome.State.String(),
			ExitCode: c.outcome.ExitCode,
			Caught:   c.outcome.State == probe.FaultCaught,
		})
	}
	return r
}

func envCmd(cmd *cobra.Command) int {
	if err := setup(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	out := terminal.Stdout(color)
	defer out.Flush()

	hostinfo.Collect(context.Background()).Write(out)

	if d, err := sigfpe.Install(); err != nil {
		fmt.Fprintf(out, "%-15s %v\n", "SIGFPE:", err)
	} else {
		fmt.Fprintf(out, "%-15s %s\n", "SIGFPE:", d)
	}

	if v, err := fpcr.Hardware.Load(); err != nil {
		fmt.Fprintf(out, "%-15s %v\n", "FPCR:", err)
	} else {
		fmt.Fprintf(out, "%-15s %s\n", "FPCR:", v.Describe())
	}

	if fenv.Supported() {
		fmt.Fprintf(out, "%-15s %s\n", "feenableexcept:", "available")
	} else {
		fmt.Fprintf(out, "%-15s %v\n", "feenableexcept:", fenv.ErrUnsupported)
	}
	return 0
}
