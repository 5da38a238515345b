package probe

// State is the progress of a single probe run.
type State int

const (
	Init State = iota
	TrapsEnabled
	ArmedForFault
	FaultCaught
	FaultNotCaught
	// TerminatedAbnormally means the process running the probe died
	// before reaching the verification print. Only a supervisor can
	// observe it.
	TerminatedAbnormally
	// Unsupported means the trap strategy is not available on this
	// platform or build.
	Unsupported
)

var stateNames = [...]string{
	Init:                 "init",
	TrapsEnabled:         "traps-enabled",
	ArmedForFault:        "armed",
	FaultCaught:          "fault-caught",
	FaultNotCaught:       "fault-not-caught",
	TerminatedAbnormally: "terminated",
	Unsupported:          "unsupported",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s >= FaultCaught
}

// ExitCode is the process exit status that reports s.
func (s State) ExitCode() int {
	if s == FaultCaught {
		return 0
	}
	return 1
}

// Exit statuses a supervised child uses when the multiplication never ran.
// They follow sysexits(3) so that they cannot be confused with a runtime
// crash, which exits with status 2.
const (
	ExitUnsupported = 69 // EX_UNAVAILABLE
	ExitSetupFailed = 70 // EX_SOFTWARE
)

// ChildExitCode is the exit status a supervised child reports a run with.
// err is the error that stopped the run, if any.
func ChildExitCode(s State, err error) int {
	switch {
	case s == Unsupported:
		return ExitUnsupported
	case err != nil:
		return ExitSetupFailed
	}
	return s.ExitCode()
}
