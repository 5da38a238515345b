package probe

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pkg/errors"

	"github.com/fptrap/fptrap/pkg/fenv"
	"github.com/fptrap/fptrap/pkg/fpcr"
	"github.com/fptrap/fptrap/pkg/logflags"
	"github.com/fptrap/fptrap/pkg/sigfpe"
)

// Report is the result of a probe run.
type Report struct {
	Strategy string
	State    State
	// Transitions lists every state the run went through, in order.
	Transitions []State

	Handler *sigfpe.Disposition

	// Direct strategy only.
	Before, Requested, After fpcr.Value
	Traps                    []fpcr.TrapStatus

	// Portable strategy only: the value returned by feenableexcept.
	FenvStatus int

	// FaultObserved is the fault flag: false until the checkpoint is armed,
	// true only if the trap unwound the multiplication.
	FaultObserved bool
	Fault         *Fault
	// Result is the product computed when no trap was taken.
	Result float64
}

// TrapsPersisted reports whether every requested FPCR bit was read back.
// It is always true for strategies that do not inspect the register.
func (r *Report) TrapsPersisted() bool {
	for _, st := range r.Traps {
		if !st.Enabled {
			return false
		}
	}
	return true
}

func (r *Report) enter(s State, log logflags.Logger) {
	log.Debugf("%s -> %s", r.State, s)
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Options configures Run.
type Options struct {
	// Out receives the diagnostic text; nil means os.Stdout.
	Out io.Writer
	// Trigger is the computation expected to trap; nil means 1e308*1e308.
	Trigger func() float64
	// Verbose adds the handler disposition and the fault location to the
	// output.
	Verbose bool
}

// Run executes one probe with strategy s on a thread dedicated to it for
// the duration of the call.
func Run(s Strategy, opts Options) (*Report, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	trigger := opts.Trigger
	if trigger == nil {
		trigger = multiplyOverflow
	}
	log := logflags.ProbeLogger().WithField("strategy", s.Name())

	rep := &Report{Strategy: s.Name()}
	rep.enter(Init, log)

	disp, err := sigfpe.Install()
	switch {
	case err == nil:
		rep.Handler = disp
		log.Debugf("handler: %s", disp)
		if opts.Verbose {
			fmt.Fprintf(out, "Handler: %s\n", disp)
		}
	case errors.Is(err, sigfpe.ErrUnsupported):
		log.WithError(err).Warn("cannot verify SIGFPE disposition, relying on the runtime handler")
	default:
		return rep, errors.Wrap(err, "installing SIGFPE handler")
	}

	restore, err := s.Enable(out, rep)
	if err != nil {
		if c := errors.Cause(err); c == fpcr.ErrUnsupported || c == fenv.ErrUnsupported {
			rep.enter(Unsupported, log)
		}
		return rep, errors.Wrapf(err, "enabling traps with %s strategy", s.Name())
	}
	rep.enter(TrapsEnabled, log)

	msg := defaultBanner
	if b, ok := s.(banner); ok {
		msg = b.banner()
	}
	fmt.Fprintln(out, msg)

	rep.FaultObserved = false
	cp := &Checkpoint{OnResume: restore}
	rep.enter(ArmedForFault, log)
	rep.Result = cp.Run(trigger)
	rep.FaultObserved = cp.Faulted
	rep.Fault = cp.Fault

	if !rep.FaultObserved {
		rep.enter(FaultNotCaught, log)
		fmt.Fprintf(out, "FAIL: No SIGFPE caught (result=%s)\n", formatG(rep.Result))
		return rep, nil
	}
	rep.enter(FaultCaught, log)
	log.WithField("fault", rep.Fault).Info("trap delivered")
	fmt.Fprintln(out, "SUCCESS: Caught SIGFPE for overflow")
	if opts.Verbose && rep.Fault != nil {
		fmt.Fprintf(out, "Fault: %s\n", rep.Fault)
	}
	return rep, nil
}
