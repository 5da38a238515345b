package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/cosiner/argv"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/fptrap/fptrap/pkg/logflags"
)

// Command describes a child process that runs one probe and reports the
// outcome through its exit status.
type Command struct {
	// Path and Args are the program to run and its arguments, without the
	// program name.
	Path string
	Args []string
	// Wrapper is an optional command line the program is run under, for
	// example "qemu-aarch64 -cpu max" or "taskset -c 0".
	Wrapper string
	// Env is added to the parent's environment.
	Env []string
	// Stdout and Stderr receive the child's output as it is produced.
	Stdout io.Writer
	Stderr io.Writer
}

// ErrSetupFailed is returned by Supervise when the child could not get as
// far as the multiplication, for example because of an invalid trap list.
var ErrSetupFailed = errors.New("child could not set up the probe")

// Outcome is what a supervisor observed about a child probe.
type Outcome struct {
	State    State
	ExitCode int
	// Signal is set when the child was killed by a signal.
	Signal unix.Signal
	// Output is everything the child wrote to standard output.
	Output []byte
}

func (o *Outcome) String() string {
	switch {
	case o.Signal != 0:
		return fmt.Sprintf("%s (%s)", o.State, unix.SignalName(o.Signal))
	default:
		return fmt.Sprintf("%s (exit %d)", o.State, o.ExitCode)
	}
}

// SplitWrapper splits a wrapper command line into words.
func SplitWrapper(wrapper string) ([]string, error) {
	if strings.TrimSpace(wrapper) == "" {
		return nil, nil
	}
	v, err := argv.Argv(wrapper,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal wrapper command line '%s'", wrapper)
	}
	return v[0], nil
}

// Supervise runs c and classifies its termination: exit status 0 means
// the fault was caught, 1 that it was not, ExitUnsupported that the
// strategy is not available and ExitSetupFailed that the child failed
// before arming the checkpoint (reported as ErrSetupFailed). Any other
// status or death by a signal means the process terminated abnormally.
func Supervise(ctx context.Context, c Command) (*Outcome, error) {
	log := logflags.SupervisorLogger()

	wrapper, err := SplitWrapper(c.Wrapper)
	if err != nil {
		return nil, errors.Wrap(err, "parsing wrapper")
	}
	cmdline := append(append(wrapper, c.Path), c.Args...)

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdline[0], cmdline[1:]...)
	cmd.Stdout = &stdout
	if c.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, c.Stdout)
	}
	cmd.Stderr = c.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	log.Debugf("starting %q", cmdline)
	err = cmd.Run()
	out := &Outcome{Output: stdout.Bytes()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, errors.Wrapf(ctxErr, "waiting for %s", cmdline[0])
	}
	if err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit {
			return out, errors.Wrapf(err, "running %s", cmdline[0])
		}
	}

	ws := unix.WaitStatus(cmd.ProcessState.Sys().(syscall.WaitStatus))
	switch {
	case ws.Signaled():
		out.State = TerminatedAbnormally
		out.Signal = ws.Signal()
		out.ExitCode = -1
	case ws.Exited():
		out.ExitCode = ws.ExitStatus()
		switch out.ExitCode {
		case 0:
			out.State = FaultCaught
		case 1:
			out.State = FaultNotCaught
		case ExitUnsupported:
			out.State = Unsupported
		case ExitSetupFailed:
			return out, errors.Wrapf(ErrSetupFailed, "running %s", cmdline[0])
		default:
			out.State = TerminatedAbnormally
		}
	default:
		return out, fmt.Errorf("unexpected wait status %#x", uint32(ws))
	}
	log.WithField("pid", cmd.ProcessState.Pid()).Debugf("child finished: %s", out)
	return out, nil
}
