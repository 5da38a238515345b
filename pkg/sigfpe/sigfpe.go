// Package sigfpe checks the process-wide disposition of SIGFPE.
//
// The Go runtime installs its own SIGFPE handler at startup, with
// SA_SIGINFO so that the kernel delivers the full fault context. That
// handler converts a synchronous SIGFPE raised by Go code into a run-time
// panic, which is what lets a deferred recover act as the resume point
// after a floating-point trap. Foreign code (a cgo library calling
// sigaction, for example) can replace or reset it; Install detects that
// before a probe relies on it.
package sigfpe

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

var (
	// ErrUnsupported is returned on platforms where the disposition cannot
	// be queried.
	ErrUnsupported = errors.New("sigfpe: signal disposition query not supported on this platform")
	// ErrNoHandler is returned when SIGFPE is set to SIG_DFL or SIG_IGN.
	ErrNoHandler = errors.New("sigfpe: no SIGFPE handler installed")
	// ErrNoSiginfo is returned when the installed handler does not receive
	// extended signal context.
	ErrNoSiginfo = errors.New("sigfpe: SIGFPE handler installed without SA_SIGINFO")
)

// Linux sa_flags bits.
const (
	saSiginfo   = 0x4
	saOnstack   = 0x08000000
	saRestorer  = 0x04000000
	saRestart   = 0x10000000
	saNodefer   = 0x40000000
	saResethand = 0x80000000
)

const (
	sigDfl = 0
	sigIgn = 1
)

var flagNames = []struct {
	name string
	bit  uint64
}{
	{"SA_SIGINFO", saSiginfo},
	{"SA_ONSTACK", saOnstack},
	{"SA_RESTART", saRestart},
	{"SA_RESTORER", saRestorer},
	{"SA_NODEFER", saNodefer},
	{"SA_RESETHAND", saResethand},
}

// Disposition is the kernel's view of how a signal is handled.
type Disposition struct {
	Signal  unix.Signal
	Handler uintptr
	Flags   uint64
	Mask    uint64
}

// Default reports whether the signal has the default action.
func (d *Disposition) Default() bool { return d.Handler == sigDfl }

// Ignored reports whether the signal is ignored.
func (d *Disposition) Ignored() bool { return d.Handler == sigIgn }

// Siginfo reports whether the handler receives extended signal context.
func (d *Disposition) Siginfo() bool { return d.Flags&saSiginfo != 0 }

func (d *Disposition) String() string {
	var handler string
	switch {
	case d.Default():
		handler = "SIG_DFL"
	case d.Ignored():
		handler = "SIG_IGN"
	default:
		handler = fmt.Sprintf("%#x", d.Handler)
	}
	var flags []string
	rest := d.Flags
	for _, f := range flagNames {
		if d.Flags&f.bit != 0 {
			flags = append(flags, f.name)
			rest &^= f.bit
		}
	}
	if rest != 0 {
		flags = append(flags, fmt.Sprintf("%#x", rest))
	}
	return fmt.Sprintf("%s handler=%s flags=[%s]", unix.SignalName(d.Signal), handler, strings.Join(flags, " "))
}

// Install makes sure SIGFPE will be delivered to a handler that receives
// extended signal context, and returns the disposition it found.
func Install() (*Disposition, error) {
	d, err := Query(unix.SIGFPE)
	if err != nil {
		return nil, err
	}
	if d.Default() || d.Ignored() {
		return d, fmt.Errorf("%w (%s)", ErrNoHandler, d)
	}
	if !d.Siginfo() {
		return d, fmt.Errorf("%w (%s)", ErrNoSiginfo, d)
	}
	return d, nil
}
