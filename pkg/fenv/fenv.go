// Package fenv enables floating-point exception traps through the C
// library's exception-enabling facility (feenableexcept).
//
// The facility changes the FP environment of the calling thread only.
// Callers must keep the goroutine locked to its OS thread and must not
// perform the trapping operation inside C code: the Go runtime only turns
// SIGFPE into a recoverable panic when it is raised by Go code.
package fenv

import (
	"errors"
	"strings"
)

// Except is a set of floating-point exceptions.
type Except int

// Exceptions understood by Enable. The values are translated to the
// platform FE_* constants when calling into C.
const (
	Invalid Except = 1 << iota
	DivByZero
	Overflow
	Underflow
	Inexact
)

// DefaultExcept is the set of exceptions the diagnostics enable.
const DefaultExcept = Overflow | DivByZero | Invalid

// ErrUnsupported is returned when the program was built without cgo or
// for a platform that has no feenableexcept.
var ErrUnsupported = errors.New("fenv: feenableexcept not available (requires cgo on linux)")

var exceptNames = []struct {
	name string
	e    Except
}{
	{"overflow", Overflow},
	{"divbyzero", DivByZero},
	{"invalid", Invalid},
	{"underflow", Underflow},
	{"inexact", Inexact},
}

func (e Except) String() string {
	var r []string
	for _, n := range exceptNames {
		if e&n.e != 0 {
			r = append(r, n.name)
		}
	}
	if len(r) == 0 {
		return "none"
	}
	return strings.Join(r, "|")
}

// Enable enables traps for the exceptions in e and returns the set of
// exceptions that were enabled before the call. The C library's own
// return value is passed through in status; it is informational only.
func Enable(e Except) (previous Except, status int, err error) {
	return enable(e)
}

// Restore replaces the enabled trap set of the calling thread with e.
func Restore(e Except) error {
	return restore(e)
}
