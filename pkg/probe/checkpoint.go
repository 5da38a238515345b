package probe

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// floatingPointError is the message of the run-time panic the Go runtime
// raises when Go code receives a floating-point SIGFPE.
const floatingPointError = "floating point error"

// IsFloatingPointFault reports whether a recovered panic value is the
// run-time error produced by a floating-point trap.
func IsFloatingPointFault(r interface{}) bool {
	re, ok := r.(runtime.Error)
	return ok && strings.Contains(re.Error(), floatingPointError)
}

// Fault describes where a floating-point trap was taken.
type Fault struct {
	Err         string
	PC          uintptr
	Function    string
	File        string
	Line        int
	Instruction string
}

func (f *Fault) String() string {
	if f.PC == 0 {
		return f.Err
	}
	s := fmt.Sprintf("%#x in %s at %s:%d", f.PC, f.Function, f.File, f.Line)
	if f.Instruction != "" {
		s += ": " + f.Instruction
	}
	return s
}

// Checkpoint is the point execution resumes at after a floating-point
// trap. Faulted is false while fn runs and becomes true only if a trap
// unwinds fn.
type Checkpoint struct {
	// OnResume, if set, runs before anything else once control is back at
	// the checkpoint, whether or not a trap was taken.
	OnResume func()

	Faulted bool
	Fault   *Fault
}

// Run calls fn and returns its result. A floating-point trap raised by
// fn is absorbed and recorded; any other panic propagates.
func (c *Checkpoint) Run(fn func() float64) (result float64) {
	c.Faulted = false
	c.Fault = nil
	defer func() {
		if c.OnResume != nil {
			c.OnResume()
		}
		r := recover()
		if r == nil {
			return
		}
		if !IsFloatingPointFault(r) {
			panic(r)
		}
		c.Faulted = true
		c.Fault = faultFromStack(r.(runtime.Error))
	}()
	return fn()
}

// faultFromStack locates the frame that received the signal. It must be
// called from the deferred function while the panic is in progress.
func faultFromStack(err runtime.Error) *Fault {
	f := &Fault{Err: err.Error()}
	pcs := make([]uintptr, 64)
	n := runtime.Callers(0, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterSigpanic := false
	for {
		frame, more := frames.Next()
		if afterSigpanic {
			f.PC = frame.PC
			f.Function = frame.Function
			f.File = frame.File
			f.Line = frame.Line
			break
		}
		if frame.Function == "runtime.sigpanic" {
			afterSigpanic = true
		}
		if !more {
			break
		}
	}
	if f.PC != 0 {
		if mem, err := textAt(f.PC, runtime.GOARCH); err == nil {
			if inst, err := DecodeInstruction(runtime.GOARCH, uint64(f.PC), mem); err == nil {
				f.Instruction = inst
			}
		}
	}
	return f
}

// textAt reads the bytes of the instruction at pc from the process's own
// memory file, so that no integer is turned back into a pointer.
func textAt(pc uintptr, arch string) ([]byte, error) {
	var n int
	switch arch {
	case "arm64":
		pc &^= 3
		n = 4
	case "amd64":
		n = 15
	default:
		return nil, fmt.Errorf("no instruction size for %s", arch)
	}
	f, err := os.Open("/proc/self/mem")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	// An amd64 read may run past the end of the mapping; the bytes before
	// it are still a whole instruction.
	got, err := f.ReadAt(buf, int64(pc))
	if got == 0 {
		return nil, err
	}
	return buf[:got], nil
}
