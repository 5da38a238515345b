// Package fpcr reads, writes and decodes the AArch64 floating-point
// control register (FPCR).
//
// FPCR is per-thread state: callers that change it must hold the
// goroutine on its OS thread (runtime.LockOSThread) until they restore
// the previous value.
package fpcr

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Value is an image of the FPCR register.
type Value uint64

// Exception trap enable bits.
const (
	IOE Value = 1 << 8  // Invalid Operation
	DZE Value = 1 << 9  // Divide by Zero
	OFE Value = 1 << 10 // Overflow
	UFE Value = 1 << 11 // Underflow
	IXE Value = 1 << 12 // Inexact
	IDE Value = 1 << 15 // Input Denormal
)

// Non-trap control fields.
const (
	RMode Value = 3 << 22
	FZ    Value = 1 << 24
	DN    Value = 1 << 25
	AHP   Value = 1 << 26
)

// DefaultTraps is the set of traps the diagnostics enable.
const DefaultTraps = IOE | DZE | OFE

// ErrUnsupported is returned when FPCR cannot be accessed on the running
// architecture.
var ErrUnsupported = errors.New("fpcr: not supported on this architecture")

// Accessor loads and stores FPCR for the calling thread.
type Accessor interface {
	Load() (Value, error)
	Store(Value) error
}

// Hardware accesses the real register of the current thread.
var Hardware Accessor = hardware{}

type hardware struct{}

func (hardware) Load() (Value, error) {
	if !Supported() {
		return 0, ErrUnsupported
	}
	return Value(get()), nil
}

func (hardware) Store(v Value) error {
	if !Supported() {
		return ErrUnsupported
	}
	set(uint64(v))
	return nil
}

// Trap describes one exception trap enable bit.
type Trap struct {
	Name string // architectural field name, e.g. "OFE"
	Kind string // name accepted by ParseTraps, e.g. "overflow"
	Bit  Value
}

// Traps lists the trap enable bits in reporting order.
var Traps = []Trap{
	{"OFE", "overflow", OFE},
	{"DZE", "divbyzero", DZE},
	{"IOE", "invalid", IOE},
	{"UFE", "underflow", UFE},
	{"IXE", "inexact", IXE},
	{"IDE", "denormal", IDE},
}

// ParseTraps converts a list of trap names (either the architectural
// field name or the exception kind, case insensitive) into a mask.
// An empty list yields DefaultTraps.
func ParseTraps(names []string) (Value, error) {
	if len(names) == 0 {
		return DefaultTraps, nil
	}
	var mask Value
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := false
		for _, t := range Traps {
			if strings.EqualFold(name, t.Name) || strings.EqualFold(name, t.Kind) {
				mask |= t.Bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown trap %q", name)
		}
	}
	return mask, nil
}

// Has reports whether every bit of mask is set in v.
func (v Value) Has(mask Value) bool {
	return v&mask == mask
}

// Missing returns the bits of want that are not set in v.
func (v Value) Missing(want Value) Value {
	return want &^ v
}

// TrapStatus is the state of one requested trap bit after a write.
type TrapStatus struct {
	Trap
	Enabled bool
}

// Check returns, in reporting order, the status of every trap bit of want
// as seen in v.
func (v Value) Check(want Value) []TrapStatus {
	var r []TrapStatus
	for _, t := range Traps {
		if want&t.Bit == 0 {
			continue
		}
		r = append(r, TrapStatus{Trap: t, Enabled: v&t.Bit != 0})
	}
	return r
}

func (v Value) String() string {
	return fmt.Sprintf("0x%016x", uint64(v))
}

type flagRegisterDescr []flagDescr
type flagDescr struct {
	name string
	mask Value
}

var fpcrDescription flagRegisterDescr = []flagDescr{
	{"AHP", AHP},
	{"DN", DN},
	{"FZ", FZ},
	{"RMode", RMode},
	{"IDE", IDE},
	{"IXE", IXE},
	{"UFE", UFE},
	{"OFE", OFE},
	{"DZE", DZE},
	{"IOE", IOE},
}

func (descr flagRegisterDescr) mask() Value {
	var r Value
	for _, f := range descr {
		r |= f.mask
	}
	return r
}

// Describe returns v followed by the names of its set fields, in the same
// format used for other flag registers: "0x… [DZE OFE RMode=0]".
func (v Value) Describe() string {
	var r []string
	for _, f := range fpcrDescription {
		// rbm is f.mask with only the right-most bit set.
		rbm := f.mask & -f.mask
		if rbm == f.mask {
			if v&f.mask != 0 {
				r = append(r, f.name)
			}
		} else {
			x := (v & f.mask) >> uint(bits.TrailingZeros64(uint64(rbm)))
			r = append(r, fmt.Sprintf("%s=%x", f.name, uint64(x)))
		}
	}
	if v&^fpcrDescription.mask() != 0 {
		r = append(r, fmt.Sprintf("unknown_flags=%x", uint64(v&^fpcrDescription.mask())))
	}
	return fmt.Sprintf("0x%016x\t[%s]", uint64(v), strings.Join(r, " "))
}
