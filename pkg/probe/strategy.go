package probe

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/fptrap/fptrap/pkg/fenv"
	"github.com/fptrap/fptrap/pkg/fpcr"
	"github.com/fptrap/fptrap/pkg/logflags"
)

// Strategy turns floating-point traps on for the calling thread.
type Strategy interface {
	// Name identifies the strategy on the command line and in reports.
	Name() string
	// Enable enables the traps, writing diagnostics to out and recording
	// what it did in rep. The returned function puts the thread's
	// floating-point environment back the way it was.
	Enable(out io.Writer, rep *Report) (restore func(), err error)
}

// banner is implemented by strategies that announce the fault trigger
// differently.
type banner interface {
	banner() string
}

const defaultBanner = "Testing overflow..."

// New returns the strategy called name.
func New(name string, traps fpcr.Value) (Strategy, error) {
	switch name {
	case "portable":
		e, err := exceptFromTraps(traps)
		if err != nil {
			return nil, err
		}
		return &Portable{Except: e}, nil
	case "direct":
		return &Direct{Traps: traps}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// Names lists the available strategies.
func Names() []string {
	return []string{"portable", "direct"}
}

// Portable enables traps through the C library's feenableexcept.
type Portable struct {
	// Except is the set of exceptions to trap. New fills it from the
	// requested FPCR enable bits.
	Except fenv.Except
}

func (p *Portable) Name() string { return "portable" }

func (p *Portable) Enable(out io.Writer, rep *Report) (func(), error) {
	e := p.Except
	fmt.Fprintln(out, "Enabling FP traps...")
	prev, status, err := fenv.Enable(e)
	if err != nil {
		return nil, err
	}
	rep.FenvStatus = status
	logflags.ProbeLogger().Debugf("feenableexcept(%s) = %d, previously enabled %s", e, status, prev)
	return func() { fenv.Restore(prev) }, nil
}

// Direct enables traps by writing the trap enable bits of FPCR and reading
// the register back to check that they persisted.
type Direct struct {
	// Traps is the set of enable bits to set; zero means
	// fpcr.DefaultTraps.
	Traps fpcr.Value
	// Register is the register to program; nil means fpcr.Hardware.
	Register fpcr.Accessor
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) banner() string { return "\nTesting overflow (1e308 * 1e308)..." }

func (d *Direct) Enable(out io.Writer, rep *Report) (func(), error) {
	traps := d.Traps
	if traps == 0 {
		traps = fpcr.DefaultTraps
	}
	reg := d.Register
	if reg == nil {
		reg = fpcr.Hardware
	}
	log := logflags.FPCRLogger()

	before, err := reg.Load()
	if err != nil {
		return nil, errors.Wrap(err, "reading FPCR")
	}
	fmt.Fprintf(out, "FPCR before: 0x%016x\n", uint64(before))
	log.Debugf("before %s", before.Describe())

	requested := before | traps
	fmt.Fprintf(out, "Setting FPCR to: 0x%016x\n", uint64(requested))
	if err := reg.Store(requested); err != nil {
		return nil, errors.Wrap(err, "writing FPCR")
	}
	restore := func() { reg.Store(before) }

	after, err := reg.Load()
	if err != nil {
		restore()
		return nil, errors.Wrap(err, "reading FPCR back")
	}
	fmt.Fprintf(out, "FPCR after:  0x%016x\n", uint64(after))
	log.Debugf("after %s", after.Describe())

	rep.Before, rep.Requested, rep.After = before, requested, after
	rep.Traps = after.Check(traps)

	if !after.Has(traps) {
		fmt.Fprintln(out, "WARNING: FPCR trap bits did not stick!")
		for _, st := range rep.Traps {
			fmt.Fprintf(out, "  %s: %s\n", st.Name, enabledString(st.Enabled))
		}
		log.WithField("missing", after.Missing(traps)).Warn("trap enable bits ignored by the register")
	} else {
		fmt.Fprintln(out, "Trap bits successfully set.")
	}
	return restore, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "NOT enabled"
}

// exceptFromTraps maps FPCR trap enable bits to the portable exception set.
// No traps means the default set. A bit feenableexcept has no exception
// for, such as IDE, is an error.
func exceptFromTraps(traps fpcr.Value) (fenv.Except, error) {
	if traps == 0 {
		return fenv.DefaultExcept, nil
	}
	var e fenv.Except
	mapped := fpcr.Value(0)
	for _, m := range []struct {
		bit fpcr.Value
		e   fenv.Except
	}{
		{fpcr.IOE, fenv.Invalid},
		{fpcr.DZE, fenv.DivByZero},
		{fpcr.OFE, fenv.Overflow},
		{fpcr.UFE, fenv.Underflow},
		{fpcr.IXE, fenv.Inexact},
	} {
		if traps&m.bit != 0 {
			e |= m.e
			mapped |= m.bit
		}
	}
	if unmapped := traps &^ mapped; unmapped != 0 {
		return 0, fmt.Errorf("trap %s has no portable equivalent", trapNames(unmapped))
	}
	return e, nil
}

func trapNames(mask fpcr.Value) string {
	var names []string
	for _, t := range fpcr.Traps {
		if mask&t.Bit != 0 {
			names = append(names, t.Name)
			mask &^= t.Bit
		}
	}
	if mask != 0 {
		names = append(names, mask.String())
	}
	return strings.Join(names, "|")
}
