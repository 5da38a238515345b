//go:build cgo && linux

package fenv

/*
#cgo LDFLAGS: -lm
#define _GNU_SOURCE
#include <fenv.h>

static int fe_map(int e) {
	int r = 0;
#ifdef FE_INVALID
	if (e & 1) r |= FE_INVALID;
#endif
#ifdef FE_DIVBYZERO
	if (e & 2) r |= FE_DIVBYZERO;
#endif
#ifdef FE_OVERFLOW
	if (e & 4) r |= FE_OVERFLOW;
#endif
#ifdef FE_UNDERFLOW
	if (e & 8) r |= FE_UNDERFLOW;
#endif
#ifdef FE_INEXACT
	if (e & 16) r |= FE_INEXACT;
#endif
	return r;
}

static int fe_unmap(int r) {
	int e = 0;
#ifdef FE_INVALID
	if (r & FE_INVALID) e |= 1;
#endif
#ifdef FE_DIVBYZERO
	if (r & FE_DIVBYZERO) e |= 2;
#endif
#ifdef FE_OVERFLOW
	if (r & FE_OVERFLOW) e |= 4;
#endif
#ifdef FE_UNDERFLOW
	if (r & FE_UNDERFLOW) e |= 8;
#endif
#ifdef FE_INEXACT
	if (r & FE_INEXACT) e |= 16;
#endif
	return e;
}

static int fptrap_enable(int e, int *prev) {
	int old = fegetexcept();
	*prev = old < 0 ? 0 : fe_unmap(old);
	return feenableexcept(fe_map(e));
}

static int fptrap_restore(int e) {
	fedisableexcept(FE_ALL_EXCEPT);
	return feenableexcept(fe_map(e));
}
*/
import "C"

func enable(e Except) (Except, int, error) {
	var prev C.int
	status := C.fptrap_enable(C.int(e), &prev)
	return Except(prev), int(status), nil
}

func restore(e Except) error {
	C.fptrap_restore(C.int(e))
	return nil
}

// Supported reports whether Enable can reach the C library.
func Supported() bool { return true }
