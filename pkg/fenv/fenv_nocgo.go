//go:build !cgo || !linux

package fenv

func enable(e Except) (Except, int, error) {
	return 0, -1, ErrUnsupported
}

func restore(e Except) error {
	return ErrUnsupported
}

// Supported reports whether Enable can reach the C library.
func Supported() bool { return false }
