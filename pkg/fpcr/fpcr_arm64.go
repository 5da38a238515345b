//go:build arm64

package fpcr

// Supported reports whether FPCR can be accessed on this architecture.
func Supported() bool { return true }

// get returns the value of the FPCR register.
func get() uint64

// set writes the FPCR register.
func set(value uint64)
