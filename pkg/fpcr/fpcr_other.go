//go:build !arm64

package fpcr

// Supported reports whether FPCR can be accessed on this architecture.
func Supported() bool { return false }

func get() uint64 { return 0 }

func set(value uint64) {}
