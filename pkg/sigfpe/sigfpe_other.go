//go:build !linux || !(amd64 || arm64)

package sigfpe

import "golang.org/x/sys/unix"

// Query returns the current disposition of sig without changing it.
func Query(sig unix.Signal) (*Disposition, error) {
	return nil, ErrUnsupported
}
