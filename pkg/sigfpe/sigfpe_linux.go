//go:build linux && (amd64 || arm64)

package sigfpe

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// sigactiont is the kernel's struct sigaction on amd64 and arm64.
type sigactiont struct {
	handler  uintptr
	flags    uint64
	restorer uintptr
	mask     uint64
}

// Query returns the current disposition of sig without changing it.
func Query(sig unix.Signal) (*Disposition, error) {
	var old sigactiont
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(sig), 0, uintptr(unsafe.Pointer(&old)), unsafe.Sizeof(old.mask), 0, 0)
	if errno != 0 {
		return nil, errno
	}
	return &Disposition{Signal: sig, Handler: old.handler, Flags: old.flags, Mask: old.mask}, nil
}
