//go:build windows

package opsys

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// reuseAddrControl mirrors the unix build's SO_REUSEADDR setup using the
// Windows socket option constants from golang.org/x/sys/windows, since the
// syscall package alone does not export SO_REUSEADDR on this platform.
func reuseAddrControl(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		one := int32(1)
		sockErr = windows.Setsockopt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, (*byte)(unsafe.Pointer(&one)), 4)
	})
	if err != nil {
		return err
	}
	return sockErr
}
