//go:build windows

package opsys

import "syscall"

// NewProcGroupAttr returns a SysProcAttr that detaches the spawned backend
// command from the proxy's console, the closest Windows equivalent of a new
// process group for our purposes.
func NewProcGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
