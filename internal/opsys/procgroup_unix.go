//go:build !windows

// Package opsys isolates the one platform-specific detail the backend
// controller needs: launching the backend command in its own process group
// so a signal sent to the proxy (e.g. SIGINT) is not also relayed to the
// child. Grounded on the teacher's lib/opsys (NewProcGroupAttr) and
// lib/osctrl (GetSyscallNewProcessGroup) — both names for the same thing
// across the project's revisions.
package opsys

import "syscall"

// NewProcGroupAttr returns a SysProcAttr that puts the spawned backend
// command in its own process group.
func NewProcGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
