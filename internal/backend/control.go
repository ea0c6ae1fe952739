package backend

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/shlex"

	"github.com/gekware/minecraft-server-hibernation/internal/errco"
	"github.com/gekware/minecraft-server-hibernation/internal/opsys"
)

// Control is the capability interface design note §9 asks for: start/stop
// the backend without the controller knowing how. Exit status is never
// inspected (spec.md §4.1 Failure semantics) — both calls are fire-and-forget.
type Control interface {
	Start() error
	Stop() error
}

// ShellControl runs the configured opaque shell commands. It is the only
// Control implementation this module ships; the teacher's Linux/Windows
// split collapses into opsys.NewProcGroupAttr, which sets Setpgid on
// non-Windows builds and CREATE_NEW_PROCESS_GROUP on Windows.
type ShellControl struct {
	StartCommand string
	StopCommands []string

	mu        sync.Mutex
	backendPID int32
}

func (c *ShellControl) Start() error {
	pid, err := runDetached(c.StartCommand)
	if err == nil {
		c.mu.Lock()
		c.backendPID = pid
		c.mu.Unlock()
	}
	return err
}

func (c *ShellControl) Stop() error {
	for _, cmd := range c.StopCommands {
		if _, err := runDetached(cmd); err != nil {
			return err
		}
	}
	return nil
}

// BackendPID returns the PID of the last process launched by Start, for
// internal/telemetry's gopsutil sampling. 0 if nothing has been started.
func (c *ShellControl) BackendPID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backendPID
}

// runDetached shell-splits command the way the teacher's termLoad does
// (strings.Split on spaces), except google/shlex also honors quoting, so a
// command like `screen -S msh -X stuff "say hi\n"` survives intact.
func runDetached(command string) (int32, error) {
	if command == "" {
		return 0, nil
	}
	parts, err := shlex.Split(command)
	if err != nil || len(parts) == 0 {
		return 0, errco.New(errco.ClassFatal, fmt.Sprintf("parsing command %q", command), err)
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.SysProcAttr = opsys.NewProcGroupAttr()

	// Fire-and-forget: Start() launches it, we never Wait() or look at the
	// exit code (spec.md §4.1 Failure semantics).
	if err := cmd.Start(); err != nil {
		return 0, errco.New(errco.ClassTransientIO, "starting backend command", err)
	}
	pid := int32(cmd.Process.Pid)
	go cmd.Wait() // reap the child so it doesn't become a zombie

	return pid, nil
}
