package job

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Status is how a process terminated.
type Status struct {
	Signaled bool
	// Code is the exit code, valid when Signaled is false.
	Code int
	// Signal is the terminating signal, valid when Signaled is true.
	Signal syscall.Signal
}

// Exited creates a normal exit status.
func Exited(code int) Status {
	return Status{Code: code}
}

// KilledBy creates a signal termination status.
func KilledBy(sig syscall.Signal) Status {
	return Status{Signaled: true, Signal: sig}
}

// Process is a started program.
type Process interface {
	Pid() int
	// Wait blocks until the process terminates. It may only be called once.
	Wait() (Status, error)
}

// Execer starts external programs. stdio holds the stdin, stdout and stderr
// the child will see; no other descriptor is passed down.
type Execer interface {
	Start(argv []string, stdio [3]*os.File) (Process, error)
}

// IsExecFailure reports whether err means the program couldn't be located or
// executed, as opposed to the process itself failing to be created. Any error
// from the exec step counts, except the few errnos that mean the system ran
// out of room for a new process.
func IsExecFailure(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) {
		return true
	}

	var pathErr *os.PathError
	if !errors.As(err, &pathErr) || pathErr.Op != "fork/exec" {
		return false
	}

	var errno syscall.Errno
	if errors.As(pathErr.Err, &errno) && isForkFailure(errno) {
		return false
	}
	return true
}

// isForkFailure reports whether errno means no process could be created.
func isForkFailure(errno syscall.Errno) bool {
	switch errno {
	case syscall.EAGAIN, syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE:
		return true
	default:
		return false
	}
}

// OSExecer starts real processes with os/exec. Descriptors the shell opens
// are close-on-exec, so a child only holds the three it was handed.
type OSExecer struct{}

var _ Execer = OSExecer{}

func (OSExecer) Start(argv []string, stdio [3]*os.File) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("start: empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	cmd.Stdin = stdio[0]
	cmd.Stdout = stdio[1]
	cmd.Stderr = stdio[2]

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Wait() (Status, error) {
	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Status{}, err
	}

	state := p.cmd.ProcessState
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return KilledBy(ws.Signal()), nil
	}
	if !state.Exited() {
		return Status{}, fmt.Errorf("wait %d: unexpected state %v", p.Pid(), state)
	}
	return Exited(state.ExitCode()), nil
}
