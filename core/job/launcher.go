package job

import (
	"fmt"
	"io"
	"os"

	"github.com/josephlewis42/triton/core/pipeline"
	"github.com/josephlewis42/triton/core/shell"
)

// DefaultExecFailureStatus is the exit code of a stage whose program couldn't
// be executed.
const DefaultExecFailureStatus = 127

// LaunchState tracks one stage through the launcher.
//
//	Planned -> Forked -> {BuiltinServed | Execd | ExecFailed}
type LaunchState int

const (
	Planned LaunchState = iota
	Forked
	BuiltinServed
	Execd
	ExecFailed
)

func (s LaunchState) String() string {
	switch s {
	case Planned:
		return "planned"
	case Forked:
		return "forked"
	case BuiltinServed:
		return "builtin"
	case Execd:
		return "exec"
	case ExecFailed:
		return "exec-failed"
	default:
		return fmt.Sprintf("LaunchState(%d)", int(s))
	}
}

// Builtin is a command served by the shell itself.
type Builtin interface {
	Serve(args []string, stdout, stderr io.Writer) int
}

// BuiltinFunc adapts a function to the Builtin interface.
type BuiltinFunc func(args []string, stdout, stderr io.Writer) int

func (f BuiltinFunc) Serve(args []string, stdout, stderr io.Writer) int {
	return f(args, stdout, stderr)
}

var _ Builtin = (BuiltinFunc)(nil)

// LaunchError is a failure to create a process at all. It is fatal to the
// shell.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("fork %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launcher starts one process per planned stage.
type Launcher struct {
	Exec     Execer
	Builtins map[string]Builtin
	// ExecFailureStatus is the exit code given to stages whose program can't
	// be executed.
	ExecFailureStatus int
	// Stdio holds the streams inherited endpoints resolve to.
	Stdio [3]*os.File
}

// NewLauncher creates a launcher for real processes on the shell's own
// standard streams.
func NewLauncher(builtins map[string]Builtin) *Launcher {
	return &Launcher{
		Exec:              OSExecer{},
		Builtins:          builtins,
		ExecFailureStatus: DefaultExecFailureStatus,
		Stdio:             [3]*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
}

func (l *Launcher) stdio(stage *pipeline.Stage) [3]*os.File {
	var out [3]*os.File
	for i, ep := range stage.Endpoints {
		if ep.Kind == pipeline.Inherited {
			out[i] = l.Stdio[i]
		} else {
			out[i] = ep.File
		}
	}
	return out
}

// Launch starts the stage and returns its child. Ownership of the stage's
// descriptors passes to the launcher: they are closed in the parent once the
// child holds its own copies. Only a *LaunchError is returned.
func (l *Launcher) Launch(stage *pipeline.Stage) (*Child, error) {
	child := &Child{
		Stage:  stage.Index,
		Name:   stage.Name(),
		Launch: Forked,
		state:  Spawned,
	}
	stdio := l.stdio(stage)

	if builtin, ok := l.Builtins[child.Name]; ok {
		child.Launch = BuiltinServed
		child.start(serveBuiltin(builtin, stage, stdio))
		return child, nil
	}

	proc, err := l.Exec.Start(stage.Args, stdio)
	switch {
	case err == nil:
		stage.Release()
		child.Launch = Execd
		child.start(proc)
		return child, nil

	case IsExecFailure(err):
		fmt.Fprintf(stdio[shell.Stderr], "triton: %s: %v\n", child.Name, err)
		stage.Release()
		child.Launch = ExecFailed
		child.start(&exitedProcess{status: Exited(l.execFailureStatus())})
		return child, nil

	default:
		stage.Release()
		return nil, &LaunchError{Name: child.Name, Err: err}
	}
}

func (l *Launcher) execFailureStatus() int {
	if l.ExecFailureStatus == 0 {
		return DefaultExecFailureStatus
	}
	return l.ExecFailureStatus
}

// exitedProcess stands in for a child that terminated before it ran.
type exitedProcess struct {
	status Status
}

func (p *exitedProcess) Pid() int {
	return 0
}

func (p *exitedProcess) Wait() (Status, error) {
	return p.status, nil
}

// builtinProcess runs a builtin on its own goroutine so the stages around it
// can make progress through their pipes.
type builtinProcess struct {
	done   chan struct{}
	status Status
}

func serveBuiltin(b Builtin, stage *pipeline.Stage, stdio [3]*os.File) *builtinProcess {
	proc := &builtinProcess{done: make(chan struct{})}
	go func() {
		defer close(proc.done)
		defer stage.Release()
		proc.status = Exited(b.Serve(stage.Args, stdio[shell.Stdout], stdio[shell.Stderr]))
	}()
	return proc
}

func (p *builtinProcess) Pid() int {
	return 0
}

func (p *builtinProcess) Wait() (Status, error) {
	<-p.done
	return p.status, nil
}
