package job

import (
	"errors"
	"fmt"
)

// ErrAlreadyReaped is returned when a child is waited on a second time.
var ErrAlreadyReaped = errors.New("child already reaped")

// State is the lifecycle of a child process.
//
//	Spawned -> Running -> {Exited | Signaled} -> Reaped
type State int

const (
	Spawned State = iota
	Running
	ExitedNormally
	TerminatedBySignal
	Reaped
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Running:
		return "running"
	case ExitedNormally:
		return "exited"
	case TerminatedBySignal:
		return "signaled"
	case Reaped:
		return "reaped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the reported result of one reaped child.
type Outcome struct {
	Stage  int
	Name   string
	Pid    int
	Launch LaunchState
	Status Status
}

// Child is one launched stage.
type Child struct {
	Stage  int
	Name   string
	Launch LaunchState

	proc  Process
	state State
}

func (c *Child) start(proc Process) {
	c.proc = proc
	c.state = Running
}

// Pid returns the process id of the child, or 0 if no OS process backs it.
func (c *Child) Pid() int {
	if c.proc == nil {
		return 0
	}
	return c.proc.Pid()
}

// State returns where the child is in its lifecycle.
func (c *Child) State() State {
	return c.state
}

// Wait blocks until the child terminates and reaps it.
func (c *Child) Wait() (Outcome, error) {
	switch c.state {
	case Running:
	case Reaped:
		return Outcome{}, fmt.Errorf("wait %s: %w", c.Name, ErrAlreadyReaped)
	default:
		return Outcome{}, fmt.Errorf("wait %s: child is %s", c.Name, c.state)
	}

	status, err := c.proc.Wait()
	if err != nil {
		return Outcome{}, fmt.Errorf("wait %s: %w", c.Name, err)
	}

	if status.Signaled {
		c.state = TerminatedBySignal
	} else {
		c.state = ExitedNormally
	}
	outcome := Outcome{
		Stage:  c.Stage,
		Name:   c.Name,
		Pid:    c.Pid(),
		Launch: c.Launch,
		Status: status,
	}
	c.state = Reaped
	return outcome, nil
}
