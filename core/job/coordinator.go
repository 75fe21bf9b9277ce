package job

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/josephlewis42/triton/core/pipeline"
)

// InterruptExitCode is the status the shell exits with when interrupted.
const InterruptExitCode = 130

// Coordinator owns the count of outstanding children for the lifetime of the
// shell and decides what an interactive interrupt does.
type Coordinator struct {
	outstanding atomic.Int64

	// Exit terminates the shell; os.Exit when nil.
	Exit func(code int)
}

// NewCoordinator creates a coordinator that exits the real process.
func NewCoordinator() *Coordinator {
	return &Coordinator{Exit: os.Exit}
}

// Outstanding returns the number of children launched but not yet reaped.
func (c *Coordinator) Outstanding() int64 {
	return c.outstanding.Load()
}

// Spawned records a child about to be launched. It's called before the launch
// so an interrupt can never see a running child that isn't counted.
func (c *Coordinator) Spawned() {
	c.outstanding.Add(1)
}

// Reaped records a child that has been waited on or never started.
func (c *Coordinator) Reaped() {
	c.outstanding.Add(-1)
}

// Interrupt handles an interactive interrupt. The shell exits only when it
// has no outstanding children; otherwise the children receive the interrupt
// themselves and the shell reaps them as usual. It reports whether the shell
// is exiting.
func (c *Coordinator) Interrupt() bool {
	if c.outstanding.Load() != 0 {
		return false
	}

	exit := c.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(InterruptExitCode)
	return true
}

// Notify routes SIGINT deliveries to Interrupt until the returned stop
// function is called.
func (c *Coordinator) Notify() (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt)

	go func() {
		for {
			select {
			case <-sigs:
				c.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run launches every stage of the pipeline left to right, then waits on each
// child in launch order, reporting each outcome as it is reaped. The returned
// error is fatal to the shell.
func (c *Coordinator) Run(p *pipeline.Pipeline, l *Launcher, report func(Outcome)) ([]Outcome, error) {
	var children []*Child

	for i, stage := range p.Stages {
		c.Spawned()
		child, err := l.Launch(stage)
		if err != nil {
			c.Reaped()
			for _, unlaunched := range p.Stages[i+1:] {
				unlaunched.Release()
			}
			_, waitErr := c.wait(children, report)
			return nil, errors.Join(err, waitErr)
		}
		children = append(children, child)
	}

	return c.wait(children, report)
}

func (c *Coordinator) wait(children []*Child, report func(Outcome)) ([]Outcome, error) {
	var outcomes []Outcome
	var errs []error

	for _, child := range children {
		outcome, err := child.Wait()
		c.Reaped()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if report != nil {
			report(outcome)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, errors.Join(errs...)
}
