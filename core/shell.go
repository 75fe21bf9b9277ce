package core

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/abiosoft/readline"

	"github.com/josephlewis42/triton/core/config"
	"github.com/josephlewis42/triton/core/history"
	"github.com/josephlewis42/triton/core/job"
	"github.com/josephlewis42/triton/core/pipeline"
	"github.com/josephlewis42/triton/core/shell"
)

// LineReader supplies one line of input per call. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

type Shell struct {
	Config   *config.Configuration
	Readline LineReader
	History  *history.Log
	Launcher *job.Launcher
	Jobs     *job.Coordinator
	// Reporter receives one status line per reaped child.
	Reporter *job.Reporter
	// Stderr receives syntax and redirection errors.
	Stderr io.Writer
	Logger *log.Logger

	lastRet int

	// Set to true to quit the shell
	Quit bool
}

// NewShell wires a shell to the process's own standard streams and the
// configured history log. Readline is left unset; see NewTerminal.
func NewShell(cfg *config.Configuration, logger *log.Logger) (*Shell, error) {
	historyLog, err := cfg.OpenHistory()
	if err != nil {
		return nil, err
	}

	s := &Shell{
		Config:  cfg,
		History: historyLog,
		Jobs:    job.NewCoordinator(),
		Stderr:  os.Stderr,
		Logger:  logger,
	}
	s.Launcher = job.NewLauncher(s.builtins())
	s.Launcher.ExecFailureStatus = cfg.ExecFailureStatus
	s.Reporter = job.NewReporter(os.Stdout, cfg.UseColor(os.Stdout))

	return s, nil
}

// NewTerminal creates the line editor for interactive use on the process's
// own terminal.
func NewTerminal(cfg *config.Configuration) (*readline.Instance, error) {
	rlConfig := &readline.Config{
		Prompt: cfg.Prompt,
		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := rlConfig.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(rlConfig)
}

// builtins binds the registered shell builtins to this shell.
func (s *Shell) builtins() map[string]job.Builtin {
	out := make(map[string]job.Builtin)
	for name, builtin := range AllBuiltins {
		builtin := builtin
		out[name] = job.BuiltinFunc(func(args []string, stdout, stderr io.Writer) int {
			return builtin.Main(s, args, stdout, stderr)
		})
	}
	return out
}

// LastStatus returns the exit code of the last stage of the last pipeline.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Close releases the shell's terminal and history log.
func (s *Shell) Close() error {
	var errs []error
	if closer, ok := s.Readline.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if s.History != nil {
		errs = append(errs, s.History.Close())
	}
	return errors.Join(errs...)
}

// RunInteractive prompts for and runs lines until input ends or the shell
// quits. The returned error is fatal.
func (s *Shell) RunInteractive() error {
	stop := s.Jobs.Notify()
	defer stop()

	for !s.Quit {
		s.Readline.SetPrompt(s.Config.Prompt)
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Ctrl-C while editing arrives here rather than as a signal.
			s.Jobs.Interrupt()
			continue

		case err != nil:
			s.Logger.Printf("Error readline: %v", err)
			continue

		default:
			if err := s.RunCommand(line); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunCommand runs one submitted line. Syntax and redirection problems are
// reported to Stderr and abort only this line; the returned error is fatal.
func (s *Shell) RunCommand(line string) error {
	tokens := shell.Tokenize(line)
	if len(tokens) == 0 {
		return nil // empty line
	}

	// Record before anything can fail so every attempt is in the history.
	if err := s.History.Append(line); err != nil {
		return err
	}

	specs, err := shell.Parse(tokens)
	if err != nil {
		fmt.Fprintf(s.Stderr, "triton: %v\n", err)
		s.lastRet = 2
		return nil
	}

	p, err := pipeline.Plan(specs, s.Config)
	var redirectErr *pipeline.RedirectError
	switch {
	case errors.As(err, &redirectErr):
		fmt.Fprintf(s.Stderr, "triton: %v\n", err)
		s.lastRet = 1
		return nil
	case err != nil:
		return err
	}
	defer p.Close()

	outcomes, err := s.Jobs.Run(p, s.Launcher, s.report)
	if err != nil {
		return err
	}

	if n := len(outcomes); n > 0 {
		status := outcomes[n-1].Status
		if status.Signaled {
			s.lastRet = 128 + int(status.Signal)
		} else {
			s.lastRet = status.Code
		}
	}
	return nil
}

func (s *Shell) report(o job.Outcome) {
	if s.Reporter != nil {
		s.Reporter.Report(o)
	}
}
