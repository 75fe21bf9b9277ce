package core

import (
	"io"

	"github.com/josephlewis42/triton/core/history"
	"github.com/josephlewis42/triton/core/shell"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string, stdout, stderr io.Writer) int
}

type ShellBuiltinFunc func(s *Shell, args []string, stdout, stderr io.Writer) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string, stdout, stderr io.Writer) int {
	return f(s, args, stdout, stderr)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// History replays the history log.
func History(s *Shell, args []string, stdout, stderr io.Writer) int {
	return history.Main(s.History, args, stdout, stderr)
}

func init() {
	AllBuiltins[shell.BuiltinHistory] = ShellBuiltinFunc(History)
}
