// Package shell turns a submitted command line into pipeline stages.
//
// The grammar is a deliberately small subset of the POSIX shell command
// language (https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html):
//
// 1. The line is broken into tokens on whitespace. There is no quoting,
// escaping, expansion or globbing.
//
// 2. The tokens are split into simple commands on the pipe operator "|".
//
// 3. Redirection operators (">" and "2>") and their operands are removed from
// the parameter list of the command they appear in and recorded against it.
package shell

import (
	"errors"
	"fmt"
	"strings"
)

const (
	OpPipe         = "|"
	OpRedirectOut  = ">"
	OpRedirectErr  = "2>"
	BuiltinHistory = "history"
)

// ErrSyntax is matched by every error Parse returns.
var ErrSyntax = errors.New("syntax error")

// SyntaxError describes a malformed pipeline.
type SyntaxError struct {
	// Token is the token the parser stopped at, empty at end of line.
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error: %s", e.Msg)
	}
	return fmt.Sprintf("syntax error near %q: %s", e.Token, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// Stream identifies a standard stream of a stage.
type Stream int

const (
	Stdin Stream = iota
	Stdout
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdin:
		return "stdin"
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("Stream(%d)", int(s))
	}
}

// Redirect sends a stream of a stage to a file.
type Redirect struct {
	Stream Stream
	Path   string
}

// StageSpec is one unplanned pipeline segment: program arguments plus the
// redirections written against it, in the order they appeared.
type StageSpec struct {
	Args      []string
	Redirects []Redirect
}

// Name returns the program name of the stage.
func (s StageSpec) Name() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}

// String renders the stage back into command line form.
func (s StageSpec) String() string {
	parts := append([]string{}, s.Args...)
	for _, r := range s.Redirects {
		op := OpRedirectOut
		if r.Stream == Stderr {
			op = OpRedirectErr
		}
		parts = append(parts, op, r.Path)
	}
	return strings.Join(parts, " ")
}

// Tokenize splits a line into whitespace separated tokens.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

func isOperator(token string) bool {
	switch token {
	case OpPipe, OpRedirectOut, OpRedirectErr:
		return true
	default:
		return false
	}
}

// Parse splits tokens into stages. An empty token list produces no stages and
// no error.
func Parse(tokens []string) ([]StageSpec, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var stages []StageSpec
	var current StageSpec

	// endStage closes off the stage being accumulated; tok is the token that
	// ended it, for error reporting.
	endStage := func(tok string) error {
		if len(current.Args) == 0 {
			if len(current.Redirects) > 0 {
				return &SyntaxError{Token: tok, Msg: "missing command before redirection"}
			}
			return &SyntaxError{Token: tok, Msg: "empty pipeline stage"}
		}
		stages = append(stages, current)
		current = StageSpec{}
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; tok {
		case OpPipe:
			if err := endStage(tok); err != nil {
				return nil, err
			}
			if i == len(tokens)-1 {
				return nil, &SyntaxError{Token: tok, Msg: "missing command after pipe"}
			}

		case OpRedirectOut, OpRedirectErr:
			if i+1 >= len(tokens) {
				return nil, &SyntaxError{Token: tok, Msg: "missing file name"}
			}
			i++
			if isOperator(tokens[i]) {
				return nil, &SyntaxError{Token: tokens[i], Msg: "missing file name"}
			}
			stream := Stdout
			if tok == OpRedirectErr {
				stream = Stderr
			}
			current.Redirects = append(current.Redirects, Redirect{Stream: stream, Path: tokens[i]})

		default:
			current.Args = append(current.Args, tok)
		}
	}

	if err := endStage(""); err != nil {
		return nil, err
	}

	return stages, nil
}

// ParseLine tokenizes and parses a full command line.
func ParseLine(line string) ([]StageSpec, error) {
	return Parse(Tokenize(line))
}
