// Package pipeline allocates the pipes and redirection files that connect the
// stages of one submitted command line.
package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/josephlewis42/triton/core/shell"
)

// EndpointKind says where a standard stream of a stage is wired to.
type EndpointKind int

const (
	Inherited EndpointKind = iota
	PipeRead
	PipeWrite
	File
)

func (k EndpointKind) String() string {
	switch k {
	case Inherited:
		return "inherited"
	case PipeRead:
		return "pipe-read"
	case PipeWrite:
		return "pipe-write"
	case File:
		return "file"
	default:
		return fmt.Sprintf("EndpointKind(%d)", int(k))
	}
}

// Endpoint is one resolved standard stream. File is nil for Inherited.
type Endpoint struct {
	Kind EndpointKind
	File *os.File
	// Pipe is the index of the inter-stage pipe for pipe endpoints, -1
	// otherwise.
	Pipe int
	// Path is the redirection target for File endpoints.
	Path string
}

func inherited() Endpoint {
	return Endpoint{Kind: Inherited, Pipe: -1}
}

// Stage is a planned pipeline segment. The stage owns every non-inherited
// descriptor in Endpoints until Release is called.
type Stage struct {
	Index int
	Args  []string
	// Endpoints is indexed by shell.Stream.
	Endpoints [3]Endpoint

	released bool
}

// Name returns the program name of the stage.
func (s *Stage) Name() string {
	return s.Args[0]
}

// Endpoint returns the endpoint of the given stream.
func (s *Stage) Endpoint(stream shell.Stream) Endpoint {
	return s.Endpoints[stream]
}

// Released reports whether the stage's descriptors have been closed.
func (s *Stage) Released() bool {
	return s.released
}

// Release closes the descriptors the stage owns. It is safe to call more than
// once; only the first call closes anything.
func (s *Stage) Release() error {
	if s.released {
		return nil
	}
	s.released = true

	var errs []error
	for i := range s.Endpoints {
		ep := &s.Endpoints[i]
		if ep.File == nil {
			continue
		}
		if err := ep.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", shell.Stream(i), err))
		}
	}
	return errors.Join(errs...)
}

// Pipeline is the planned set of stages for one command line.
type Pipeline struct {
	Stages []*Stage
	// Pipes is the number of inter-stage pipes allocated.
	Pipes int
}

// Close releases every stage that hasn't been released yet.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.Stages {
		if err := s.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Opener opens redirection targets: created if absent, appended to, never
// truncated.
type Opener interface {
	OpenRedirect(path string) (*os.File, error)
}

// RedirectError is returned when a redirection target can't be opened.
type RedirectError struct {
	Stage int
	Path  string
	Err   error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// Plan allocates the pipes and opens the redirection files for the stages.
// On error nothing allocated so far is left open.
func Plan(specs []shell.StageSpec, opener Opener) (*Pipeline, error) {
	if len(specs) == 0 {
		return nil, errors.New("plan: no stages")
	}

	p := &Pipeline{}
	for i, spec := range specs {
		if len(spec.Args) == 0 {
			return nil, fmt.Errorf("plan: stage %d has no command", i)
		}
		p.Stages = append(p.Stages, &Stage{
			Index:     i,
			Args:      append([]string(nil), spec.Args...),
			Endpoints: [3]Endpoint{inherited(), inherited(), inherited()},
		})
	}

	// N stages are connected by N-1 pipes; pipe i joins stage i to i+1.
	for i := 0; i < len(p.Stages)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pipe: %w", err)
		}
		p.Pipes++
		p.Stages[i].Endpoints[shell.Stdout] = Endpoint{Kind: PipeWrite, File: w, Pipe: i}
		p.Stages[i+1].Endpoints[shell.Stdin] = Endpoint{Kind: PipeRead, File: r, Pipe: i}
	}

	// Redirections win over pipes. A displaced endpoint is closed right away
	// so the other end of its pipe still sees EOF.
	for i, spec := range specs {
		stage := p.Stages[i]
		for _, redirect := range spec.Redirects {
			fd, err := opener.OpenRedirect(redirect.Path)
			if err != nil {
				p.Close()
				return nil, &RedirectError{Stage: i, Path: redirect.Path, Err: err}
			}

			old := stage.Endpoints[redirect.Stream]
			stage.Endpoints[redirect.Stream] = Endpoint{Kind: File, File: fd, Pipe: -1, Path: redirect.Path}
			if old.File != nil {
				old.File.Close()
			}
		}
	}

	return p, nil
}
