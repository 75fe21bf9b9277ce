// Package history is the append-only record of submitted command lines.
package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// FileMode is the permission the log is created with.
const FileMode os.FileMode = 0640

// Log appends lines to a single handle that is never truncated.
type Log struct {
	mu sync.Mutex
	fd afero.File
}

// Open opens or creates the log at path.
func Open(fs afero.Fs, path string) (*Log, error) {
	fd, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Log{fd: fd}, nil
}

// Name returns the path of the log file.
func (l *Log) Name() string {
	return l.fd.Name()
}

// Append records line followed by a newline.
func (l *Log) Append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.fd.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// WriteTo copies the full log, from the first entry, to w. The append
// position is not disturbed.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.fd.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat history: %w", err)
	}
	return io.Copy(w, io.NewSectionReader(l.fd, 0, info.Size()))
}

// Lines returns every entry in submission order.
func (l *Log) Lines() ([]string, error) {
	var sb strings.Builder
	if _, err := l.WriteTo(&sb); err != nil {
		return nil, err
	}

	var out []string
	r := bufio.NewReader(strings.NewReader(sb.String()))
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			out = append(out, strings.TrimSuffix(line, "\n"))
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.fd.Close()
}

// Main implements the history builtin: it replays the log to stdout.
func Main(l *Log, args []string, stdout, stderr io.Writer) int {
	opts := getopt.New()
	numbered := opts.Bool('n', "prefix each entry with its line number")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [-n]")
		fmt.Fprintln(w, "Display the command history, oldest first.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		if err != nil {
			return 1
		}
		return 0
	}

	if !*numbered {
		if _, err := l.WriteTo(stdout); err != nil {
			fmt.Fprintf(stderr, "history: %v\n", err)
			return 1
		}
		return 0
	}

	lines, err := l.Lines()
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	bw := bufio.NewWriter(stdout)
	for i, line := range lines {
		fmt.Fprintf(bw, "% 5d  %s\n", i+1, line)
	}
	if err := bw.Flush(); err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	return 0
}
