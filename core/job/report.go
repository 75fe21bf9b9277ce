package job

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"
)

// Reporter writes one line per reaped child.
type Reporter struct {
	w io.Writer

	ok       *color.Color
	failed   *color.Color
	signaled *color.Color
}

// NewReporter creates a reporter writing to w, colorized when useColor is set.
func NewReporter(w io.Writer, useColor bool) *Reporter {
	r := &Reporter{
		w:        w,
		ok:       color.New(color.FgGreen),
		failed:   color.New(color.FgRed, color.Bold),
		signaled: color.New(color.FgYellow, color.Bold),
	}
	for _, c := range []*color.Color{r.ok, r.failed, r.signaled} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Report writes the outcome of a child.
func (r *Reporter) Report(o Outcome) {
	pid := "-"
	if o.Pid > 0 {
		pid = strconv.Itoa(o.Pid)
	}

	fmt.Fprintf(r.w, "[%s] %s: ", pid, o.Name)
	switch {
	case o.Status.Signaled:
		r.signaled.Fprintf(r.w, "terminated by signal %s", signalName(o.Status))
	case o.Status.Code == 0:
		r.ok.Fprintf(r.w, "exited with code: %d", o.Status.Code)
	default:
		r.failed.Fprintf(r.w, "exited with code: %d", o.Status.Code)
	}
	fmt.Fprintln(r.w)
}

func signalName(s Status) string {
	if name := unix.SignalName(s.Signal); name != "" {
		return name
	}
	return strconv.Itoa(int(s.Signal))
}
