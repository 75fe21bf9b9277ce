package job

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func osLauncher(t *testing.T, dir string) *Launcher {
	t.Helper()

	l := NewLauncher(nil)
	l.Stdio = testStdio(t, dir)
	return l
}

func TestOSExecer_redirectAppends(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0644))

	c := &Coordinator{}
	outcomes, err := c.Run(plan(t, dir, "echo hi > out.txt"), osLauncher(t, dir), nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, Exited(0), outcomes[0].Status)
	assert.Greater(t, outcomes[0].Pid, 0)

	assert.Equal(t, "previous\nhi\n", readFile(t, out))
	assert.Empty(t, readFile(t, filepath.Join(dir, "stdout")))
}

func TestOSExecer_pipeline(t *testing.T) {
	dir := t.TempDir()

	c := &Coordinator{}
	outcomes, err := c.Run(plan(t, dir, "printf a\\nb\\nc\\n | tr a-z A-Z | wc -l"), osLauncher(t, dir), nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, Exited(0), o.Status, o.Name)
	}
	assert.Equal(t, "3", strings.TrimSpace(readFile(t, filepath.Join(dir, "stdout"))))
}

func TestOSExecer_upstreamFailureDoesNotStopDownstream(t *testing.T) {
	dir := t.TempDir()

	c := &Coordinator{}
	outcomes, err := c.Run(plan(t, dir, "false | echo ok"), osLauncher(t, dir), nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "false", outcomes[0].Name)
	assert.NotEqual(t, 0, outcomes[0].Status.Code)
	assert.Equal(t, "echo", outcomes[1].Name)
	assert.Equal(t, Exited(0), outcomes[1].Status)
	assert.Equal(t, "ok\n", readFile(t, filepath.Join(dir, "stdout")))
}

func TestOSExecer_programNotFound(t *testing.T) {
	dir := t.TempDir()

	c := &Coordinator{}
	outcomes, err := c.Run(plan(t, dir, "nosuchprogram-triton arg1"), osLauncher(t, dir), nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ExecFailed, outcomes[0].Launch)
	assert.Equal(t, Exited(DefaultExecFailureStatus), outcomes[0].Status)
	assert.Equal(t, int64(0), c.Outstanding())
	assert.Contains(t, readFile(t, filepath.Join(dir, "stderr")), "nosuchprogram-triton")
}

func TestOSExecer_noDescriptorLeaks(t *testing.T) {
	dir := t.TempDir()
	l := osLauncher(t, dir)
	c := &Coordinator{}

	// Warm up so lazily opened runtime descriptors don't skew the baseline.
	_, err := c.Run(plan(t, dir, "true | true"), l, nil)
	require.NoError(t, err)

	baseline := nextFd(t)
	for i := 0; i < 5; i++ {
		_, err := c.Run(plan(t, dir, "echo x | cat | cat > sink 2> errs"), l, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, baseline, nextFd(t))
	assert.Equal(t, strings.Repeat("x\n", 5), readFile(t, filepath.Join(dir, "sink")))
}

func TestOSExecer_interruptedChild(t *testing.T) {
	dir := t.TempDir()
	l := osLauncher(t, dir)
	exits := newExitRecorder()
	c := &Coordinator{Exit: exits.Exit}

	p := plan(t, dir, "sleep 30")
	c.Spawned()
	child, err := l.Launch(p.Stages[0])
	require.NoError(t, err)

	assert.False(t, c.Interrupt())
	require.NoError(t, unix.Kill(child.Pid(), unix.SIGINT))

	done := make(chan Outcome, 1)
	go func() {
		outcome, err := child.Wait()
		assert.NoError(t, err)
		done <- outcome
	}()

	select {
	case outcome := <-done:
		c.Reaped()
		assert.Equal(t, KilledBy(unix.SIGINT), outcome.Status)
	case <-time.After(10 * time.Second):
		t.Fatal("child didn't terminate")
	}

	exits.assertNone(t)
	assert.True(t, c.Interrupt())
	assert.Equal(t, InterruptExitCode, <-exits.codes)
}

func nextFd(t *testing.T) uintptr {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	fd := r.Fd()
	r.Close()
	w.Close()
	return fd
}
