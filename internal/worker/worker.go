package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/utils" // Using the SafeCommand wrapper
)

// DefaultBinary is the tracker executable looked up on PATH when no explicit
// path is configured.
const DefaultBinary = "facetracker"

// DefaultTerminateGrace is how long a terminated tracker gets to exit before
// it is killed.
const DefaultTerminateGrace = 3 * time.Second

// SpawnError reports a tracker that could not be launched.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start tracker %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Handle is the view of a running tracker that a relay session owns.
type Handle interface {
	Pid() int
	// Terminate requests shutdown and returns without waiting.
	Terminate()
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Err returns the exit error. Only meaningful after Done is closed.
	Err() error
	// Logs returns the captured tail of the tracker's stderr.
	Logs() string
}

// Supervisor launches tracker processes.
type Supervisor struct {
	// TerminateGrace bounds the wait between Terminate and a forced kill.
	// Zero means DefaultTerminateGrace.
	TerminateGrace time.Duration
	// Env is appended to the parent environment for every launch.
	Env []string
}

// Process is a tracker child process. The exit status is collected in the
// background so the child never lingers as a zombie.
type Process struct {
	Cmd *utils.SafeCommand

	grace    time.Duration
	done     chan struct{}
	err      error
	termOnce sync.Once
}

// Start launches executable with args. The process keeps running until it
// exits on its own or Terminate is called.
func (s *Supervisor) Start(executable string, args ...string) (*Process, error) {
	cmd := utils.NewSafeCommand(executable, args...)
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: executable, Err: err}
	}

	grace := s.TerminateGrace
	if grace <= 0 {
		grace = DefaultTerminateGrace
	}
	p := &Process{Cmd: cmd, grace: grace, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	monitoring.Logf("tracker started (pid %d): %s %v", p.Pid(), executable, args)
	return p, nil
}

// Launch is Start for callers that only need a Handle. It never returns a
// non-nil Handle alongside an error.
func (s *Supervisor) Launch(executable string, args []string) (Handle, error) {
	p, err := s.Start(executable, args...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) Pid() int {
	return p.Cmd.Process.Pid
}

func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *Process) Logs() string {
	return p.Cmd.Stderr.String()
}

// Terminate sends SIGTERM (or kills outright where signals are unsupported)
// and returns immediately. If the tracker is still alive after the grace
// period it is killed. Calling Terminate more than once has no extra effect.
func (p *Process) Terminate() {
	p.termOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}

		if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = p.Cmd.Process.Kill()
			return
		}

		go func() {
			t := time.NewTimer(p.grace)
			defer t.Stop()
			select {
			case <-p.done:
			case <-t.C:
				monitoring.Logf("tracker (pid %d) ignored SIGTERM for %v, killing", p.Pid(), p.grace)
				_ = p.Cmd.Process.Kill()
			}
		}()
	})
}

// Wait blocks until the process exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackerArgs builds the tracker command line for a relay session.
func TrackerArgs(cameraID, model, port int, visualize bool) []string {
	args := []string{
		"-c", strconv.Itoa(cameraID),
		"-m", strconv.Itoa(model),
		"-p", strconv.Itoa(port),
	}
	if visualize {
		args = append(args, "-v", "1")
	}
	return args
}
