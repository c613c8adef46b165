package relay

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/worker"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// fakeTracker is a worker.Handle that never runs anything.
type fakeTracker struct {
	done       chan struct{}
	once       sync.Once
	err        error
	terminated atomic.Bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{done: make(chan struct{})}
}

func (f *fakeTracker) Pid() int { return 4242 }

func (f *fakeTracker) Terminate() {
	f.terminated.Store(true)
	f.exit(nil)
}

// exit simulates the tracker dying on its own.
func (f *fakeTracker) exit(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

func (f *fakeTracker) Done() <-chan struct{} { return f.done }
func (f *fakeTracker) Err() error            { return f.err }
func (f *fakeTracker) Logs() string          { return "" }

type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	launches [][]string
	trackers []*fakeTracker
}

func (l *fakeLauncher) Launch(executable string, args []string) (worker.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, append([]string{executable}, args...))
	if l.err != nil {
		return nil, l.err
	}
	t := newFakeTracker()
	l.trackers = append(l.trackers, t)
	return t, nil
}

func (l *fakeLauncher) last() *fakeTracker {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.trackers) == 0 {
		return nil
	}
	return l.trackers[len(l.trackers)-1]
}

func (l *fakeLauncher) calls() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]string(nil), l.launches...)
}

// recorder collects observer events.
type recorder struct {
	tracking chan Tracking
	stopped  chan string

	mu     sync.Mutex
	errors []*Error
}

func newRecorder() *recorder {
	return &recorder{
		tracking: make(chan Tracking, 128),
		stopped:  make(chan string, 8),
	}
}

func (r *recorder) OnTracking(t Tracking) {
	select {
	case r.tracking <- t:
	default:
	}
}

func (r *recorder) OnStopped(id string) { r.stopped <- id }

func (r *recorder) OnError(_ string, err *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recorder) errs() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Error(nil), r.errors...)
}

func (r *recorder) nextTracking(t *testing.T) Tracking {
	t.Helper()
	select {
	case tr := <-r.tracking:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("no tracking event")
	}
	return Tracking{}
}

type sent struct {
	Address string
	Value   float32
}

type captureSink struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *captureSink) SendFloat(address string, v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{address, v})
	return s.err
}

func (s *captureSink) all() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

var errSinkDown = errors.New("sink down")

// packet encodes a record whose only meaningful content is the Euler angles.
func packet(x, y, z float32) []byte {
	return opensee.Encode(&opensee.Record{ID: 1, Euler: opensee.Vec3{X: x, Y: y, Z: z}})
}

// sendTo writes datagrams to a session's receive port in order.
func sendTo(t *testing.T, port int, datagrams ...[]byte) {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	for _, d := range datagrams {
		if _, err := conn.Write(d); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}
