package relay

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/headtrack/internal/calibration"
	"github.com/andresmejia3/headtrack/internal/metrics"
	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/worker"
)

// DefaultReadTimeout bounds each readiness wait, and therefore the time a
// stop request can go unnoticed when no data is arriving.
const DefaultReadTimeout = 5 * time.Second

// DefaultBindHost is where the session listens for tracker packets.
const DefaultBindHost = "127.0.0.1"

// State is the lifecycle position of a session.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Launcher starts tracker processes. *worker.Supervisor implements it.
type Launcher interface {
	Launch(executable string, args []string) (worker.Handle, error)
}

// Config describes one relay session.
type Config struct {
	TrackerPath string
	CameraID    int
	Model       int
	Visualize   bool
	// BindHost defaults to DefaultBindHost.
	BindHost string
	// ReadTimeout defaults to DefaultReadTimeout.
	ReadTimeout time.Duration
	// Offsets seeds the calibration store.
	Offsets opensee.Rotation
}

// Session owns one UDP socket, one tracker process and one set of offsets
// from Start until the relay loop exits.
type Session struct {
	ID string

	cfg      Config
	launcher Launcher
	observer Observer
	pipeline *Pipeline

	conn *net.UDPConn
	proc worker.Handle

	state     atomic.Int32
	stop      atomic.Bool
	done      chan struct{}
	startedAt time.Time
	stoppedAt time.Time
	failure   *Error
}

// NewSession prepares an idle session. Nothing is bound or spawned until Start.
func NewSession(cfg Config, launcher Launcher, sink Sink, observer Observer) *Session {
	if cfg.BindHost == "" {
		cfg.BindHost = DefaultBindHost
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if observer == nil {
		observer = ObserverFuncs{}
	}
	id := uuid.New().String()
	offsets := calibration.New()
	offsets.Set(cfg.Offsets)
	return &Session{
		ID:       id,
		cfg:      cfg,
		launcher: launcher,
		observer: observer,
		pipeline: NewPipeline(id, offsets, sink, observer),
		done:     make(chan struct{}),
	}
}

// Start binds the receive socket, spawns the tracker and launches the relay
// worker. On failure the session is Stopped, observers get one error and a
// stopped event, and the same *Error is returned.
func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Starting)) {
		return ErrAlreadyRunning
	}
	s.startedAt = time.Now()

	addr := &net.UDPAddr{IP: net.ParseIP(s.cfg.BindHost), Port: 0}
	if addr.IP == nil {
		return s.abort(&Error{Kind: BindError, Err: fmt.Errorf("invalid bind host %q", s.cfg.BindHost)})
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return s.abort(&Error{Kind: BindError, Err: err})
	}
	s.conn = conn

	args := worker.TrackerArgs(s.cfg.CameraID, s.cfg.Model, s.Port(), s.cfg.Visualize)
	proc, err := s.launcher.Launch(s.cfg.TrackerPath, args)
	if err != nil {
		conn.Close()
		return s.abort(&Error{Kind: SpawnError, Err: err})
	}
	s.proc = proc

	metrics.SessionsTotal.Inc()
	metrics.SessionsActive.Inc()
	s.state.Store(int32(Running))
	monitoring.Logf("session %s: relaying tracker packets from %s (camera %d, model %d)",
		s.ID, conn.LocalAddr(), s.cfg.CameraID, s.cfg.Model)

	go s.run()
	return nil
}

func (s *Session) abort(e *Error) error {
	s.failure = e
	s.stoppedAt = time.Now()
	s.state.Store(int32(Stopped))
	metrics.SessionErrors.WithLabelValues(string(e.Kind)).Inc()
	s.observer.OnError(s.ID, e)
	s.observer.OnStopped(s.ID)
	close(s.done)
	return e
}

// Stop requests a cooperative shutdown and returns immediately. The flag is
// set before the read deadline is pulled in, and the worker re-reads the flag
// after arming each deadline, so a pending read is always cut short.
func (s *Session) Stop() {
	if s.stop.Swap(true) {
		return
	}
	if s.state.CompareAndSwap(int32(Running), int32(Stopping)) && s.conn != nil {
		_ = s.conn.SetReadDeadline(time.Now())
	}
}

func (s *Session) run() {
	var failure *Error
	defer func() { s.finish(failure) }()

	buf := make([]byte, 64*1024)
	for {
		if s.stop.Load() {
			return
		}
		select {
		case <-s.proc.Done():
			failure = &Error{Kind: TrackerExited, Err: exitError(s.proc)}
			return
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			failure = &Error{Kind: BindError, Err: err}
			return
		}
		// A Stop that landed before the deadline above was armed had its
		// shortened deadline overwritten.
		if s.stop.Load() {
			return
		}
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.pipeline.Timeout()
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				failure = &Error{Kind: BindError, Err: err}
				return
			}
			monitoring.Logf("session %s: udp read error: %v", s.ID, err)
			continue
		}
		s.pipeline.HandleDatagram(buf[:n])
	}
}

func (s *Session) finish(failure *Error) {
	s.state.Store(int32(Stopping))
	s.proc.Terminate()
	s.conn.Close()
	metrics.SessionsActive.Dec()

	s.failure = failure
	s.stoppedAt = time.Now()
	s.state.Store(int32(Stopped))
	if failure != nil {
		metrics.SessionErrors.WithLabelValues(string(failure.Kind)).Inc()
		s.observer.OnError(s.ID, failure)
	}
	monitoring.Logf("session %s: stopped after %v (%d records)", s.ID, s.stoppedAt.Sub(s.startedAt).Round(time.Millisecond), s.pipeline.Stats().Decoded)
	s.observer.OnStopped(s.ID)
	close(s.done)
}

func exitError(p worker.Handle) error {
	if err := p.Err(); err != nil {
		return fmt.Errorf("tracker exited: %w", err)
	}
	return errors.New("tracker exited")
}

// Done is closed once the session is Stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State { return State(s.state.Load()) }

// Port returns the UDP port the tracker was told to send to, or 0 before bind.
func (s *Session) Port() int {
	if s.conn == nil {
		return 0
	}
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

func (s *Session) Config() Config { return s.cfg }

// Offsets returns the session's calibration store.
func (s *Session) Offsets() *calibration.Store { return s.pipeline.Offsets() }

// LastRaw returns the last uncorrected rotation, if any packet was decoded.
func (s *Session) LastRaw() (opensee.Rotation, bool) { return s.pipeline.LastRaw() }

// CaptureCurrentAsZero zeroes the offsets against the last raw reading.
func (s *Session) CaptureCurrentAsZero() error {
	raw, ok := s.LastRaw()
	if !ok {
		return ErrNoReading
	}
	s.Offsets().CaptureAsZero(raw)
	return nil
}

func (s *Session) Stats() Stats { return s.pipeline.Stats() }

// Failure returns the fatal error that ended the session, if any. Only
// meaningful after Done is closed.
func (s *Session) Failure() *Error {
	select {
	case <-s.done:
		return s.failure
	default:
		return nil
	}
}

// Tracker returns the session's process handle, nil before a successful Start.
func (s *Session) Tracker() worker.Handle { return s.proc }

// Summary describes the session for the audit log.
func (s *Session) Summary() Summary {
	sum := Summary{
		ID:        s.ID,
		CameraID:  s.cfg.CameraID,
		Model:     s.cfg.Model,
		Port:      s.Port(),
		StartedAt: s.startedAt,
		Stats:     s.Stats(),
	}
	select {
	case <-s.done:
		sum.StoppedAt = s.stoppedAt
		if s.failure != nil {
			sum.ErrorKind = s.failure.Kind
			sum.ErrorMessage = s.failure.Message()
		}
	default:
	}
	return sum
}

// Summary is the audit view of a session.
type Summary struct {
	ID           string
	CameraID     int
	Model        int
	Port         int
	StartedAt    time.Time
	StoppedAt    time.Time
	Stats        Stats
	ErrorKind    ErrorKind
	ErrorMessage string
}
