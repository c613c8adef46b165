package relay

import (
	"context"
	"time"

	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/worker"
)

// Recorder persists session lifecycle. It is optional.
type Recorder interface {
	SessionStarted(ctx context.Context, s Summary) error
	SessionStopped(ctx context.Context, s Summary) error
}

// ControllerConfig is shared by every session a controller starts.
type ControllerConfig struct {
	TrackerPath string
	BindHost    string
	ReadTimeout time.Duration

	Launcher Launcher
	Sink     Sink
	Observer Observer
	Recorder Recorder
}

// StartRequest selects the camera and model for a new session.
type StartRequest struct {
	CameraID  int              `json:"camera_id"`
	Model     int              `json:"model"`
	Visualize bool             `json:"visualize"`
	Offsets   opensee.Rotation `json:"offsets"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	State     State             `json:"-"`
	StateName string            `json:"state"`
	SessionID string            `json:"session_id,omitempty"`
	CameraID  int               `json:"camera_id"`
	Model     int               `json:"model"`
	Port      int               `json:"port,omitempty"`
	Offsets   opensee.Rotation  `json:"offsets"`
	LastRaw   *opensee.Rotation `json:"last_raw,omitempty"`
	Stats     Stats             `json:"stats"`
}

// Controller serializes control requests against at most one live session.
// All session bookkeeping happens on the goroutine running Run.
type Controller struct {
	cfg  ControllerConfig
	cmds chan func(context.Context)
	quit chan struct{}

	// owned by Run
	current *Session
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Launcher == nil {
		cfg.Launcher = &worker.Supervisor{}
	}
	if cfg.TrackerPath == "" {
		cfg.TrackerPath = worker.DefaultBinary
	}
	return &Controller{
		cfg:  cfg,
		cmds: make(chan func(context.Context)),
		quit: make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled. A live session is stopped
// and drained before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.quit)
	for {
		var done <-chan struct{}
		if c.current != nil {
			done = c.current.Done()
		}
		select {
		case <-ctx.Done():
			if s := c.current; s != nil {
				s.Stop()
				<-s.Done()
				c.retire(context.WithoutCancel(ctx))
			}
			return ctx.Err()
		case <-done:
			c.retire(ctx)
		case fn := <-c.cmds:
			fn(ctx)
		}
	}
}

func (c *Controller) retire(ctx context.Context) {
	s := c.current
	c.current = nil
	if c.cfg.Recorder == nil {
		return
	}
	if err := c.cfg.Recorder.SessionStopped(ctx, s.Summary()); err != nil {
		monitoring.Logf("session %s: failed to record stop: %v", s.ID, err)
	}
}

type result[T any] struct {
	v   T
	err error
}

// call runs fn on the controller goroutine and returns its result. ctx only
// bounds the wait for the controller to accept fn; once accepted, fn's
// outcome is always delivered so a session it started is never lost.
func call[T any](ctx context.Context, c *Controller, fn func(context.Context) (T, error)) (T, error) {
	reply := make(chan result[T], 1)
	run := func(runCtx context.Context) {
		v, err := fn(runCtx)
		reply <- result[T]{v, err}
	}
	var zero T
	select {
	case c.cmds <- run:
	case <-c.quit:
		return zero, ErrControllerDown
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	r := <-reply
	return r.v, r.err
}

func (c *Controller) do(ctx context.Context, fn func(context.Context) error) error {
	_, err := call(ctx, c, func(runCtx context.Context) (struct{}, error) {
		return struct{}{}, fn(runCtx)
	})
	return err
}

// Start launches a new session. Failures are returned and also reported to
// the observer as an error followed by stopped.
func (c *Controller) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if !worker.ValidModel(req.Model) {
		return nil, ErrInvalidModel
	}
	return call(ctx, c, func(runCtx context.Context) (*Session, error) {
		if c.current != nil {
			return nil, ErrAlreadyRunning
		}
		s := NewSession(Config{
			TrackerPath: c.cfg.TrackerPath,
			CameraID:    req.CameraID,
			Model:       req.Model,
			Visualize:   req.Visualize,
			BindHost:    c.cfg.BindHost,
			ReadTimeout: c.cfg.ReadTimeout,
			Offsets:     req.Offsets,
		}, c.cfg.Launcher, c.cfg.Sink, c.cfg.Observer)
		if err := s.Start(); err != nil {
			if c.cfg.Recorder != nil {
				if rerr := c.cfg.Recorder.SessionStopped(runCtx, s.Summary()); rerr != nil {
					monitoring.Logf("session %s: failed to record failure: %v", s.ID, rerr)
				}
			}
			return nil, err
		}
		c.current = s
		if c.cfg.Recorder != nil {
			if err := c.cfg.Recorder.SessionStarted(runCtx, s.Summary()); err != nil {
				monitoring.Logf("session %s: failed to record start: %v", s.ID, err)
			}
		}
		return s, nil
	})
}

// Stop requests the live session to stop and returns without waiting for it.
func (c *Controller) Stop(ctx context.Context) error {
	return c.withSession(ctx, func(s *Session) error {
		s.Stop()
		return nil
	})
}

func (c *Controller) SetPitchOffset(ctx context.Context, v float64) error {
	return c.withSession(ctx, func(s *Session) error {
		s.Offsets().SetPitch(v)
		return nil
	})
}

func (c *Controller) SetYawOffset(ctx context.Context, v float64) error {
	return c.withSession(ctx, func(s *Session) error {
		s.Offsets().SetYaw(v)
		return nil
	})
}

func (c *Controller) SetRollOffset(ctx context.Context, v float64) error {
	return c.withSession(ctx, func(s *Session) error {
		s.Offsets().SetRoll(v)
		return nil
	})
}

// CaptureCurrentAsZero makes the current head pose the new neutral.
func (c *Controller) CaptureCurrentAsZero(ctx context.Context) error {
	return c.withSession(ctx, func(s *Session) error {
		return s.CaptureCurrentAsZero()
	})
}

func (c *Controller) withSession(ctx context.Context, fn func(*Session) error) error {
	return c.do(ctx, func(context.Context) error {
		s := c.current
		if s == nil || s.State() == Stopped {
			return ErrNotRunning
		}
		return fn(s)
	})
}

// Status reports the live session, or Idle when there is none.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	st, err := call(ctx, c, func(context.Context) (Status, error) {
		st := Status{State: Idle}
		s := c.current
		if s == nil {
			return st, nil
		}
		st.State = s.State()
		st.SessionID = s.ID
		st.CameraID = s.cfg.CameraID
		st.Model = s.cfg.Model
		st.Port = s.Port()
		st.Offsets = s.Offsets().Snapshot()
		if raw, ok := s.LastRaw(); ok {
			st.LastRaw = &raw
		}
		st.Stats = s.Stats()
		return st, nil
	})
	if err != nil {
		st = Status{State: Idle}
	}
	st.StateName = st.State.String()
	return st, err
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.quit }
