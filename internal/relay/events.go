package relay

import "github.com/andresmejia3/headtrack/internal/opensee"

// Tracking is emitted once per decoded packet.
type Tracking struct {
	SessionID string
	FaceID    int32
	Time      float64
	// Raw is the derived rotation before offsets are applied.
	Raw opensee.Rotation
	// Corrected is Raw plus the session offsets; this is what the sink receives.
	Corrected opensee.Rotation
}

// Observer receives session events. Callbacks run on the relay worker
// goroutine and must not block.
type Observer interface {
	OnTracking(Tracking)
	OnStopped(sessionID string)
	OnError(sessionID string, err *Error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Tracking func(Tracking)
	Stopped  func(sessionID string)
	Error    func(sessionID string, err *Error)
}

func (o ObserverFuncs) OnTracking(t Tracking) {
	if o.Tracking != nil {
		o.Tracking(t)
	}
}

func (o ObserverFuncs) OnStopped(id string) {
	if o.Stopped != nil {
		o.Stopped(id)
	}
}

func (o ObserverFuncs) OnError(id string, err *Error) {
	if o.Error != nil {
		o.Error(id, err)
	}
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnTracking(t Tracking) {
	for _, o := range m {
		o.OnTracking(t)
	}
}

func (m MultiObserver) OnStopped(id string) {
	for _, o := range m {
		o.OnStopped(id)
	}
}

func (m MultiObserver) OnError(id string, err *Error) {
	for _, o := range m {
		o.OnError(id, err)
	}
}
