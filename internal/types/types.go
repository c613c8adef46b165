package types

import (
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/relay"
	"github.com/andresmejia3/headtrack/internal/worker"
)

// Command types accepted on the control websocket.
const (
	CmdStart       = "start"
	CmdStop        = "stop"
	CmdSetOffset   = "set_offset"
	CmdCaptureZero = "capture_zero"
	CmdCameras     = "cameras"
	CmdStatus      = "status"
)

// Event types pushed to control clients.
const (
	EvTracking = "tracking"
	EvStopped  = "stopped"
	EvError    = "error"
	EvState    = "state"
	EvCameras  = "cameras"
)

// Command is one JSON text frame sent by a control client.
type Command struct {
	Type      string  `json:"type"`
	CameraID  int     `json:"camera_id,omitempty"`
	Model     *int    `json:"model,omitempty"` // nil means the default tier
	Visualize bool    `json:"visualize,omitempty"`
	Axis      string  `json:"axis,omitempty"` // pitch, yaw or roll
	Value     float64 `json:"value,omitempty"`
}

// Event is one JSON text frame sent to control clients.
type Event struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	FaceID    int32             `json:"face_id,omitempty"`
	Time      float64           `json:"time,omitempty"`
	Rotation  *opensee.Rotation `json:"rotation,omitempty"`
	Raw       *opensee.Rotation `json:"raw,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Message   string            `json:"message,omitempty"`
	Status    *relay.Status     `json:"status,omitempty"`
	Cameras   []worker.Camera   `json:"cameras,omitempty"`
}

// TrackingEvent renders a relay tracking update.
func TrackingEvent(t relay.Tracking) Event {
	return Event{
		Type:      EvTracking,
		SessionID: t.SessionID,
		FaceID:    t.FaceID,
		Time:      t.Time,
		Rotation:  &t.Corrected,
		Raw:       &t.Raw,
	}
}

// ErrorEvent renders an error. Relay errors keep their kind.
func ErrorEvent(sessionID string, kind string, message string) Event {
	return Event{Type: EvError, SessionID: sessionID, Kind: kind, Message: message}
}
