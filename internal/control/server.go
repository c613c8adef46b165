package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/relay"
	"github.com/andresmejia3/headtrack/internal/types"
	"github.com/andresmejia3/headtrack/internal/worker"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
	// requestErrorKind tags errors caused by a bad command rather than a session fault.
	requestErrorKind = "request_error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires the controller and hub to HTTP. Hub must be among the
// controller's observers; session faults reach clients only through it.
type Server struct {
	Controller *relay.Controller
	Hub        *Hub
	// ListCameras backs the cameras command. Nil disables it.
	ListCameras func(ctx context.Context) ([]worker.Camera, error)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	monitoring.Logf("control server listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("control: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := s.Hub.subscribe()
	defer s.Hub.unsubscribe(events)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Replies and broadcast events share one writer.
	replies := make(chan types.Event, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(ctx, conn, events, replies)
	}()

	reply := func(ev types.Event) {
		select {
		case replies <- ev:
		case <-writerDone:
		}
	}

	reply(s.statusEvent(ctx))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd types.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			reply(types.ErrorEvent("", requestErrorKind, fmt.Sprintf("invalid command: %v", err)))
			continue
		}
		reply(s.Dispatch(ctx, cmd))
	}
	cancel()
	<-writerDone
}

func writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan []byte, replies <-chan types.Event) {
	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case data = <-events:
		case ev := <-replies:
			var err error
			if data, err = json.Marshal(ev); err != nil {
				monitoring.Logf("control: marshal reply: %v", err)
				continue
			}
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			monitoring.Logf("control: write event: %v", err)
			conn.Close()
			return
		}
	}
}

// Dispatch executes one command and returns the reply for the sender.
func (s *Server) Dispatch(ctx context.Context, cmd types.Command) types.Event {
	var err error
	switch cmd.Type {
	case types.CmdStart:
		model := worker.DefaultModel
		if cmd.Model != nil {
			model = *cmd.Model
		}
		_, err = s.Controller.Start(ctx, relay.StartRequest{
			CameraID:  cmd.CameraID,
			Model:     model,
			Visualize: cmd.Visualize,
		})
		var relayErr *relay.Error
		if errors.As(err, &relayErr) {
			// Already broadcast by the hub; the sender gets the resulting state.
			return s.statusEvent(ctx)
		}
	case types.CmdStop:
		err = s.Controller.Stop(ctx)
	case types.CmdSetOffset:
		switch cmd.Axis {
		case "pitch":
			err = s.Controller.SetPitchOffset(ctx, cmd.Value)
		case "yaw":
			err = s.Controller.SetYawOffset(ctx, cmd.Value)
		case "roll":
			err = s.Controller.SetRollOffset(ctx, cmd.Value)
		default:
			return types.ErrorEvent("", requestErrorKind, fmt.Sprintf("unknown axis %q", cmd.Axis))
		}
	case types.CmdCaptureZero:
		err = s.Controller.CaptureCurrentAsZero(ctx)
	case types.CmdCameras:
		return s.camerasEvent(ctx)
	case types.CmdStatus:
	default:
		return types.ErrorEvent("", requestErrorKind, fmt.Sprintf("unknown command %q", cmd.Type))
	}
	if err != nil {
		return errorEvent(err)
	}
	return s.statusEvent(ctx)
}

func (s *Server) camerasEvent(ctx context.Context) types.Event {
	if s.ListCameras == nil {
		return types.ErrorEvent("", string(relay.EnumerationError), "camera enumeration is not available")
	}
	cams, err := s.ListCameras(ctx)
	if err != nil {
		return types.ErrorEvent("", string(relay.EnumerationError), err.Error())
	}
	return types.Event{Type: types.EvCameras, Cameras: cams}
}

func (s *Server) statusEvent(ctx context.Context) types.Event {
	st, err := s.Controller.Status(ctx)
	if err != nil {
		return errorEvent(err)
	}
	return types.Event{Type: types.EvState, SessionID: st.SessionID, Status: &st}
}

func errorEvent(err error) types.Event {
	var relayErr *relay.Error
	if errors.As(err, &relayErr) {
		return types.ErrorEvent("", string(relayErr.Kind), relayErr.Message())
	}
	return types.ErrorEvent("", requestErrorKind, err.Error())
}
