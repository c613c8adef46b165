package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/headtrack/internal/control"
	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/osc"
	"github.com/andresmejia3/headtrack/internal/relay"
	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/andresmejia3/headtrack/internal/worker"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trackOpts Options

var trackCmd = &cobra.Command{
	Use:         "track",
	Short:       "Run the tracker and relay head rotation over OSC",
	Annotations: map[string]string{dbAnnotation: "optional"},
	Run: func(cmd *cobra.Command, args []string) {
		runTrack(cmd.Context(), trackOpts)
	},
}

func init() {
	trackCmd.Flags().IntVarP(&trackOpts.CameraID, "camera", "c", 0, "Camera index (see 'headtrack cameras')")
	trackCmd.Flags().IntVarP(&trackOpts.Model, "model", "m", worker.DefaultModel, "Tracking model tier, -1 (fastest) to 3 (most accurate)")
	trackCmd.Flags().BoolVarP(&trackOpts.Visualize, "visualize", "v", false, "Show the tracker's preview window")
	trackCmd.Flags().StringVar(&trackOpts.OSCHost, "osc-host", utils.EnvOr("HEADTRACK_OSC_HOST", osc.DefaultHost), "OSC destination host (env HEADTRACK_OSC_HOST)")
	trackCmd.Flags().IntVar(&trackOpts.OSCPort, "osc-port", utils.EnvIntOr("HEADTRACK_OSC_PORT", osc.DefaultPort), "OSC destination port (env HEADTRACK_OSC_PORT)")
	trackCmd.Flags().StringVarP(&trackOpts.ReadTimeout, "read-timeout", "t", relay.DefaultReadTimeout.String(), "Longest wait for tracker data before checking for a stop request")
	trackCmd.Flags().StringVarP(&trackOpts.Listen, "listen", "l", "", "Serve the control websocket and /metrics on this address (e.g. :8090)")
	trackCmd.Flags().Float64Var(&trackOpts.Pitch, "pitch-offset", 0, "Initial pitch offset in degrees")
	trackCmd.Flags().Float64Var(&trackOpts.Yaw, "yaw-offset", 0, "Initial yaw offset in degrees")
	trackCmd.Flags().Float64Var(&trackOpts.Roll, "roll-offset", 0, "Initial roll offset in degrees")
	trackCmd.Flags().BoolVarP(&trackOpts.Quiet, "quiet", "q", false, "Hide the live rotation readout")

	rootCmd.AddCommand(trackCmd)
}

// runTrack starts one relay session and blocks until it ends or the user
// interrupts. With --listen the process keeps serving after the session ends
// so that clients can start another one.
func runTrack(ctx context.Context, opts Options) {
	readTimeout, err := validateTrackFlags(&opts)
	if err != nil {
		utils.Die("Invalid flags", err, nil)
	}
	if opts.Quiet {
		monitoring.SetLogger(nil)
	}

	sink := osc.NewClient(opts.OSCHost, opts.OSCPort)
	fmt.Fprintf(os.Stderr, "📡 Sending rotation to %s\n", sink)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🎯 Waiting for tracker"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetVisibility(!opts.Quiet),
	)

	var hub *control.Hub
	if opts.Listen != "" {
		hub = control.NewHub()
	}

	var started atomic.Bool
	observers := relay.MultiObserver{relay.ObserverFuncs{
		Tracking: func(t relay.Tracking) {
			bar.Describe(fmtRotation(t.Corrected))
			bar.Add(1)
		},
		Error: func(id string, e *relay.Error) {
			if !printSessionError(e, hub != nil, started.Load()) {
				return
			}
			bar.Clear()
			fmt.Fprintf(os.Stderr, "\n⚠️  Session %s: %s\n", shortID(id), e)
		},
	}}
	if hub != nil {
		observers = append(observers, hub)
	}

	cfg := relay.ControllerConfig{
		TrackerPath: trackerPath,
		ReadTimeout: readTimeout,
		Launcher:    &worker.Supervisor{},
		Sink:        sink,
		Observer:    observers,
	}
	if DB != nil {
		cfg.Recorder = DB
	}
	ctrl := relay.NewController(cfg)
	runCtx, stopController := context.WithCancel(ctx)
	defer stopController()
	go ctrl.Run(runCtx)

	if hub != nil {
		srv := &control.Server{
			Controller: ctrl,
			Hub:        hub,
			ListCameras: func(ctx context.Context) ([]worker.Camera, error) {
				return worker.ListCameras(ctx, trackerPath)
			},
		}
		go func() {
			if err := srv.ListenAndServe(ctx, opts.Listen); err != nil {
				utils.Die("Control server failed", err, nil)
			}
		}()
		fmt.Fprintf(os.Stderr, "🔌 Control websocket on ws://%s/ws\n", listenDisplay(opts.Listen))
	}

	fmt.Fprintf(os.Stderr, "🎥 Starting tracker on camera %d (model %d)...\n", opts.CameraID, opts.Model)
	session, err := ctrl.Start(ctx, relay.StartRequest{
		CameraID:  opts.CameraID,
		Model:     opts.Model,
		Visualize: opts.Visualize,
		Offsets:   opensee.Rotation{Pitch: opts.Pitch, Yaw: opts.Yaw, Roll: opts.Roll},
	})
	if err != nil {
		var relayErr *relay.Error
		if errors.As(err, &relayErr) && relayErr.Kind == relay.SpawnError {
			utils.Die(fmt.Sprintf("Failed to start tracker %q", trackerPath), relayErr.Err, nil)
		}
		utils.Die("Failed to start relay session", err, nil)
	}
	started.Store(true)
	fmt.Fprintf(os.Stderr, "🚀 Session %s listening on 127.0.0.1:%d\n", shortID(session.ID), session.Port())

	select {
	case <-session.Done():
	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "\n🛑 Stopping...\n")
	}
	if hub != nil && ctx.Err() == nil {
		// Later sessions are driven from the websocket.
		<-ctx.Done()
	}
	stopController()
	<-ctrl.Done()
	<-session.Done()
	bar.Finish()

	printSessionSummary(session)
	if f := session.Failure(); f != nil && hub == nil {
		var cmd *utils.SafeCommand
		if p, ok := session.Tracker().(*worker.Process); ok {
			cmd = p.Cmd
		}
		utils.Die("Relay session ended", f, cmd)
	}
}

// printSessionError reports whether the observer should print a session
// failure. Start failures are reported by Die, and so is the end of the only
// session when there is no control server. With --listen, failures of a
// running session print as they happen.
func printSessionError(e *relay.Error, listening, started bool) bool {
	return e.Kind.Fatal() && listening && started
}

// validateTrackFlags ensures all CLI arguments are valid before the tracker is spawned.
func validateTrackFlags(opts *Options) (time.Duration, error) {
	if !worker.ValidModel(opts.Model) {
		return 0, fmt.Errorf("%w: %d (use -1, 0, 1, 2 or 3)", relay.ErrInvalidModel, opts.Model)
	}
	if opts.CameraID < 0 {
		return 0, fmt.Errorf("camera index must be >= 0, got %d", opts.CameraID)
	}
	if opts.OSCPort < 1 || opts.OSCPort > 65535 {
		return 0, fmt.Errorf("osc-port must be between 1 and 65535, got %d", opts.OSCPort)
	}
	if opts.OSCHost == "" {
		opts.OSCHost = osc.DefaultHost
	}
	d, err := time.ParseDuration(opts.ReadTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid read-timeout format (use '5s', '500ms'): %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("read-timeout must be positive, got %s", d)
	}
	return d, nil
}

func printSessionSummary(s *relay.Session) {
	st := s.Stats()
	sum := s.Summary()
	elapsed := sum.StoppedAt.Sub(sum.StartedAt)
	fmt.Fprintf(os.Stderr, "\n🏁 Session %s ran for %s: %d records, %d malformed, %d partial packets dropped, %d send errors.\n",
		shortID(s.ID), utils.FmtDuration(elapsed), st.Decoded, st.Malformed, st.PartialsDiscarded, st.SinkErrors)
}

func fmtRotation(r opensee.Rotation) string {
	return fmt.Sprintf("🎯 pitch %7.2f  yaw %7.2f  roll %7.2f", r.Pitch, r.Yaw, r.Roll)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func listenDisplay(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
