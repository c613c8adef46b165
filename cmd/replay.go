package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/headtrack/internal/calibration"
	"github.com/andresmejia3/headtrack/internal/capture"
	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/osc"
	"github.com/andresmejia3/headtrack/internal/relay"
	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	Port    int
	Speed   float64
	Send    bool
	OSCHost string
	OSCPort int
	Pitch   float64
	Yaw     float64
	Roll    float64
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <capture.pcap>",
	Short: "Relay tracker packets from a pcap capture",
	Long: "Reads a pcap or pcapng capture of tracker traffic and runs it through the relay pipeline. " +
		"Rotations are printed as tab separated lines, or sent over OSC with --send.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReplay(cmd.Context(), args[0], replayOpts)
	},
}

func init() {
	replayCmd.Flags().IntVarP(&replayOpts.Port, "port", "p", 0, "Only replay datagrams sent to this UDP port (0 for all)")
	replayCmd.Flags().Float64VarP(&replayOpts.Speed, "speed", "s", 0, "Pace by capture timestamps, 1 is real time (0 replays as fast as possible)")
	replayCmd.Flags().BoolVar(&replayOpts.Send, "send", false, "Send rotations over OSC instead of printing them")
	replayCmd.Flags().StringVar(&replayOpts.OSCHost, "osc-host", utils.EnvOr("HEADTRACK_OSC_HOST", osc.DefaultHost), "OSC destination host (env HEADTRACK_OSC_HOST)")
	replayCmd.Flags().IntVar(&replayOpts.OSCPort, "osc-port", utils.EnvIntOr("HEADTRACK_OSC_PORT", osc.DefaultPort), "OSC destination port (env HEADTRACK_OSC_PORT)")
	replayCmd.Flags().Float64Var(&replayOpts.Pitch, "pitch-offset", 0, "Pitch offset in degrees")
	replayCmd.Flags().Float64Var(&replayOpts.Yaw, "yaw-offset", 0, "Yaw offset in degrees")
	replayCmd.Flags().Float64Var(&replayOpts.Roll, "roll-offset", 0, "Roll offset in degrees")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, path string, opts replayOptions) {
	f, err := os.Open(path)
	if err != nil {
		utils.Die("Unable to open capture", err, nil)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		utils.Die("Unable to access capture", err, nil)
	}
	if info.IsDir() {
		utils.Die("Capture path is a directory, expected a pcap file", nil, nil)
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetDescription("📼 Replaying"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowBytes(true),
	)
	pr := progressbar.NewReader(f, bar)

	r, err := capture.NewReader(&pr)
	if err != nil {
		utils.Die("Unable to read capture", err, nil)
	}

	var sink relay.Sink = relay.NopSink{}
	if opts.Send {
		client := osc.NewClient(opts.OSCHost, opts.OSCPort)
		fmt.Fprintf(os.Stderr, "📡 Sending rotation to %s\n", client)
		sink = client
	}

	offsets := calibration.New()
	offsets.Set(opensee.Rotation{Pitch: opts.Pitch, Yaw: opts.Yaw, Roll: opts.Roll})

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var observer relay.Observer = relay.ObserverFuncs{}
	if !opts.Send {
		fmt.Fprintln(out, "time\tface\tpitch\tyaw\troll")
		observer = relay.ObserverFuncs{Tracking: func(t relay.Tracking) {
			writeRotation(out, t)
		}}
	}
	p := relay.NewPipeline("replay", offsets, sink, observer)

	st, err := capture.Replay(ctx, r, capture.Options{Port: opts.Port, Speed: opts.Speed}, func(d capture.Datagram) {
		p.HandleDatagram(d.Payload)
	})
	bar.Finish()
	if err != nil && !errors.Is(err, context.Canceled) {
		out.Flush()
		utils.Die("Replay failed", err, nil)
	}

	ps := p.Stats()
	fmt.Fprintf(os.Stderr, "\n🏁 Replayed %d datagrams (%s of capture): %d records, %d malformed, %d partial packets dropped.\n",
		st.Delivered, utils.FmtDuration(st.Duration), ps.Decoded, ps.Malformed, ps.PartialsDiscarded)
}

func writeRotation(w *bufio.Writer, t relay.Tracking) {
	fmt.Fprintf(w, "%.6f\t%d\t%.3f\t%.3f\t%.3f\n", t.Time, t.FaceID, t.Corrected.Pitch, t.Corrected.Yaw, t.Corrected.Roll)
}
