package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/headtrack/internal/opensee"
	"github.com/andresmejia3/headtrack/internal/utils"
	"github.com/spf13/cobra"
)

type emulateOptions struct {
	Host      string
	Port      int
	Rate      int
	Duration  string
	Fragments int
}

var emulateOpts emulateOptions

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Send synthetic tracker packets to a UDP port",
	Long:  "Stands in for the tracker: sends OpenSee packets with a slowly swaying head pose, for testing a relay without a camera.",
	Run: func(cmd *cobra.Command, args []string) {
		runEmulate(cmd.Context(), emulateOpts)
	},
}

func init() {
	emulateCmd.Flags().StringVar(&emulateOpts.Host, "host", "127.0.0.1", "Destination host")
	emulateCmd.Flags().IntVarP(&emulateOpts.Port, "port", "p", 11573, "Destination UDP port")
	emulateCmd.Flags().IntVarP(&emulateOpts.Rate, "rate", "r", 30, "Packets per second")
	emulateCmd.Flags().StringVarP(&emulateOpts.Duration, "duration", "d", "0s", "Stop after this long (0 runs until interrupted)")
	emulateCmd.Flags().IntVarP(&emulateOpts.Fragments, "fragments", "f", 1, "Split every packet into this many datagrams")

	rootCmd.AddCommand(emulateCmd)
}

func runEmulate(ctx context.Context, opts emulateOptions) {
	duration, err := validateEmulateFlags(opts)
	if err != nil {
		utils.Die("Invalid flags", err, nil)
	}
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		utils.Die("Failed to open UDP socket", err, nil)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "🤖 Emulating tracker: %d packets/s to %s\n", opts.Rate, addr)
	sent, err := emulate(ctx, conn, time.Second/time.Duration(opts.Rate), opts.Fragments)
	if err != nil && ctx.Err() == nil {
		utils.Die("Send failed", err, nil)
	}
	fmt.Fprintf(os.Stderr, "\n🏁 Sent %d packets.\n", sent)
}

func validateEmulateFlags(opts emulateOptions) (time.Duration, error) {
	if opts.Port < 1 || opts.Port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", opts.Port)
	}
	if opts.Rate < 1 || opts.Rate > 1000 {
		return 0, fmt.Errorf("rate must be between 1 and 1000, got %d", opts.Rate)
	}
	if opts.Fragments < 1 || opts.Fragments > opensee.PacketSize {
		return 0, fmt.Errorf("fragments must be between 1 and %d, got %d", opensee.PacketSize, opts.Fragments)
	}
	d, err := time.ParseDuration(opts.Duration)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format (use '10s', '1m'): %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return d, nil
}

// emulate writes one packet per interval until ctx is done and returns how
// many whole packets were sent.
func emulate(ctx context.Context, w io.Writer, interval time.Duration, fragments int) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	sent := 0
	for {
		pkt := opensee.Encode(syntheticRecord(time.Since(start).Seconds()))
		for _, part := range splitPacket(pkt, fragments) {
			if _, err := w.Write(part); err != nil {
				return sent, err
			}
		}
		sent++

		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-ticker.C:
		}
	}
}

// syntheticRecord is a head gently nodding, turning and tilting around the
// neutral pose, which the relay maps to a rotation near zero.
func syntheticRecord(t float64) *opensee.Record {
	r := &opensee.Record{
		Time:             float64(time.Now().UnixNano()) / 1e9,
		ID:               0,
		CameraResolution: opensee.Vec2{X: 640, Y: 480},
		RightEyeOpen:     1,
		LeftEyeOpen:      1,
		Got3DPoints:      true,
		Fit3DError:       0.02,
		Euler: opensee.Vec3{
			X: float32(180 + 15*math.Sin(t*0.9)),
			Y: float32(30 * math.Sin(t*0.5)),
			Z: float32(90 + 10*math.Sin(t*0.7)),
		},
		Translation: opensee.Vec3{X: 0, Y: 0, Z: 50},
	}
	for i := range r.Confidence {
		r.Confidence[i] = 0.9
	}
	return r
}

// splitPacket cuts pkt into n nearly equal consecutive parts.
func splitPacket(pkt []byte, n int) [][]byte {
	if n <= 1 {
		return [][]byte{pkt}
	}
	parts := make([][]byte, 0, n)
	size := len(pkt) / n
	for i := 0; i < n-1; i++ {
		parts = append(parts, pkt[i*size:(i+1)*size])
	}
	return append(parts, pkt[(n-1)*size:])
}
