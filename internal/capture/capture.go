// Package capture replays tracker traffic recorded with tcpdump or Wireshark.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/andresmejia3/headtrack/internal/monitoring"
)

// pcapng section header block type, little or big endian alike.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Datagram is one UDP payload from a capture.
type Datagram struct {
	Timestamp time.Time
	SrcPort   int
	DstPort   int
	Payload   []byte
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader yields UDP datagrams from a pcap or pcapng stream.
type Reader struct {
	src     packetSource
	packets int
}

// NewReader detects the capture format and reads its header.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}

	var src packetSource
	if bytes.Equal(magic, ngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return &Reader{src: src}, nil
}

// Next returns the next UDP datagram, skipping anything that is not UDP.
// It returns io.EOF at the end of the capture.
func (r *Reader) Next() (Datagram, error) {
	for {
		data, ci, err := r.src.ReadPacketData()
		if err != nil {
			return Datagram{}, err
		}
		r.packets++

		pkt := gopacket.NewPacket(data, r.src.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		return Datagram{
			Timestamp: ci.Timestamp,
			SrcPort:   int(udp.SrcPort),
			DstPort:   int(udp.DstPort),
			Payload:   udp.Payload,
		}, nil
	}
}

// Packets returns how many link-layer packets have been read so far.
func (r *Reader) Packets() int { return r.packets }

// Options controls a replay.
type Options struct {
	// Port keeps only datagrams sent to this UDP port. Zero keeps all.
	Port int
	// Speed paces delivery by capture timestamps, 1 being real time. Zero
	// or less delivers as fast as possible.
	Speed float64
}

// Stats summarizes a replay.
type Stats struct {
	Packets   int
	Delivered int
	Skipped   int
	Duration  time.Duration // capture time covered
}

// Replay feeds every matching datagram to fn in capture order. Empty
// payloads are delivered too; they carry meaning for packet reassembly.
func Replay(ctx context.Context, r *Reader, opts Options, fn func(Datagram)) (Stats, error) {
	var st Stats
	var first, last time.Time
	for {
		if err := ctx.Err(); err != nil {
			st.Packets = r.Packets()
			return st, err
		}
		d, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			st.Packets = r.Packets()
			return st, fmt.Errorf("read capture: %w", err)
		}
		if opts.Port != 0 && d.DstPort != opts.Port {
			st.Skipped++
			continue
		}

		if first.IsZero() {
			first = d.Timestamp
		} else if opts.Speed > 0 {
			delay := time.Duration(float64(d.Timestamp.Sub(last)) / opts.Speed)
			if delay > 0 {
				select {
				case <-ctx.Done():
					st.Packets = r.Packets()
					return st, ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		last = d.Timestamp

		fn(d)
		st.Delivered++
	}
	st.Packets = r.Packets()
	st.Duration = last.Sub(first)
	monitoring.Logf("capture replay: %d packets, %d datagrams delivered, %d skipped", st.Packets, st.Delivered, st.Skipped)
	return st, nil
}
