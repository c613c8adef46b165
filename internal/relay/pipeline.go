package relay

import (
	"errors"
	"sync/atomic"

	"github.com/andresmejia3/headtrack/internal/calibration"
	"github.com/andresmejia3/headtrack/internal/metrics"
	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/opensee"
)

// OSC addresses the corrected rotation is published on.
const (
	PitchAddress = "/SceneRotator/pitch"
	YawAddress   = "/SceneRotator/yaw"
	RollAddress  = "/SceneRotator/roll"
)

// Sink publishes single scalar values. Sends are fire-and-forget: the
// pipeline counts and logs failures but never retries or stops on them.
type Sink interface {
	SendFloat(address string, value float32) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) SendFloat(string, float32) error { return nil }

// Stats counts what a pipeline has seen.
type Stats struct {
	Datagrams         uint64 `json:"datagrams"`
	Decoded           uint64 `json:"decoded"`
	Malformed         uint64 `json:"malformed"`
	PartialsDiscarded uint64 `json:"partials_discarded"`
	Timeouts          uint64 `json:"timeouts"`
	SinkErrors        uint64 `json:"sink_errors"`
}

// Pipeline turns datagrams into calibrated rotations: reassembly, decode,
// rotation derivation, offset correction, then emission. It is driven by a
// single goroutine; only LastRaw and Stats may be called from elsewhere.
type Pipeline struct {
	sessionID string
	offsets   *calibration.Store
	sink      Sink
	observer  Observer
	reasm     *Reassembler

	lastRaw atomic.Pointer[opensee.Rotation]

	datagrams  atomic.Uint64
	decoded    atomic.Uint64
	malformed  atomic.Uint64
	partials   atomic.Uint64
	timeouts   atomic.Uint64
	sinkErrors atomic.Uint64
}

// NewPipeline wires a pipeline. A nil sink or observer is replaced by a no-op.
func NewPipeline(sessionID string, offsets *calibration.Store, sink Sink, observer Observer) *Pipeline {
	if offsets == nil {
		offsets = calibration.New()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if observer == nil {
		observer = ObserverFuncs{}
	}
	return &Pipeline{
		sessionID: sessionID,
		offsets:   offsets,
		sink:      sink,
		observer:  observer,
		reasm:     NewReassembler(opensee.PacketSize),
	}
}

// HandleDatagram feeds one received datagram through the pipeline. Decode
// and reassembly faults are absorbed here.
func (p *Pipeline) HandleDatagram(datagram []byte) {
	p.datagrams.Add(1)
	metrics.DatagramsReceived.Inc()

	buf, outcome := p.reasm.Push(datagram)
	switch outcome {
	case Pending:
		return
	case Discarded:
		p.partials.Add(1)
		metrics.PartialsDiscarded.Inc()
		monitoring.Logf("session %s: %s, empty datagram mid-packet", p.sessionID, PartialPacketDiscarded)
		return
	}

	rec, err := opensee.Decode(buf)
	if err != nil {
		if errors.Is(err, opensee.ErrMalformedPacket) {
			p.malformed.Add(1)
			metrics.PacketsMalformed.Inc()
			monitoring.Logf("session %s: dropping packet: %v", p.sessionID, err)
		}
		return
	}
	p.emit(rec)
}

// Timeout records an expired readiness wait. A partial packet left over from
// before the wait is discarded.
func (p *Pipeline) Timeout() {
	p.timeouts.Add(1)
	metrics.ReadTimeouts.Inc()
	if p.reasm.Reset() {
		p.partials.Add(1)
		metrics.PartialsDiscarded.Inc()
		monitoring.Logf("session %s: %s, stale fragment after read timeout", p.sessionID, PartialPacketDiscarded)
	}
}

func (p *Pipeline) emit(rec *opensee.Record) {
	raw := rec.Rotation()
	corrected := p.offsets.Apply(raw)
	p.lastRaw.Store(&raw)
	p.decoded.Add(1)
	metrics.RecordsDecoded.Inc()

	p.observer.OnTracking(Tracking{
		SessionID: p.sessionID,
		FaceID:    rec.ID,
		Time:      rec.Time,
		Raw:       raw,
		Corrected: corrected,
	})

	p.send(PitchAddress, corrected.Pitch)
	p.send(YawAddress, corrected.Yaw)
	p.send(RollAddress, corrected.Roll)
}

func (p *Pipeline) send(address string, v float64) {
	if err := p.sink.SendFloat(address, float32(v)); err != nil {
		// Only the first failure and then every 100th is logged.
		if n := p.sinkErrors.Add(1); n == 1 || n%100 == 0 {
			monitoring.Logf("session %s: send %s failed (%d failures): %v", p.sessionID, address, n, err)
		}
		metrics.SinkErrors.Inc()
	}
}

// Offsets returns the calibration store the pipeline reads.
func (p *Pipeline) Offsets() *calibration.Store {
	return p.offsets
}

// LastRaw returns the most recent uncorrected rotation.
func (p *Pipeline) LastRaw() (opensee.Rotation, bool) {
	r := p.lastRaw.Load()
	if r == nil {
		return opensee.Rotation{}, false
	}
	return *r, true
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Datagrams:         p.datagrams.Load(),
		Decoded:           p.decoded.Load(),
		Malformed:         p.malformed.Load(),
		PartialsDiscarded: p.partials.Load(),
		Timeouts:          p.timeouts.Load(),
		SinkErrors:        p.sinkErrors.Load(),
	}
}
