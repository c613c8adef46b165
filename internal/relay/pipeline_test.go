package relay

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/headtrack/internal/calibration"
	"github.com/andresmejia3/headtrack/internal/opensee"
)

func TestPipelineFragmentedPacket(t *testing.T) {
	obs := newRecorder()
	sink := &captureSink{}
	p := NewPipeline("s1", nil, sink, obs)

	pkt := packet(200, 10, 100)
	p.HandleDatagram(pkt[:1000])
	assert.Empty(t, obs.tracking, "no record before the packet is complete")
	p.HandleDatagram(pkt[1000:])

	tr := obs.nextTracking(t)
	want := opensee.Rotation{Pitch: -20, Yaw: 10, Roll: 10}
	assert.Equal(t, want, tr.Raw)
	assert.Equal(t, want, tr.Corrected)
	assert.Equal(t, int32(1), tr.FaceID)
	assert.Equal(t, "s1", tr.SessionID)

	wantSent := []sent{
		{PitchAddress, -20},
		{YawAddress, 10},
		{RollAddress, 10},
	}
	if diff := cmp.Diff(wantSent, sink.all()); diff != "" {
		t.Errorf("sink mismatch (-want +got):\n%s", diff)
	}

	st := p.Stats()
	assert.Equal(t, uint64(2), st.Datagrams)
	assert.Equal(t, uint64(1), st.Decoded)
}

func TestPipelineEmptyDatagramMidAssembly(t *testing.T) {
	obs := newRecorder()
	p := NewPipeline("s1", nil, nil, obs)

	pkt := packet(180, 0, 90)
	p.HandleDatagram(pkt[:700])
	p.HandleDatagram(nil)
	p.HandleDatagram(pkt[700:])

	assert.Empty(t, obs.tracking)
	assert.Equal(t, uint64(1), p.Stats().PartialsDiscarded)

	// The orphaned 1085-byte tail stays buffered, so the next whole packet
	// overshoots and is dropped with it.
	p.HandleDatagram(pkt)
	assert.Empty(t, obs.tracking)
	st := p.Stats()
	assert.Equal(t, uint64(1), st.Malformed)
	assert.Equal(t, uint64(0), st.Decoded)

	// The buffer is empty again and the stream resynchronizes.
	p.HandleDatagram(pkt)
	tr := obs.nextTracking(t)
	assert.Equal(t, opensee.Rotation{}, tr.Raw)
	assert.Equal(t, uint64(1), p.Stats().Decoded)
}

func TestPipelineDropsMalformed(t *testing.T) {
	obs := newRecorder()
	sink := &captureSink{}
	p := NewPipeline("s1", nil, sink, obs)

	pkt := packet(180, 0, 90)
	p.HandleDatagram(pkt[:1000])
	p.HandleDatagram(pkt[:1000]) // overshoots to 2000 bytes

	assert.Empty(t, obs.tracking)
	assert.Empty(t, sink.all())
	assert.Equal(t, uint64(1), p.Stats().Malformed)

	p.HandleDatagram(pkt)
	obs.nextTracking(t)
}

func TestPipelineAppliesOffsets(t *testing.T) {
	offsets := calibration.New()
	offsets.Set(opensee.Rotation{Pitch: 20, Yaw: -10, Roll: 1})
	obs := newRecorder()
	p := NewPipeline("s1", offsets, nil, obs)

	p.HandleDatagram(packet(200, 10, 100))
	tr := obs.nextTracking(t)
	assert.Equal(t, opensee.Rotation{Pitch: -20, Yaw: 10, Roll: 10}, tr.Raw)
	assert.Equal(t, opensee.Rotation{Pitch: 0, Yaw: 0, Roll: 11}, tr.Corrected)

	raw, ok := p.LastRaw()
	require.True(t, ok)
	assert.Equal(t, tr.Raw, raw)
}

func TestPipelineSinkFailuresAreAbsorbed(t *testing.T) {
	obs := newRecorder()
	sink := &captureSink{err: errSinkDown}
	p := NewPipeline("s1", nil, sink, obs)

	p.HandleDatagram(packet(180, 0, 90))
	p.HandleDatagram(packet(180, 0, 90))

	obs.nextTracking(t)
	obs.nextTracking(t)
	// Every axis is attempted even after the first failure.
	assert.Len(t, sink.all(), 6)
	assert.Equal(t, uint64(6), p.Stats().SinkErrors)
}

func TestPipelineTimeoutDiscardsPartial(t *testing.T) {
	p := NewPipeline("s1", nil, nil, nil)

	p.Timeout()
	assert.Zero(t, p.Stats().PartialsDiscarded)

	p.HandleDatagram(packet(180, 0, 90)[:100])
	p.Timeout()
	st := p.Stats()
	assert.Equal(t, uint64(2), st.Timeouts)
	assert.Equal(t, uint64(1), st.PartialsDiscarded)

	_, ok := p.LastRaw()
	assert.False(t, ok)
}
