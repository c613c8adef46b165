// Package calibration holds the per-axis offsets applied to relayed rotations.
package calibration

import (
	"math"
	"sync/atomic"

	"github.com/andresmejia3/headtrack/internal/opensee"
)

// Store holds pitch, yaw and roll offsets. Each axis is an independent atomic
// value: writers on the control side never block the relay reader, and a
// Snapshot may observe a concurrent update on one axis but not another.
type Store struct {
	pitch atomic.Uint64
	yaw   atomic.Uint64
	roll  atomic.Uint64
}

// New returns a store with all offsets at zero.
func New() *Store {
	return &Store{}
}

func (s *Store) SetPitch(v float64) { s.pitch.Store(math.Float64bits(v)) }
func (s *Store) SetYaw(v float64)   { s.yaw.Store(math.Float64bits(v)) }
func (s *Store) SetRoll(v float64)  { s.roll.Store(math.Float64bits(v)) }

// Set writes all three axes from r.
func (s *Store) Set(r opensee.Rotation) {
	s.SetPitch(r.Pitch)
	s.SetYaw(r.Yaw)
	s.SetRoll(r.Roll)
}

// CaptureAsZero sets each offset to the negated raw component so the same raw
// reading afterwards corrects to zero.
func (s *Store) CaptureAsZero(raw opensee.Rotation) {
	s.Set(raw.Neg())
}

// Snapshot returns the current offsets.
func (s *Store) Snapshot() opensee.Rotation {
	return opensee.Rotation{
		Pitch: math.Float64frombits(s.pitch.Load()),
		Yaw:   math.Float64frombits(s.yaw.Load()),
		Roll:  math.Float64frombits(s.roll.Load()),
	}
}

// Apply returns raw corrected by the current offsets.
func (s *Store) Apply(raw opensee.Rotation) opensee.Rotation {
	return raw.Add(s.Snapshot())
}
