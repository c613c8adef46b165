package calibration

import (
	"math"
	"sync"
	"testing"

	"github.com/andresmejia3/headtrack/internal/opensee"
)

func TestNewIsZero(t *testing.T) {
	if got := New().Snapshot(); got != (opensee.Rotation{}) {
		t.Errorf("New().Snapshot() = %+v, want zero", got)
	}
}

func TestSetters(t *testing.T) {
	s := New()
	s.SetPitch(1.5)
	s.SetYaw(-2.25)
	s.SetRoll(90)

	want := opensee.Rotation{Pitch: 1.5, Yaw: -2.25, Roll: 90}
	if got := s.Snapshot(); got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}

	// Last write wins per axis and leaves the others alone.
	s.SetYaw(4)
	want.Yaw = 4
	if got := s.Snapshot(); got != want {
		t.Errorf("Snapshot() after SetYaw = %+v, want %+v", got, want)
	}
}

func TestCaptureAsZero(t *testing.T) {
	s := New()
	s.SetPitch(10) // replaced by the capture

	raw := opensee.Rotation{Pitch: 5.0, Yaw: -3.0, Roll: 1.0}
	s.CaptureAsZero(raw)

	got := s.Apply(raw)
	if math.Abs(got.Pitch) > 1e-6 || math.Abs(got.Yaw) > 1e-6 || math.Abs(got.Roll) > 1e-6 {
		t.Errorf("Apply(raw) after capture = %+v, want (0,0,0)", got)
	}

	next := s.Apply(opensee.Rotation{Pitch: 6, Yaw: -3, Roll: 0})
	if math.Abs(next.Pitch-1) > 1e-6 || math.Abs(next.Yaw) > 1e-6 || math.Abs(next.Roll+1) > 1e-6 {
		t.Errorf("Apply(moved) = %+v, want (1,0,-1)", next)
	}
}

func TestConcurrentWritersSingleReader(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.SetPitch(float64(w))
				s.SetYaw(float64(-w))
				s.SetRoll(float64(i))
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			r := s.Snapshot()
			if r.Pitch < 0 || r.Pitch > 3 || r.Yaw > 0 || r.Yaw < -3 {
				t.Errorf("torn value in snapshot: %+v", r)
				return
			}
		}
	}()

	wg.Wait()
	<-done
}
