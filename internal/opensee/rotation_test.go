package opensee

import (
	"math"
	"testing"
)

func TestDeriveRotation(t *testing.T) {
	tests := []struct {
		name  string
		euler Vec3
		want  Rotation
	}{
		{"facing camera", Vec3{X: 180, Y: 0, Z: 90}, Rotation{Pitch: 0, Yaw: 0, Roll: 0}},
		{"tilted back", Vec3{X: 200, Y: 10, Z: 100}, Rotation{Pitch: -20, Yaw: 10, Roll: 10}},
		{"tilted forward", Vec3{X: 170, Y: -5, Z: 80}, Rotation{Pitch: 10, Yaw: -5, Roll: -10}},
		{"small x folds past 180", Vec3{X: -10, Y: 0, Z: 90}, Rotation{Pitch: -170, Yaw: 0, Roll: 0}},
		{"exactly 180 is not folded", Vec3{X: 0, Y: 0, Z: 90}, Rotation{Pitch: 180, Yaw: 0, Roll: 0}},
		// Large angles are not wrapped into range: -400 + 180 stays at -220.
		{"large x is not wrapped", Vec3{X: 400, Y: 0, Z: 90}, Rotation{Pitch: -220, Yaw: 0, Roll: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRotation(tt.euler)
			if math.Abs(got.Pitch-tt.want.Pitch) > 1e-9 ||
				math.Abs(got.Yaw-tt.want.Yaw) > 1e-9 ||
				math.Abs(got.Roll-tt.want.Roll) > 1e-9 {
				t.Errorf("DeriveRotation(%+v) = %+v, want %+v", tt.euler, got, tt.want)
			}
		})
	}
}

func TestRotationArithmetic(t *testing.T) {
	r := Rotation{Pitch: 5, Yaw: -3, Roll: 1}
	if got := r.Add(r.Neg()); got != (Rotation{}) {
		t.Errorf("r + -r = %+v, want zero", got)
	}
	if got := r.Add(Rotation{Pitch: 1, Yaw: 1, Roll: 1}); got != (Rotation{Pitch: 6, Yaw: -2, Roll: 2}) {
		t.Errorf("Add = %+v", got)
	}
}
