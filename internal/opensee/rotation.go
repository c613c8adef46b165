package opensee

// pitchBase keeps the tracker's historical precedence: the modulo binds to the
// constant alone, not to the negated angle.
const pitchBase = 180 % 360

// Rotation is a head orientation in degrees.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Add returns the componentwise sum of r and o.
func (r Rotation) Add(o Rotation) Rotation {
	return Rotation{Pitch: r.Pitch + o.Pitch, Yaw: r.Yaw + o.Yaw, Roll: r.Roll + o.Roll}
}

// Neg returns the componentwise negation of r.
func (r Rotation) Neg() Rotation {
	return Rotation{Pitch: -r.Pitch, Yaw: -r.Yaw, Roll: -r.Roll}
}

// DeriveRotation converts raw Euler angles into pitch/yaw/roll.
//
// Pitch is -x + 180 folded once into (-inf, 180]; angles below -180 are not
// wrapped. Yaw passes through and roll is shifted by -90.
func DeriveRotation(euler Vec3) Rotation {
	pitch := -float64(euler.X) + pitchBase
	if pitch > 180 {
		pitch -= 360
	}
	return Rotation{
		Pitch: pitch,
		Yaw:   float64(euler.Y),
		Roll:  float64(euler.Z) - 90,
	}
}
