// Package opensee decodes the fixed-size UDP packets emitted by the OpenSeeFace tracker.
package opensee

// NumPoints is the number of 2D landmarks reported per face. The 3D point set
// carries two extra entries for the estimated eyeball centers.
const NumPoints = 68

// Vec2 is a pair of single precision components.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a triple of single precision components.
type Vec3 struct {
	X, Y, Z float32
}

// Quaternion is stored in the tracker's wire order (x, y, z, w).
type Quaternion struct {
	X, Y, Z, W float32
}

// Features holds the facial feature metrics computed by the tracker. Each value
// is relative to the feature's running median.
type Features struct {
	EyeLeft                float32
	EyeRight               float32
	EyebrowSteepnessLeft   float32
	EyebrowUpDownLeft      float32
	EyebrowQuirkLeft       float32
	EyebrowSteepnessRight  float32
	EyebrowUpDownRight     float32
	EyebrowQuirkRight      float32
	MouthCornerUpDownLeft  float32
	MouthCornerInOutLeft   float32
	MouthCornerUpDownRight float32
	MouthCornerInOutRight  float32
	MouthOpen              float32
	MouthWide              float32
}

// Record is one decoded tracking packet. Records are built by Decode and are
// not modified afterwards.
type Record struct {
	// Time is the capture timestamp reported by the tracker.
	Time float64
	// ID identifies the tracked face. It is stable for as long as tracking
	// on that face is not lost.
	ID               int32
	CameraResolution Vec2
	RightEyeOpen     float32
	LeftEyeOpen      float32
	// Got3DPoints reports whether the 3D fit succeeded. Pose data should not
	// be trusted when it is false.
	Got3DPoints bool
	Fit3DError  float32
	Quaternion  Quaternion
	// Euler holds the raw OpenCV rotation angles, in degrees.
	Euler       Vec3
	Translation Vec3
	// Confidence is expected in [0,1]; the wire format does not enforce it.
	Confidence [NumPoints]float32
	Points     [NumPoints]Vec2
	Points3D   [NumPoints + 2]Vec3
	Features   Features
}

// Rotation derives the pitch/yaw/roll triple from the record's Euler angles.
func (r *Record) Rotation() Rotation {
	return DeriveRotation(r.Euler)
}

func (v *Vec2) component(i int) *float32 {
	if i == 0 {
		return &v.X
	}
	return &v.Y
}

func (v *Vec3) component(i int) *float32 {
	switch i {
	case 0:
		return &v.X
	case 1:
		return &v.Y
	default:
		return &v.Z
	}
}

func (q *Quaternion) component(i int) *float32 {
	switch i {
	case 0:
		return &q.X
	case 1:
		return &q.Y
	case 2:
		return &q.Z
	default:
		return &q.W
	}
}
