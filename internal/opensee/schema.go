package opensee

import "fmt"

// Kind is the wire encoding of a single schema element.
type Kind int

const (
	Float64 Kind = iota
	Int32
	Float32
	Bool
)

// Size returns the encoded width of one element in bytes.
func (k Kind) Size() int {
	switch k {
	case Float64:
		return 8
	case Int32, Float32:
		return 4
	case Bool:
		return 1
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case Float64:
		return "f64"
	case Int32:
		return "i32"
	case Float32:
		return "f32"
	case Bool:
		return "bool"
	}
	return "unknown"
}

// Field describes one named run of same-kind elements in a packet.
// Elem returns a pointer into the record for element i of the run; the
// pointer type must match Kind (*float64, *int32, *float32 or *bool).
type Field struct {
	Name  string
	Kind  Kind
	Count int
	Elem  func(r *Record, i int) any
}

// Size returns the encoded width of the whole field.
func (f Field) Size() int {
	return f.Kind.Size() * f.Count
}

// Schema lists the packet fields in wire order. Fields are packed with no
// padding and every value is little-endian.
var Schema = []Field{
	{"time", Float64, 1, func(r *Record, _ int) any { return &r.Time }},
	{"id", Int32, 1, func(r *Record, _ int) any { return &r.ID }},
	{"camera_resolution", Float32, 2, func(r *Record, i int) any { return r.CameraResolution.component(i) }},
	{"right_eye_open", Float32, 1, func(r *Record, _ int) any { return &r.RightEyeOpen }},
	{"left_eye_open", Float32, 1, func(r *Record, _ int) any { return &r.LeftEyeOpen }},
	{"got_3d_points", Bool, 1, func(r *Record, _ int) any { return &r.Got3DPoints }},
	{"fit_3d_error", Float32, 1, func(r *Record, _ int) any { return &r.Fit3DError }},
	{"quaternion", Float32, 4, func(r *Record, i int) any { return r.Quaternion.component(i) }},
	{"euler", Float32, 3, func(r *Record, i int) any { return r.Euler.component(i) }},
	{"translation", Float32, 3, func(r *Record, i int) any { return r.Translation.component(i) }},
	{"confidence", Float32, NumPoints, func(r *Record, i int) any { return &r.Confidence[i] }},
	{"points", Float32, NumPoints * 2, func(r *Record, i int) any { return r.Points[i/2].component(i % 2) }},
	{"points3d", Float32, (NumPoints + 2) * 3, func(r *Record, i int) any { return r.Points3D[i/3].component(i % 3) }},
	{"eye_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyeLeft }},
	{"eye_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyeRight }},
	{"eyebrow_steepness_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowSteepnessLeft }},
	{"eyebrow_up_down_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowUpDownLeft }},
	{"eyebrow_quirk_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowQuirkLeft }},
	{"eyebrow_steepness_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowSteepnessRight }},
	{"eyebrow_up_down_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowUpDownRight }},
	{"eyebrow_quirk_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.EyebrowQuirkRight }},
	{"mouth_corner_up_down_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthCornerUpDownLeft }},
	{"mouth_corner_in_out_left", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthCornerInOutLeft }},
	{"mouth_corner_up_down_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthCornerUpDownRight }},
	{"mouth_corner_in_out_right", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthCornerInOutRight }},
	{"mouth_open", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthOpen }},
	{"mouth_wide", Float32, 1, func(r *Record, _ int) any { return &r.Features.MouthWide }},
}

// PacketSize is the exact length of an OpenSee packet on the wire.
const PacketSize = 1785

// SchemaSize sums the encoded widths of every field in Schema.
func SchemaSize() int {
	n := 0
	for _, f := range Schema {
		n += f.Size()
	}
	return n
}

func init() {
	if n := SchemaSize(); n != PacketSize {
		panic(fmt.Sprintf("opensee: schema encodes to %d bytes, want %d", n, PacketSize))
	}
}
