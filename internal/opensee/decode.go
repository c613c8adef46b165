package opensee

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPacket is returned when a buffer is not a valid OpenSee packet.
var ErrMalformedPacket = errors.New("malformed packet")

// Decode parses an OpenSee packet. The buffer must be exactly PacketSize bytes.
func Decode(buf []byte) (*Record, error) {
	if len(buf) != PacketSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedPacket, len(buf), PacketSize)
	}

	r := &Record{}
	off := 0
	for _, f := range Schema {
		w := f.Kind.Size()
		for i := 0; i < f.Count; i++ {
			b := buf[off : off+w]
			switch p := f.Elem(r, i).(type) {
			case *float64:
				*p = math.Float64frombits(binary.LittleEndian.Uint64(b))
			case *int32:
				*p = int32(binary.LittleEndian.Uint32(b))
			case *float32:
				*p = math.Float32frombits(binary.LittleEndian.Uint32(b))
			case *bool:
				*p = b[0] != 0
			default:
				return nil, fmt.Errorf("field %s: unsupported element %T", f.Name, p)
			}
			off += w
		}
	}
	return r, nil
}

// Encode serializes a record into a new PacketSize buffer. It is the inverse
// of Decode and is used to synthesize tracker traffic.
func Encode(r *Record) []byte {
	buf := make([]byte, PacketSize)
	off := 0
	for _, f := range Schema {
		w := f.Kind.Size()
		for i := 0; i < f.Count; i++ {
			b := buf[off : off+w]
			switch p := f.Elem(r, i).(type) {
			case *float64:
				binary.LittleEndian.PutUint64(b, math.Float64bits(*p))
			case *int32:
				binary.LittleEndian.PutUint32(b, uint32(*p))
			case *float32:
				binary.LittleEndian.PutUint32(b, math.Float32bits(*p))
			case *bool:
				if *p {
					b[0] = 1
				}
			}
			off += w
		}
	}
	return buf
}

// Offset returns the byte offset of the named field, or -1 if the schema has
// no such field.
func Offset(name string) int {
	off := 0
	for _, f := range Schema {
		if f.Name == name {
			return off
		}
		off += f.Size()
	}
	return -1
}
