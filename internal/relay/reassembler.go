package relay

// Outcome is the result of pushing a datagram into a Reassembler.
type Outcome int

const (
	// Pending means more data is needed.
	Pending Outcome = iota
	// Complete means the buffer reached the target size.
	Complete
	// Discarded means a partial buffer was thrown away.
	Discarded
)

// Reassembler concatenates datagrams until a target size is reached. It
// assumes in-order delivery from a single producer; there is no frame marker
// on the wire, so a lost fragment corrupts at most the packet it belongs to.
type Reassembler struct {
	size int
	buf  []byte
}

// NewReassembler returns a reassembler for packets of the given size.
func NewReassembler(size int) *Reassembler {
	return &Reassembler{size: size, buf: make([]byte, 0, size)}
}

// Push adds a datagram. On Complete the returned slice holds the assembled
// bytes; it is only valid until the next call. The slice may be longer than
// the target size when the last datagram overshoots, and the decoder is
// expected to reject it.
//
// A zero-length datagram while a packet is in progress discards it.
func (r *Reassembler) Push(datagram []byte) ([]byte, Outcome) {
	if len(datagram) == 0 {
		if r.Reset() {
			return nil, Discarded
		}
		return nil, Pending
	}

	r.buf = append(r.buf, datagram...)
	if len(r.buf) < r.size {
		return nil, Pending
	}

	out := r.buf
	r.buf = r.buf[:0]
	return out, Complete
}

// Buffered returns the number of bytes waiting for completion.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops any partial packet and reports whether there was one.
func (r *Reassembler) Reset() bool {
	had := len(r.buf) > 0
	r.buf = r.buf[:0]
	return had
}
