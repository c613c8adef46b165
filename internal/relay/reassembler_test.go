package relay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReassembler(t *testing.T) {
	tests := []struct {
		name      string
		datagrams [][]byte
		want      []Outcome
		wantLen   int
	}{
		{
			name:      "single datagram",
			datagrams: [][]byte{make([]byte, 10)},
			want:      []Outcome{Complete},
			wantLen:   10,
		},
		{
			name:      "two fragments",
			datagrams: [][]byte{make([]byte, 4), make([]byte, 6)},
			want:      []Outcome{Pending, Complete},
			wantLen:   10,
		},
		{
			name:      "overshoot is handed on",
			datagrams: [][]byte{make([]byte, 8), make([]byte, 8)},
			want:      []Outcome{Pending, Complete},
			wantLen:   16,
		},
		{
			name:      "empty mid-assembly discards",
			datagrams: [][]byte{make([]byte, 4), {}},
			want:      []Outcome{Pending, Discarded},
		},
		{
			name:      "empty while idle is ignored",
			datagrams: [][]byte{{}},
			want:      []Outcome{Pending},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReassembler(10)
			var got []Outcome
			var last []byte
			for _, d := range tt.datagrams {
				buf, o := r.Push(d)
				got = append(got, o)
				last = buf
			}
			assert.Equal(t, tt.want, got)
			assert.Len(t, last, tt.wantLen)
			assert.Zero(t, r.Buffered())
		})
	}
}

func TestReassemblerPreservesOrder(t *testing.T) {
	r := NewReassembler(6)
	_, o := r.Push([]byte{1, 2})
	assert.Equal(t, Pending, o)
	assert.Equal(t, 2, r.Buffered())
	buf, o := r.Push([]byte{3, 4, 5, 6})
	assert.Equal(t, Complete, o)
	assert.True(t, bytes.Equal(buf, []byte{1, 2, 3, 4, 5, 6}))
}

func TestReassemblerReset(t *testing.T) {
	r := NewReassembler(6)
	assert.False(t, r.Reset())
	r.Push([]byte{1})
	assert.True(t, r.Reset())
	assert.Zero(t, r.Buffered())
}
