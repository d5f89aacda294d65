package h4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(chunks ...[]byte) [][]byte {
	var got [][]byte
	f := newFrame(func(b []byte) { got = append(got, b) })
	for _, c := range chunks {
		f.Assemble(c)
	}
	return got
}

func TestFrameSingleEvent(t *testing.T) {
	got := assemble([]byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00})
	assert.Equal(t, [][]byte{{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}}, got)
}

func TestFrameSplitAcrossReads(t *testing.T) {
	got := assemble([]byte{0x04, 0x0e}, []byte{0x04, 0x01}, []byte{0x03, 0x0c, 0x00})
	assert.Equal(t, [][]byte{{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}}, got)
}

func TestFrameManyPerRead(t *testing.T) {
	got := assemble([]byte{
		0x04, 0x10, 0x01, 0x42,
		0x02, 0x40, 0x20, 0x02, 0x00, 0xaa, 0xbb,
		0x05, 0x60, 0x20, 0x01, 0x00, 0xcc,
		0x04, 0x13,
	}, []byte{0x00})

	assert.Equal(t, [][]byte{
		{0x04, 0x10, 0x01, 0x42},
		{0x02, 0x40, 0x20, 0x02, 0x00, 0xaa, 0xbb},
		{0x05, 0x60, 0x20, 0x01, 0x00, 0xcc},
		{0x04, 0x13, 0x00},
	}, got)
}

func TestFrameSkipsNoise(t *testing.T) {
	got := assemble([]byte{0x00, 0xff, 0x04, 0x10, 0x01, 0x42})
	assert.Equal(t, [][]byte{{0x04, 0x10, 0x01, 0x42}}, got)
}

func TestFrameISOLengthIgnoresRFU(t *testing.T) {
	got := assemble([]byte{0x05, 0x60, 0x20, 0x01, 0xc0, 0xcc})
	assert.Equal(t, [][]byte{{0x05, 0x60, 0x20, 0x01, 0xc0, 0xcc}}, got)
}
