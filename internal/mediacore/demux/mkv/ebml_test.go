package mkv

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idBytes encodes an EBML element ID constant (marker bit already folded
// in, as all of this package's id* constants are) to its natural
// big-endian byte length.
func idBytes(id uint64) []byte {
	length := (bits.Len64(id) - 1) / 7
	if length < 1 {
		length = 1
	}
	out := make([]byte, length)
	v := id
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// sizeBytes encodes size as a 4-byte EBML size VINT, valid for any test
// payload under 2^28 bytes.
func sizeBytes(size uint64) []byte {
	out := make([]byte, 4)
	v := size
	out[3] = byte(v)
	v >>= 8
	out[2] = byte(v)
	v >>= 8
	out[1] = byte(v)
	v >>= 8
	out[0] = byte(v) | 0x10
	return out
}

func buildElement(id uint64, payload []byte) []byte {
	out := append([]byte{}, idBytes(id)...)
	out = append(out, sizeBytes(uint64(len(payload)))...)
	out = append(out, payload...)
	return out
}

func TestReadVINTSingleByteID(t *testing.T) {
	value, length, ok := readVINT([]byte{0xAE}, 0, true)
	require.True(t, ok)
	assert.Equal(t, 1, length)
	assert.Equal(t, uint64(0xAE), value)
}

func TestReadVINTMultiByteSizeStripsMarker(t *testing.T) {
	// 4-byte size VINT encoding the value 5.
	value, length, ok := readVINT([]byte{0x10, 0x00, 0x00, 0x05}, 0, false)
	require.True(t, ok)
	assert.Equal(t, 4, length)
	assert.Equal(t, uint64(5), value)
}

func TestReadElementHeaderAndWalkElements(t *testing.T) {
	buf := append(buildElement(idTrackNumber, []byte{0x01}), buildElement(idTrackType, []byte{0x01})...)
	var seen []uint64
	walkElements(buf, func(id uint64, payload []byte) bool {
		seen = append(seen, id)
		return true
	})
	assert.Equal(t, []uint64{idTrackNumber, idTrackType}, seen)
}

func TestFindChildReturnsFirstMatch(t *testing.T) {
	buf := append(buildElement(idTrackNumber, []byte{0x02}), buildElement(idCodecID, []byte("V_MPEG4/ISO/AVC"))...)
	payload, ok := findChild(buf, idCodecID)
	require.True(t, ok)
	assert.Equal(t, "V_MPEG4/ISO/AVC", string(payload))
}

func TestUintValueBigEndian(t *testing.T) {
	assert.Equal(t, uint64(0x0102), uintValue([]byte{0x01, 0x02}))
}

func TestIsUnknownSize(t *testing.T) {
	// A 1-byte size VINT with value 0x7F (all data bits set) is unknown-size.
	assert.True(t, isUnknownSize(0x7F, 1))
	assert.False(t, isUnknownSize(0x05, 1))
}
