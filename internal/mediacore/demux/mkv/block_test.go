package mkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlockHeaderNoLacing(t *testing.T) {
	// track_number=1 (1-byte VINT 0x81), rel_timecode=42, flags=0x80 (keyframe).
	data := []byte{0x81, 0x00, 0x2A, 0x80, 0xDE, 0xAD, 0xBE, 0xEF}
	h, ok := parseBlockHeader(data)
	require.True(t, ok)
	assert.Equal(t, uint64(1), h.trackNumber)
	assert.Equal(t, int16(42), h.relTimecode)
	assert.True(t, h.keyframe)
	assert.Equal(t, byte(laceNone), h.lacing)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, h.payload)
}

func TestParseBlockHeaderNegativeRelTimecode(t *testing.T) {
	data := []byte{0x82, 0xFF, 0xFF, 0x00, 0x01} // rel_timecode = -1
	h, ok := parseBlockHeader(data)
	require.True(t, ok)
	assert.Equal(t, uint64(2), h.trackNumber)
	assert.Equal(t, int16(-1), h.relTimecode)
}

func TestParseBlockHeaderXiphLacingConcatenatesPayload(t *testing.T) {
	// flags bit1-2 = 01 (Xiph lacing) -> 0x80|0x02 = 0x82, keyframe + xiph.
	// 2 frames total (frameCountMinus1=1), first frame size=5 encoded as a
	// single terminating byte (since 5 < 255).
	data := []byte{0x81, 0x00, 0x00, 0x82, 0x01, 0x05}
	data = append(data, []byte{1, 2, 3, 4, 5}...) // frame 1 (5 bytes, size consumed above)
	data = append(data, []byte{6, 7}...)           // frame 2 (implied remainder)

	h, ok := parseBlockHeader(data)
	require.True(t, ok)
	assert.Equal(t, byte(laceXiph), h.lacing)
	// Lacing is not split apart: all remaining bytes are retained as one payload.
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, h.payload)
}

func TestParseBlockHeaderRejectsTruncatedData(t *testing.T) {
	_, ok := parseBlockHeader([]byte{0x81, 0x00})
	assert.False(t, ok)
}
