package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePESHeaderZeroPTS(t *testing.T) {
	payload := []byte{
		0x00, 0x00, 0x01, 0xE0, // start code + stream_id
		0x00, 0x00, // pes_packet_length
		0x80, 0x80, // marker bits, pts_dts_flags=10 (PTS only)
		0x05,                         // header_data_length
		0x21, 0x00, 0x01, 0x00, 0x01, // PTS field -> PTS=0
	}
	h, ok := parsePESHeader(payload)
	require.True(t, ok)
	assert.True(t, h.hasPTS)
	assert.Equal(t, int64(0), h.ptsUs)
	assert.Equal(t, 14, h.headerLen)
}

func TestParsePESHeaderLargePTS(t *testing.T) {
	// PTS field bytes chosen so (b0>>1&7)<<30 | b1<<22 | (b2>>1&0x7F)<<15 |
	// b3<<7 | (b4>>1&0x7F) evaluates to 3_221_258_241 (90kHz ticks), which
	// converts to 35_791_758_233us.
	payload := []byte{
		0x00, 0x00, 0x01, 0xE0,
		0x00, 0x00,
		0x80, 0x80,
		0x05,
		0x37, 0x00, 0x03, 0x00, 0x03,
	}
	h, ok := parsePESHeader(payload)
	require.True(t, ok)
	assert.True(t, h.hasPTS)
	assert.Equal(t, int64(35_791_758_233), h.ptsUs)
}

func TestParsePESHeaderNoPTSFlag(t *testing.T) {
	payload := []byte{
		0x00, 0x00, 0x01, 0xE0,
		0x00, 0x00,
		0x80, 0x00, // pts_dts_flags=00
		0x00,
	}
	h, ok := parsePESHeader(payload)
	require.True(t, ok)
	assert.False(t, h.hasPTS)
	assert.Equal(t, 9, h.headerLen)
}

func TestParsePESHeaderRejectsBadStartCode(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x02, 0xE0, 0, 0, 0, 0, 0}
	_, ok := parsePESHeader(payload)
	assert.False(t, ok)
}

func TestPTSToUsRoundsToNearest(t *testing.T) {
	assert.Equal(t, int64(0), ptsToUs(0))
	assert.Equal(t, int64(1_000_000), ptsToUs(90_000))
}
