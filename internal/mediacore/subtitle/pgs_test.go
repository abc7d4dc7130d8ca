package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupPacketDetectsMagic(t *testing.T) {
	assert.True(t, IsSupPacket([]byte{'P', 'G', 0x00}))
	assert.False(t, IsSupPacket([]byte{0x00, 0x01}))
	assert.False(t, IsSupPacket([]byte{'P'}))
}

func TestAssemblePGSBuildsThirteenByteHeader(t *testing.T) {
	segment := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	out := AssemblePGS(1_000_000, 0x16, segment)
	assert.Len(t, out, 13+len(segment))

	assert.Equal(t, byte('P'), out[0])
	assert.Equal(t, byte('G'), out[1])
	// pts90k = round(1_000_000 * 90000 / 1_000_000) = 90000.
	assert.Equal(t, uint32(90000), be32(out[2:6]))
	assert.Equal(t, uint32(90000), be32(out[6:10]))
	assert.Equal(t, byte(0x16), out[10])
	assert.Equal(t, uint16(len(segment)), be16(out[11:13]))
	assert.Equal(t, segment, out[13:])
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
