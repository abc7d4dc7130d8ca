package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPackets(stride, syncOffset, count int) []byte {
	buf := make([]byte, syncOffset+stride*count)
	for i := 0; i < count; i++ {
		buf[syncOffset+i*stride] = syncByte
	}
	return buf
}

func TestProbeStride188NoOffset(t *testing.T) {
	data := buildPackets(188, 0, 10)
	stride, offset, ok := probeStride(data)
	require.True(t, ok)
	assert.Equal(t, 188, stride)
	assert.Equal(t, 0, offset)
}

func TestProbeStride192WithLeadingOffset(t *testing.T) {
	data := buildPackets(192, 4, 10)
	stride, offset, ok := probeStride(data)
	require.True(t, ok)
	assert.Equal(t, 192, stride)
	assert.Equal(t, 4, offset)
}

func TestProbeStrideFailsOnNoise(t *testing.T) {
	data := make([]byte, 500)
	for i := range data {
		data[i] = byte(i % 7)
	}
	_, _, ok := probeStride(data)
	assert.False(t, ok)
}

func TestParsePacketHeaderFields(t *testing.T) {
	pkt := make([]byte, 188)
	pkt[0] = syncByte
	pkt[1] = 0x40 | 0x01 // pusi=1, pid high bits = 0x01
	pkt[2] = 0x00
	pkt[3] = 0x10 // afc=01 (payload only)

	h, ok := parsePacketHeader(pkt)
	require.True(t, ok)
	assert.True(t, h.pusi)
	assert.Equal(t, uint16(0x100), h.pid)
	assert.Equal(t, byte(1), h.afc)
}

func TestPacketPayloadSkipsAdaptationField(t *testing.T) {
	pkt := make([]byte, 188)
	pkt[0] = syncByte
	pkt[3] = 0x30           // afc=11 (adaptation + payload)
	pkt[4] = 5              // adaptation_field_length = 5
	pkt[10] = 0xAB          // first payload byte at offset 5+adaptation_field_length=10
	payload := packetPayload(pkt, packetHeader{afc: 3})
	require.Len(t, payload, 188-10)
	assert.Equal(t, byte(0xAB), payload[0])
}

func TestPacketPayloadNilWhenAdaptationOnly(t *testing.T) {
	pkt := make([]byte, 188)
	pkt[0] = syncByte
	pkt[3] = 0x20 // afc=10, adaptation field only
	assert.Nil(t, packetPayload(pkt, packetHeader{afc: 2}))
}
