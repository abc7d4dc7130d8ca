package mkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAVCCodecStringFromCodecPrivate(t *testing.T) {
	codecPrivate := []byte{0x01, 0x42, 0xC0, 0x1E, 0xFF, 0xE1, 0x00, 0x04, 0x67, 0x42, 0xC0, 0x1E}
	codec, ok := avcCodecString(codecPrivate)
	require.True(t, ok)
	assert.Equal(t, "avc1.42C01E", codec)
}

func TestHEVCCodecStringFromCodecPrivate(t *testing.T) {
	hvcC := make([]byte, 13)
	hvcC[1] = 0x01 // profile_space=0, tier=0, profile_idc=1
	hvcC[2], hvcC[3], hvcC[4], hvcC[5] = 0x00, 0x00, 0x00, 0x02
	hvcC[12] = 93
	codec, ok := hevcCodecString(hvcC)
	require.True(t, ok)
	assert.Equal(t, "hvc1.1.40000000.L93", codec)
}

func TestVP9CodecStringDefaultsWhenNoCodecPrivate(t *testing.T) {
	assert.Equal(t, "vp09.00.10.08", vp9CodecString(nil))
}

func TestVP9CodecStringFromCodecPrivate(t *testing.T) {
	cp := make([]byte, 8)
	cp[0], cp[1] = 0, 10 // profile=0, level=10
	cp[2] = 0x80         // bitDepth=8
	codec := vp9CodecString(cp)
	assert.Equal(t, "vp09.00.10.08.00.00.00.00", codec)
}

func TestAV1CodecStringFromCodecPrivate(t *testing.T) {
	av1C := []byte{0x81, 0x04, 0x00}
	codec, ok := av1CodecString(av1C)
	require.True(t, ok)
	assert.Equal(t, "av01.0.04M.08", codec)
}

func TestAACCodecStringFromASC(t *testing.T) {
	codec, ok := aacCodecString([]byte{0x12, 0x10})
	require.True(t, ok)
	assert.Equal(t, "mp4a.40.2", codec)
}

func TestOpusChannelsFromHead(t *testing.T) {
	head := append([]byte("OpusHead"), 0x01, 0x02) // version=1, channels=2
	n, ok := opusChannelsFromHead(head)
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestOpusChannelsFromHeadRejectsBadMagic(t *testing.T) {
	_, ok := opusChannelsFromHead([]byte("NotOpus!!"))
	assert.False(t, ok)
}
