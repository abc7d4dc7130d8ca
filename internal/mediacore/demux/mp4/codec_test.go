package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAVCDescription(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0x00, 0x11, 0x22}
	pps := []byte{0x68, 0xCE, 0x3C, 0x80}
	avcC := []byte{0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1, 0x00, byte(len(sps))}
	avcC = append(avcC, sps...)
	avcC = append(avcC, 0x01, 0x00, byte(len(pps)))
	avcC = append(avcC, pps...)

	children := makeBox("avcC", avcC)
	codec, description, ok := avcDescription(children)
	require.True(t, ok)
	assert.Equal(t, "avc1.42C01E", codec)
	assert.Equal(t, avcC, description)
}

func TestHEVCDescription(t *testing.T) {
	hvcC := make([]byte, 23)
	hvcC[0] = 0x01
	hvcC[1] = 0x01 // profile_space=0, tier=0, profile_idc=1
	hvcC[2], hvcC[3], hvcC[4], hvcC[5] = 0x00, 0x00, 0x00, 0x02
	hvcC[6] = 0xB0
	hvcC[12] = 93

	children := makeBox("hvcC", hvcC)
	codec, description, ok := hevcDescription(children)
	require.True(t, ok)
	assert.Equal(t, "hvc1.1.40000000.L93.B0", codec)
	assert.Equal(t, hvcC, description)
}

func TestVP9Description(t *testing.T) {
	vpcC := make([]byte, 8)
	vpcC[4] = 0  // profile
	vpcC[5] = 10 // level
	vpcC[6] = 0x80 // bitDepth=8

	children := makeBox("vpcC", vpcC)
	codec, _, ok := vp9Description(children)
	require.True(t, ok)
	assert.Equal(t, "vp09.00.10.08", codec)
}

func TestAV1Description(t *testing.T) {
	av1C := make([]byte, 4)
	av1C[0] = 0x81
	av1C[1] = 0x04 // profile=0, level=4
	av1C[2] = 0x00 // tier=0, 8-bit

	children := makeBox("av1C", av1C)
	codec, _, ok := av1Description(children)
	require.True(t, ok)
	assert.Equal(t, "av01.0.04M.08", codec)
}

func buildAACESDS() []byte {
	asc := []byte{0x12, 0x10} // AAC-LC, 44100Hz, stereo
	decSpecific := append([]byte{0x05, byte(len(asc))}, asc...)

	decConfigContent := []byte{0x40, 0x15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	decConfigContent = append(decConfigContent, decSpecific...)
	decConfig := append([]byte{0x04, byte(len(decConfigContent))}, decConfigContent...)

	esContent := []byte{0x00, 0x01, 0x00}
	esContent = append(esContent, decConfig...)
	es := append([]byte{0x03, byte(len(esContent))}, esContent...)

	esdsPayload := append([]byte{0, 0, 0, 0}, es...)
	return makeBox("esds", esdsPayload)
}

func TestAACDescription(t *testing.T) {
	children := buildAACESDS()
	codec, description, ok := aacDescription(children)
	require.True(t, ok)
	assert.Equal(t, "mp4a.40.2", codec)
	assert.Equal(t, []byte{0x12, 0x10}, description)
}

func TestDecodeAudioSpecificConfig(t *testing.T) {
	cfg, ok := decodeAudioSpecificConfig([]byte{0x12, 0x10})
	require.True(t, ok)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 2, cfg.ChannelCount)
}

func TestParseStsdAVC(t *testing.T) {
	sps := []byte{0x67, 0x42, 0xC0, 0x1E}
	pps := []byte{0x68, 0xCE, 0x3C, 0x80}
	avcC := []byte{0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1, 0x00, byte(len(sps))}
	avcC = append(avcC, sps...)
	avcC = append(avcC, 0x01, 0x00, byte(len(pps)))
	avcC = append(avcC, pps...)

	visual := make([]byte, 78)
	visual[24], visual[25] = 0x05, 0x00 // width=1280
	visual[26], visual[27] = 0x02, 0xD0 // height=720
	visual = append(visual, makeBox("avcC", avcC)...)

	stsdPayload := append([]byte{0, 0, 0, 0}, []byte{0, 0, 0, 1}...)
	stsdPayload = append(stsdPayload, makeBox("avc1", visual)...)
	stsd := makeBox("stsd", stsdPayload)

	entry, ok := parseStsd(stsd[8:])
	require.True(t, ok)
	assert.Equal(t, "avc1", entry.fourCC)
	assert.Equal(t, 1280, entry.width)
	assert.Equal(t, 720, entry.height)

	codec, _, ok := describeSampleEntry(entry)
	require.True(t, ok)
	assert.Equal(t, "avc1.42C01E", codec)
}
