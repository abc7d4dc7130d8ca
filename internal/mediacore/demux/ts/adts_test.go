package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adtsHeaderLC44100Stereo100 is a 7-byte ADTS header for AAC-LC, 44100Hz,
// stereo, frame_length=100 (header + payload), no CRC.
var adtsHeaderLC44100Stereo100 = []byte{0xFF, 0xF1, 0x50, 0x80, 0x0C, 0x9F, 0xFC}

func TestParseADTSHeaderFields(t *testing.T) {
	data := append(append([]byte(nil), adtsHeaderLC44100Stereo100...), make([]byte, 93)...)
	f, ok := parseADTSHeader(data)
	require.True(t, ok)
	assert.Equal(t, byte(1), f.profile) // AOT 2 (LC) - 1
	assert.Equal(t, byte(4), f.samplingFreqIdx)
	assert.Equal(t, byte(2), f.channelConfig)
	assert.Equal(t, 100, f.frameLength)
	assert.Equal(t, 7, f.headerLen)
	assert.Equal(t, 1024, f.samplesPerFrame)
}

func TestAudioSpecificConfigAndCodecString(t *testing.T) {
	f, ok := parseADTSHeader(append(append([]byte(nil), adtsHeaderLC44100Stereo100...), make([]byte, 93)...))
	require.True(t, ok)
	assert.Equal(t, []byte{0x12, 0x10}, audioSpecificConfig(f))
	assert.Equal(t, "mp4a.40.2", aacCodecString(f))
	assert.Equal(t, 44100, adtsSampleRates[f.samplingFreqIdx])
}

func TestFindADTSSyncSkipsLeadingGarbage(t *testing.T) {
	data := append([]byte{0x00, 0x01, 0x02}, adtsHeaderLC44100Stereo100...)
	idx := findADTSSync(data)
	assert.Equal(t, 3, idx)
}

func TestParseADTSHeaderRejectsTooShort(t *testing.T) {
	_, ok := parseADTSHeader([]byte{0xFF, 0xF1, 0x50})
	assert.False(t, ok)
}

func TestParseMP3HeaderMPEG1LayerIII(t *testing.T) {
	data := []byte{0xFF, 0xFB, 0x90, 0x00}
	data = append(data, make([]byte, 500)...)
	f, ok := parseMP3Header(data)
	require.True(t, ok)
	assert.Equal(t, 417, f.frameLength)
	assert.Equal(t, 1152, f.samplesPerFrame)
	assert.Equal(t, 44100, f.sampleRate)
}

func TestParseMP3HeaderRejectsNonLayerIII(t *testing.T) {
	// layer bits = 10 (Layer II), must be rejected.
	data := []byte{0xFF, 0xFD, 0x90, 0x00}
	data = append(data, make([]byte, 500)...)
	_, ok := parseMP3Header(data)
	assert.False(t, ok)
}
