package mkv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

func float32Bytes(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
}

func TestParseTrackEntryVideoAVC(t *testing.T) {
	avcC := []byte{0x01, 0x42, 0xC0, 0x1E, 0xFF, 0xE1, 0x00, 0x04, 0x67, 0x42, 0xC0, 0x1E}
	video := append(buildElement(idPixelWidth, []byte{0x05, 0x00}), buildElement(idPixelHeight, []byte{0x02, 0xD0})...)

	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x01})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeVideo)})...)
	entry = append(entry, buildElement(idCodecID, []byte("V_MPEG4/ISO/AVC"))...)
	entry = append(entry, buildElement(idCodecPrivate, avcC)...)
	entry = append(entry, buildElement(idVideo, video)...)

	info, ok := parseTrackEntry(entry)
	require.True(t, ok)
	assert.Equal(t, demux.TrackVideo, info.descriptor.Kind)
	assert.Equal(t, 1, info.descriptor.ID)
	assert.Equal(t, "avc1.42C01E", info.descriptor.Codec)
	assert.Equal(t, avcC, info.descriptor.Description)
	assert.Equal(t, 1280, info.descriptor.Width)
	assert.Equal(t, 720, info.descriptor.Height)
}

func TestParseTrackEntryAudioAAC(t *testing.T) {
	asc := []byte{0x12, 0x10}
	audio := append(buildElement(idSamplingFrequency, float32Bytes(44100)), buildElement(idChannels, []byte{0x02})...)

	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x02})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeAudio)})...)
	entry = append(entry, buildElement(idCodecID, []byte("A_AAC"))...)
	entry = append(entry, buildElement(idCodecPrivate, asc)...)
	entry = append(entry, buildElement(idAudio, audio)...)

	info, ok := parseTrackEntry(entry)
	require.True(t, ok)
	assert.Equal(t, demux.TrackAudio, info.descriptor.Kind)
	assert.Equal(t, "mp4a.40.2", info.descriptor.Codec)
	assert.Equal(t, 44100, info.descriptor.SampleRate)
	assert.Equal(t, 2, info.descriptor.Channels)
}

func TestParseTrackEntryAudioOpusForcesSampleRate(t *testing.T) {
	opusHead := append([]byte("OpusHead"), 0x01, 0x02) // channels=2
	audio := buildElement(idSamplingFrequency, float32Bytes(48000))

	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x03})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeAudio)})...)
	entry = append(entry, buildElement(idCodecID, []byte("A_OPUS"))...)
	entry = append(entry, buildElement(idCodecPrivate, opusHead)...)
	entry = append(entry, buildElement(idAudio, audio)...)

	info, ok := parseTrackEntry(entry)
	require.True(t, ok)
	assert.Equal(t, "opus", info.descriptor.Codec)
	assert.Equal(t, 48000, info.descriptor.SampleRate)
	assert.Equal(t, 2, info.descriptor.Channels)
}

func TestParseTrackEntrySubtitleASSStoresFormatColumns(t *testing.T) {
	codecPrivate := []byte("ScriptInfo...\nFormat: Layer, Start, End, Style, Name, Text\n")

	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x04})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeSubtitle)})...)
	entry = append(entry, buildElement(idCodecID, []byte("S_TEXT/ASS"))...)
	entry = append(entry, buildElement(idCodecPrivate, codecPrivate)...)

	info, ok := parseTrackEntry(entry)
	require.True(t, ok)
	assert.Equal(t, demux.TrackSubtitle, info.descriptor.Kind)
	assert.Equal(t, "S_TEXT/ASS", info.descriptor.SubtitleFormat)
	require.Len(t, info.assColumns, 6)
	assert.Equal(t, 5, info.assTextIdx)
}

func TestParseTrackEntryRejectsUnknownCodec(t *testing.T) {
	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x05})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeVideo)})...)
	entry = append(entry, buildElement(idCodecID, []byte("V_UNKNOWN_CODEC"))...)
	entry = append(entry, buildElement(idVideo, nil)...)

	_, ok := parseTrackEntry(entry)
	assert.False(t, ok)
}
