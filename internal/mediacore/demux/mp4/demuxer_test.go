package mp4

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

type memSource struct{ data []byte }

func (m *memSource) Size() uint64 { return uint64(len(m.data)) }
func (m *memSource) Slice(start, end uint64) bytesource.Slice {
	return &memSlice{data: m.data, start: start, end: end}
}
func (m *memSource) Abort() {}

type memSlice struct {
	data       []byte
	start, end uint64
}

func (s *memSlice) Bytes(ctx context.Context) ([]byte, error) { return s.data[s.start:s.end], nil }
func (s *memSlice) Start() uint64                              { return s.start }
func (s *memSlice) End() uint64                                { return s.end }

func buildAVCStsd(sps, pps []byte, width, height int) []byte {
	avcC := []byte{0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1, 0x00, byte(len(sps))}
	avcC = append(avcC, sps...)
	avcC = append(avcC, 0x01, 0x00, byte(len(pps)))
	avcC = append(avcC, pps...)

	visual := make([]byte, 78)
	visual[24], visual[25] = byte(width>>8), byte(width)
	visual[26], visual[27] = byte(height>>8), byte(height)
	visual = append(visual, makeBox("avcC", avcC)...)

	stsdPayload := append([]byte{0, 0, 0, 0}, []byte{0, 0, 0, 1}...)
	stsdPayload = append(stsdPayload, makeBox("avc1", visual)...)
	return makeBox("stsd", stsdPayload)
}

func buildSingleSampleVideoFile(t *testing.T, sampleData []byte) []byte {
	t.Helper()
	sps := []byte{0x67, 0x42, 0xC0, 0x1E}
	pps := []byte{0x68, 0xCE, 0x3C, 0x80}

	buildMoov := func(sampleOffset uint32) []byte {
		var stbl []byte
		stbl = append(stbl, buildSTTS([][2]uint32{{1, 0}})...)
		stbl = append(stbl, buildSTSZVariable([]uint32{uint32(len(sampleData))})...)
		stbl = append(stbl, buildSTSC([][2]uint32{{1, 1}})...)
		stbl = append(stbl, buildSTCO([]uint32{sampleOffset})...)
		stbl = append(stbl, buildAVCStsd(sps, pps, 1280, 720)...)

		minf := makeBox("stbl", stbl)

		hdlr := makeBox("hdlr", []byte{0, 0, 0, 0, 0, 0, 0, 0, 'v', 'i', 'd', 'e'})
		mdhdPayload := make([]byte, 20)
		mdhdPayload[12], mdhdPayload[13], mdhdPayload[14], mdhdPayload[15] = 0, 0, 0x03, 0xE8 // timescale=1000
		mdhdBox := makeBox("mdhd", mdhdPayload)

		mdia := append(append(hdlr, mdhdBox...), makeBox("minf", minf)...)

		tkhdPayload := make([]byte, 20)
		tkhdPayload[15] = 1 // track_ID = 1
		tkhdBox := makeBox("tkhd", tkhdPayload)

		trak := append(tkhdBox, makeBox("mdia", mdia)...)
		return makeBox("moov", makeBox("trak", trak))
	}

	ftyp := makeBox("ftyp", []byte("isom"))
	moovPass1 := buildMoov(0)
	prefix := len(ftyp) + len(moovPass1)
	sampleOffset := uint32(prefix + 8) // +8 for the mdat box header
	moov := buildMoov(sampleOffset)
	require.Equal(t, len(moovPass1), len(moov))

	mdat := makeBox("mdat", sampleData)

	var out []byte
	out = append(out, ftyp...)
	out = append(out, moov...)
	out = append(out, mdat...)
	return out
}

func TestMP4DemuxerSingleVideoSampleIsKeyWithZeroDuration(t *testing.T) {
	sampleData := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data := buildSingleSampleVideoFile(t, sampleData)

	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	track, ok := d.VideoTrack()
	require.True(t, ok)
	assert.Equal(t, "avc1.42C01E", track.Codec)
	assert.Equal(t, 1280, track.Width)
	assert.Equal(t, 720, track.Height)

	chunks := make(chan demux.EncodedVideoChunk, 1)
	require.NoError(t, d.StartVideoExtraction(context.Background(), func(c demux.EncodedVideoChunk) {
		chunks <- c
	}))

	select {
	case c := <-chunks:
		assert.Equal(t, demux.ChunkKey, c.Kind)
		assert.Equal(t, int64(0), c.TimestampUs)
		assert.Equal(t, int64(0), c.DurationUs)
		assert.Equal(t, sampleData, c.Bytes)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video chunk")
	}
}

func TestMP4DemuxerOpenFailsWithoutMoov(t *testing.T) {
	data := makeBox("ftyp", []byte("isom"))
	d := New(&memSource{data: data}, nil)
	assert.Error(t, d.Open(context.Background()))
}
