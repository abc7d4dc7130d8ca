package mkv

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

func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func buildTestSegment(t *testing.T, simpleBlock []byte) []byte {
	t.Helper()
	avcC := []byte{0x01, 0x42, 0xC0, 0x1E, 0xFF, 0xE1, 0x00, 0x04, 0x67, 0x42, 0xC0, 0x1E}
	video := append(buildElement(idPixelWidth, []byte{0x05, 0x00}), buildElement(idPixelHeight, []byte{0x02, 0xD0})...)

	var trackEntry []byte
	trackEntry = append(trackEntry, buildElement(idTrackNumber, []byte{0x01})...)
	trackEntry = append(trackEntry, buildElement(idTrackType, []byte{byte(trackTypeVideo)})...)
	trackEntry = append(trackEntry, buildElement(idCodecID, []byte("V_MPEG4/ISO/AVC"))...)
	trackEntry = append(trackEntry, buildElement(idCodecPrivate, avcC)...)
	trackEntry = append(trackEntry, buildElement(idVideo, video)...)

	info := buildElement(idTimecodeScale, u32be(1_000_000))
	tracks := buildElement(idTrackEntry, trackEntry)

	cluster := buildElement(idTimecode, u32be(1000))
	cluster = append(cluster, buildElement(idSimpleBlock, simpleBlock)...)

	var segment []byte
	segment = append(segment, buildElement(idInfo, info)...)
	segment = append(segment, buildElement(idTracks, tracks)...)
	segment = append(segment, buildElement(idCluster, cluster)...)

	return buildElement(idSegment, segment)
}

func TestMKVDemuxerParsesLiteralTimestampScenario(t *testing.T) {
	// track_number=1, rel_timecode=42, flags=0x80 (keyframe, no lacing).
	simpleBlock := []byte{0x81, 0x00, 0x2A, 0x80, 0xAA, 0xBB, 0xCC}
	data := buildTestSegment(t, simpleBlock)

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
		// (1000 + 42) * 1_000_000 / 1000 = 1_042_000, per the spec's literal scenario.
		assert.Equal(t, int64(1_042_000), c.TimestampUs)
		assert.Equal(t, demux.ChunkKey, c.Kind)
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, c.Bytes)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video chunk")
	}
}

func TestMKVDemuxerPauseBlocksExtraction(t *testing.T) {
	simpleBlock := []byte{0x81, 0x00, 0x2A, 0x80, 0xAA, 0xBB, 0xCC}
	data := buildTestSegment(t, simpleBlock)

	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))
	d.PauseExtraction()

	chunks := make(chan demux.EncodedVideoChunk, 1)
	require.NoError(t, d.StartVideoExtraction(context.Background(), func(c demux.EncodedVideoChunk) {
		chunks <- c
	}))

	select {
	case <-chunks:
		t.Fatal("chunk arrived while paused")
	case <-time.After(200 * time.Millisecond):
	}

	d.ResumeExtraction()
	select {
	case <-chunks:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video chunk after resume")
	}
}

func TestMKVDemuxerOpenFailsWithoutSegment(t *testing.T) {
	d := New(&memSource{data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x10, 0x00, 0x00, 0x00}}, nil)
	assert.Error(t, d.Open(context.Background()))
}
