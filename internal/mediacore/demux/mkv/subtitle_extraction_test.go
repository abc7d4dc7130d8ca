package mkv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

func buildSegmentWithSubtitleTrack(t *testing.T, subtitleTrackEntry []byte, blocks ...[]byte) []byte {
	t.Helper()
	info := buildElement(idTimecodeScale, u32be(1_000_000))
	tracks := buildElement(idTrackEntry, subtitleTrackEntry)

	cluster := buildElement(idTimecode, u32be(0))
	for _, b := range blocks {
		cluster = append(cluster, buildElement(idSimpleBlock, b)...)
	}

	var segment []byte
	segment = append(segment, buildElement(idInfo, info)...)
	segment = append(segment, buildElement(idTracks, tracks)...)
	segment = append(segment, buildElement(idCluster, cluster)...)
	return buildElement(idSegment, segment)
}

func assTrackEntry(codecPrivate []byte) []byte {
	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x02})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeSubtitle)})...)
	entry = append(entry, buildElement(idCodecID, []byte("S_TEXT/ASS"))...)
	entry = append(entry, buildElement(idCodecPrivate, codecPrivate)...)
	return entry
}

func TestMKVSubtitleASSPendingCueClosedByNextBlock(t *testing.T) {
	codecPrivate := []byte("Format: Layer, Start, End, Text\n")
	// track_number=2, no lacing, rel_timecode 0 then 2000 (relative to cluster tc 0).
	block1 := []byte{0x82, 0x00, 0x00, 0x00}
	block1 = append(block1, []byte("0,0,0,Hello there")...)
	block2 := []byte{0x82, 0x07, 0xD0, 0x00} // rel_timecode=2000
	block2 = append(block2, []byte("0,0,0,Goodbye")...)

	data := buildSegmentWithSubtitleTrack(t, assTrackEntry(codecPrivate), block1, block2)

	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	cues := make(chan demux.SubtitleCue, 2)
	require.NoError(t, d.StartSubtitleExtraction(context.Background(), 2, func(c demux.SubtitleCue) {
		cues <- c
	}))

	var first demux.SubtitleCue
	select {
	case first = <-cues:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first cue")
	}
	require.NotNil(t, first.Text)
	assert.Equal(t, "Hello there", first.Text.Text)
	assert.Equal(t, int64(0), first.Text.StartUs)
	// block2's rel_timecode=2000 ticks * TimecodeScale(1_000_000)/1000 = 2_000_000us.
	assert.Equal(t, int64(2_000_000), first.Text.EndUs) // closed by block2's timestamp

	var second demux.SubtitleCue
	select {
	case second = <-cues:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second (EOS fallback) cue")
	}
	require.NotNil(t, second.Text)
	assert.Equal(t, "Goodbye", second.Text.Text)
	assert.Equal(t, int64(2_000_000), second.Text.StartUs)
	assert.Equal(t, int64(2_000_000)+pendingCueFallbackUs, second.Text.EndUs)
}

func pgsTrackEntry() []byte {
	var entry []byte
	entry = append(entry, buildElement(idTrackNumber, []byte{0x03})...)
	entry = append(entry, buildElement(idTrackType, []byte{byte(trackTypeSubtitle)})...)
	entry = append(entry, buildElement(idCodecID, []byte("S_HDMV/PGS"))...)
	return entry
}

func TestMKVSubtitlePGSAssemblesSegments(t *testing.T) {
	pgsEntry := pgsTrackEntry()

	// One raw (segment_type, segment_length, payload) tuple: type=0x16, len=3.
	rawSegment := []byte{0x16, 0x00, 0x03, 0xAA, 0xBB, 0xCC}
	block := []byte{0x83, 0x00, 0x00, 0x00}
	block = append(block, rawSegment...)

	data := buildSegmentWithSubtitleTrack(t, pgsEntry, block)

	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	cues := make(chan demux.SubtitleCue, 1)
	require.NoError(t, d.StartSubtitleExtraction(context.Background(), 3, func(c demux.SubtitleCue) {
		cues <- c
	}))

	select {
	case c := <-cues:
		require.NotNil(t, c.Pgs)
		assert.Equal(t, byte('P'), c.Pgs.Bytes[0])
		assert.Equal(t, byte('G'), c.Pgs.Bytes[1])
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, c.Pgs.Bytes[13:])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PGS cue")
	}
}
