package ts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

// memSource is a trivial in-memory bytesource.ByteSource for tests.
type memSource struct {
	data []byte
}

func (m *memSource) Size() uint64 { return uint64(len(m.data)) }
func (m *memSource) Slice(start, end uint64) bytesource.Slice {
	return &memSlice{data: m.data, start: start, end: end}
}
func (m *memSource) Abort() {}

type memSlice struct {
	data       []byte
	start, end uint64
}

func (s *memSlice) Bytes(ctx context.Context) ([]byte, error) {
	return s.data[s.start:s.end], nil
}
func (s *memSlice) Start() uint64 { return s.start }
func (s *memSlice) End() uint64   { return s.end }

// buildTSPacket returns one exactly-188-byte TS packet for pid, padding the
// payload with an adaptation field when chunk is shorter than 184 bytes.
func buildTSPacket(pid uint16, pusi bool, cc byte, chunk []byte) []byte {
	pkt := make([]byte, 188)
	pkt[0] = syncByte
	b1 := byte(pid >> 8 & 0x1F)
	if pusi {
		b1 |= 0x40
	}
	pkt[1] = b1
	pkt[2] = byte(pid)

	if len(chunk) == 184 {
		pkt[3] = 0x10 | (cc & 0x0F)
		copy(pkt[4:], chunk)
		return pkt
	}
	adaptationLen := 183 - len(chunk)
	pkt[3] = 0x30 | (cc & 0x0F)
	pkt[4] = byte(adaptationLen)
	if adaptationLen > 0 {
		for i := 5; i < 5+adaptationLen; i++ {
			pkt[i] = 0xFF
		}
	}
	copy(pkt[5+adaptationLen:], chunk)
	return pkt
}

// packetizePayload splits payload across as many 188-byte TS packets as
// needed for pid, marking pusi on the first packet only.
func packetizePayload(pid uint16, payload []byte) []byte {
	var out []byte
	var cc byte
	first := true
	for len(payload) > 0 {
		n := 184
		if n > len(payload) {
			n = len(payload)
		}
		out = append(out, buildTSPacket(pid, first, cc, payload[:n])...)
		payload = payload[n:]
		first = false
		cc = (cc + 1) & 0x0F
	}
	return out
}

func buildTestStream(t *testing.T) []byte {
	t.Helper()

	const pmtPID = 0x100
	const videoPID = 0x41
	const audioPID = 0x42

	pat := buildPAT(1, pmtPID)
	patPkt := packetizePayload(0x00, append([]byte{0x00}, pat...))

	pmtSection := []byte{
		0x02, 0xB0, 0x17,
		0x00, 0x01,
		0xC1, 0x00, 0x00,
		0xE0, 0x00,
		0xF0, 0x00,
		streamTypeH264, 0xE0 | byte(videoPID>>8), byte(videoPID), 0xF0, 0x00,
		streamTypeAACADTS, 0xE0 | byte(audioPID>>8), byte(audioPID), 0xF0, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	pmtPkt := packetizePayload(pmtPID, append([]byte{0x00}, pmtSection...))

	sps := []byte{0x67, 0x42, 0xC0, 0x1E, 0x00, 0x11, 0x22}
	pps := []byte{0x68, 0xCE, 0x3C, 0x80}
	idr := []byte{0x65, 0x88, 0x84, 0x00, 0x01, 0x02, 0x03}
	startCode := []byte{0x00, 0x00, 0x00, 0x01}
	var annexB []byte
	annexB = append(annexB, startCode...)
	annexB = append(annexB, sps...)
	annexB = append(annexB, startCode...)
	annexB = append(annexB, pps...)
	annexB = append(annexB, startCode...)
	annexB = append(annexB, idr...)

	videoPES := []byte{
		0x00, 0x00, 0x01, 0xE0,
		0x00, 0x00,
		0x80, 0x80, 0x05,
		0x21, 0x00, 0x01, 0x00, 0x01, // PTS=0
	}
	videoPES = append(videoPES, annexB...)
	videoPkt := packetizePayload(videoPID, videoPES)

	frame := append(append([]byte(nil), adtsHeaderLC44100Stereo100...), make([]byte, 93)...)
	audioPES := []byte{
		0x00, 0x00, 0x01, 0xC0,
		0x00, 0x00,
		0x80, 0x80, 0x05,
		0x01, 0x00, 0x03, 0x5F, 0x91, // PTS=45000 ticks -> 500000us
	}
	audioPES = append(audioPES, frame...)
	audioPES = append(audioPES, frame...)
	audioPkt := packetizePayload(audioPID, audioPES)

	var stream []byte
	stream = append(stream, patPkt...)
	stream = append(stream, pmtPkt...)
	stream = append(stream, videoPkt...)
	stream = append(stream, audioPkt...)
	return stream
}

func TestDemuxerOpenDiscoversTracks(t *testing.T) {
	data := buildTestStream(t)
	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	videoTrack, ok := d.VideoTrack()
	require.True(t, ok)
	assert.Equal(t, "avc1.42C01E", videoTrack.Codec)
	require.GreaterOrEqual(t, len(videoTrack.Description), 6)
	assert.Equal(t, []byte{0x01, 0x42, 0xC0, 0x1E, 0xFF, 0xE1}, videoTrack.Description[:6])

	audioTrack, ok := d.AudioTrack()
	require.True(t, ok)
	assert.Equal(t, "mp4a.40.2", audioTrack.Codec)
	assert.Equal(t, 44100, audioTrack.SampleRate)
	assert.Equal(t, 2, audioTrack.Channels)
}

func TestDemuxerExtractsVideoChunk(t *testing.T) {
	data := buildTestStream(t)
	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	chunks := make(chan demux.EncodedVideoChunk, 4)
	require.NoError(t, d.StartVideoExtraction(context.Background(), func(c demux.EncodedVideoChunk) {
		chunks <- c
	}))

	select {
	case c := <-chunks:
		assert.Equal(t, demux.ChunkKey, c.Kind)
		assert.Equal(t, int64(0), c.TimestampUs)
		assert.Equal(t, int64(0), c.DurationUs)
		assert.NotEmpty(t, c.Bytes)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video chunk")
	}
}

func TestDemuxerExtractsAudioChunksWithAdvancingTimestamps(t *testing.T) {
	data := buildTestStream(t)
	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))

	chunks := make(chan demux.EncodedAudioChunk, 4)
	require.NoError(t, d.StartAudioExtraction(context.Background(), func(c demux.EncodedAudioChunk) {
		chunks <- c
	}))

	var got []demux.EncodedAudioChunk
	for i := 0; i < 2; i++ {
		select {
		case c := <-chunks:
			got = append(got, c)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for audio chunk %d", i)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(500_000), got[0].TimestampUs)
	expectedFrameDurationUs := int64(1024) * 1_000_000 / 44100
	assert.Equal(t, int64(500_000)+expectedFrameDurationUs, got[1].TimestampUs)
}

func TestDemuxerPauseBlocksExtraction(t *testing.T) {
	data := buildTestStream(t)
	d := New(&memSource{data: data}, nil)
	require.NoError(t, d.Open(context.Background()))
	d.PauseExtraction()

	chunks := make(chan demux.EncodedVideoChunk, 4)
	require.NoError(t, d.StartVideoExtraction(context.Background(), func(c demux.EncodedVideoChunk) {
		chunks <- c
	}))

	select {
	case <-chunks:
		t.Fatal("expected no chunk while paused")
	case <-time.After(200 * time.Millisecond):
	}

	d.ResumeExtraction()
	select {
	case <-chunks:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chunk after resume")
	}
}

func TestTrimToSyncCandidateKeepsTrailingSyncByte(t *testing.T) {
	assert.Equal(t, []byte{0xFF}, trimToSyncCandidate([]byte{0x12, 0x34, 0xFF}))
}

func TestTrimToSyncCandidateDiscardsWhenNoTrailingCandidate(t *testing.T) {
	assert.Nil(t, trimToSyncCandidate([]byte{0x12, 0x34, 0x56}))
}

func TestTrimToSyncCandidateHandlesEmptyInput(t *testing.T) {
	assert.Nil(t, trimToSyncCandidate(nil))
}
