package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/decoder"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

type fakeFrame struct {
	ts     int64
	closed bool
}

func (f *fakeFrame) TimestampUs() int64 { return f.ts }
func (f *fakeFrame) Close() error       { f.closed = true; return nil }

type fakeVideoDecoder struct {
	onFrame   func(decoder.VideoFrame)
	submitted []demux.EncodedVideoChunk
	pending   int
	flushed   bool
	closed    bool
}

func (d *fakeVideoDecoder) IsConfigSupported(cfg decoder.VideoConfig) (bool, decoder.VideoConfig, error) {
	return true, cfg, nil
}
func (d *fakeVideoDecoder) Configure(cfg decoder.VideoConfig, onFrame func(decoder.VideoFrame)) error {
	d.onFrame = onFrame
	return nil
}
func (d *fakeVideoDecoder) Submit(c demux.EncodedVideoChunk) error {
	d.submitted = append(d.submitted, c)
	d.onFrame(&fakeFrame{ts: c.TimestampUs})
	return nil
}
func (d *fakeVideoDecoder) Pending() int { return d.pending }
func (d *fakeVideoDecoder) Flush() error { d.flushed = true; return nil }
func (d *fakeVideoDecoder) Close() error { d.closed = true; return nil }

type fakeRenderer struct {
	rendered []decoder.VideoFrame
}

func (r *fakeRenderer) RenderVideoFrame(f decoder.VideoFrame) {
	r.rendered = append(r.rendered, f)
}

type fakeAudioData struct {
	ts     int64
	dur    float64
	closed bool
}

func (a *fakeAudioData) TimestampUs() int64   { return a.ts }
func (a *fakeAudioData) DurationSec() float64 { return a.dur }
func (a *fakeAudioData) Close() error         { a.closed = true; return nil }

type playCall struct {
	data               decoder.AudioData
	startSec, offset, duration float64
}

type fakeAudioOutput struct {
	currentTime float64
	plays       []playCall
}

func (a *fakeAudioOutput) CurrentTimeSec() float64 { return a.currentTime }
func (a *fakeAudioOutput) Play(data decoder.AudioData, startSec, offsetSec, durationSec float64) {
	a.plays = append(a.plays, playCall{data, startSec, offsetSec, durationSec})
}

type fakeDemuxer struct {
	pauseCalls, resumeCalls int
}

func (d *fakeDemuxer) Open(ctx context.Context) error                { return nil }
func (d *fakeDemuxer) VideoTrack() (demux.TrackDescriptor, bool)     { return demux.TrackDescriptor{}, false }
func (d *fakeDemuxer) AudioTrack() (demux.TrackDescriptor, bool)     { return demux.TrackDescriptor{}, false }
func (d *fakeDemuxer) SubtitleTracks() []demux.TrackDescriptor       { return nil }
func (d *fakeDemuxer) StartVideoExtraction(ctx context.Context, sink demux.VideoChunkSink) error {
	return nil
}
func (d *fakeDemuxer) StartAudioExtraction(ctx context.Context, sink demux.AudioChunkSink) error {
	return nil
}
func (d *fakeDemuxer) StartSubtitleExtraction(ctx context.Context, trackID int, sink demux.SubtitleCueSink) error {
	return nil
}
func (d *fakeDemuxer) PauseExtraction()  { d.pauseCalls++ }
func (d *fakeDemuxer) ResumeExtraction() { d.resumeCalls++ }
func (d *fakeDemuxer) Stop() error       { return nil }

func newTestSession(wallMs *int64) *Session {
	s := New(nil, Config{}, nil, nil)
	s.nowWallMs = func() int64 { return *wallMs }
	return s
}

func TestPumpVideoSubmitsDecodesAndRendersOnTick(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	fd := &fakeVideoDecoder{}
	fr := &fakeRenderer{}
	s.videoDecoder = fd
	s.renderer = fr

	s.onVideoChunk(demux.EncodedVideoChunk{Kind: demux.ChunkKey, TimestampUs: 0, Bytes: []byte{1}})

	// The decoder's onFrame callback posts asynchronously; drain it and
	// dispatch like the event loop would.
	select {
	case ev := <-s.events:
		require.Equal(t, evDecodedVideoFrame, ev.kind)
		s.dispatch(ev)
	default:
		t.Fatal("expected a decoded-video-frame event")
	}

	require.True(t, s.clock.Started())
	assert.EqualValues(t, 0, s.clock.NowUs(0))

	s.renderTick()
	require.Len(t, fr.rendered, 1)
	assert.EqualValues(t, 0, fr.rendered[0].TimestampUs())
	assert.True(t, fd.submitted[0].TimestampUs == 0)
}

func TestCheckBackpressurePausesAtHighWaterAndResumesAtLowWater(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	fd := &fakeDemuxer{}
	s.demuxer = fd

	for i := 0; i <= highWaterChunks; i++ {
		s.videoQueue = append(s.videoQueue, demux.EncodedVideoChunk{})
	}
	s.checkBackpressure()
	assert.Equal(t, 1, fd.pauseCalls)
	assert.True(t, s.extractionPaused)

	// Still above low-water: must not resume yet.
	s.videoQueue = s.videoQueue[:lowWaterChunks+1]
	s.checkBackpressure()
	assert.Equal(t, 0, fd.resumeCalls)

	s.videoQueue = s.videoQueue[:lowWaterChunks]
	s.checkBackpressure()
	assert.Equal(t, 1, fd.resumeCalls)
	assert.False(t, s.extractionPaused)
}

func TestUserPauseSuppressesBackpressureResume(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	fd := &fakeDemuxer{}
	s.demuxer = fd

	s.dispatch(sessionEvent{kind: evPause})
	assert.True(t, s.userPaused)
	assert.Equal(t, 1, fd.pauseCalls)

	for i := 0; i <= highWaterChunks; i++ {
		s.videoQueue = append(s.videoQueue, demux.EncodedVideoChunk{})
	}
	s.checkBackpressure()
	s.videoQueue = nil
	s.checkBackpressure() // now under low-water, but user-paused

	assert.Equal(t, 0, fd.resumeCalls)
	assert.False(t, s.extractionPaused)
}

func TestOnDecodedAudioDataSchedulesAndClosesBlock(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	ao := &fakeAudioOutput{currentTime: 1.0}
	s.audioOutput = ao

	data := &fakeAudioData{ts: 0, dur: 0.02}
	s.onDecodedAudioData(data)

	require.Len(t, ao.plays, 1)
	assert.InDelta(t, 1.05, ao.plays[0].startSec, 1e-9)
	assert.InDelta(t, 0, ao.plays[0].offset, 1e-9)
	assert.InDelta(t, 0.02, ao.plays[0].duration, 1e-9)
	assert.True(t, data.closed)
	assert.InDelta(t, 1.07, s.scheduler.LastScheduledEndSec(), 1e-9)
}

func TestOnDecodedAudioDataDropsLateBlockWithoutPlaying(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	ao := &fakeAudioOutput{currentTime: 1.0}
	s.audioOutput = ao

	s.onDecodedAudioData(&fakeAudioData{ts: 0, dur: 0.02})

	ao.currentTime = 2.0 // device jumps far ahead, e.g. after a stall
	late := &fakeAudioData{ts: 40_000, dur: 0.02}
	s.onDecodedAudioData(late)

	assert.Len(t, ao.plays, 1) // unchanged: the late block was dropped
	assert.True(t, late.closed)
}

func TestRenderTickForceStartsClockAfterWaitingForAudioTimeout(t *testing.T) {
	wall := int64(0)
	s := newTestSession(&wall)
	s.waitingForAudio = true
	s.waitingSinceWallMs = 0
	s.ring.PushEvict(&fakeFrame{ts: 5000})

	wall = 2000 // past the 1s waiting-for-audio timeout

	s.renderTick()

	require.True(t, s.clock.Started())
	assert.False(t, s.waitingForAudio)
	assert.Equal(t, 0, s.ring.Len()) // the buffered frame was rendered
}

func TestDetectContainerBySuffix(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Container
	}{
		{"mp4 file", "movie.mp4", ContainerMP4},
		{"mkv file", "clip.mkv", ContainerMKV},
		{"webm file", "clip.webm", ContainerMKV},
		{"ts file", "segment.ts", ContainerTS},
		{"url with query", "https://example.com/video.mp4?token=abc", ContainerMP4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectContainer(tt.path, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContainerUnknownExtensionErrors(t *testing.T) {
	_, err := DetectContainer("file.xyz", "")
	assert.ErrorIs(t, err, demux.ErrUnsupportedContainer)
}
